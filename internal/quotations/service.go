package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotEditable rejects content edits on a closed quotation. Reopen
	// it first (Closed -> InProgress) to make corrections.
	ErrNotEditable = errors.New("closed quotations cannot be edited")
)

// Service orchestrates the quotation lifecycle: pricing and totals before
// each commit, persistence inside a transaction, and view invalidation
// after every successful mutation. Persistence always precedes
// invalidation; a failed commit leaves both local state and cached views
// untouched.
type Service struct {
	repo        Repository
	policy      PricingPolicy
	coordinator *Coordinator
	views       *ViewStore
	now         func() time.Time
	warmup      func(ctx context.Context, scope string)
}

func NewService(repo Repository, policy PricingPolicy, coordinator *Coordinator, views *ViewStore) *Service {
	return &Service{
		repo:        repo,
		policy:      policy,
		coordinator: coordinator,
		views:       views,
		now:         time.Now,
	}
}

// WithWarmup registers a best-effort hook that re-primes list views after
// heavyweight mutations (version creation). Failures are the hook's
// problem; the service never observes them.
func (s *Service) WithWarmup(fn func(ctx context.Context, scope string)) *Service {
	s.warmup = fn
	return s
}

func (s *Service) priceAndTotal(reqs []ProductLineRequest) ([]ProductLine, Totals) {
	lines := make([]ProductLine, 0, len(reqs))
	for i, lr := range reqs {
		line := s.policy.PriceLine(lr.toLine())
		if line.LineOrder == 0 {
			line.LineOrder = i + 1
		}
		lines = append(lines, line)
	}
	return lines, s.policy.AggregateTotals(lines)
}

func (s *Service) Create(ctx context.Context, req CreateQuotationRequest) (*Quotation, error) {
	ok, err := s.repo.CustomerExists(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("verify customer: %w", ErrNotFound)
	}

	number, err := s.repo.GenerateNumber(ctx, req.CompanyID, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}

	lines, totals := s.priceAndTotal(req.Lines)

	quotation := Quotation{
		Number:          number,
		CustomerID:      req.CustomerID,
		AdvisorID:       req.AdvisorID,
		AddressID:       req.AddressID,
		CompanyID:       req.CompanyID,
		Terms:           req.Terms.toTerms(),
		SubTotal:        totals.SubTotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          StatusNew,
		Version:         1,
		IsLatestVersion: true,
	}

	var quotationID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, quotation)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		quotationID = id
		for _, line := range lines {
			line.QuotationID = quotationID
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert quotation line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.AfterMutation(quotationID)
	return s.repo.Get(ctx, quotationID)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status == StatusClosed {
		return nil, ErrNotEditable
	}

	updates := make(map[string]interface{})
	if req.AddressID != nil {
		updates["address_id"] = *req.AddressID
	}
	if req.Terms != nil {
		terms := req.Terms.toTerms()
		updates["advance_percent"] = terms.AdvancePercent
		updates["liquidation_percent"] = terms.LiquidationPercent
		updates["credit_time_days"] = terms.CreditTimeDays
		updates["validity_days"] = terms.ValidityDays
	}

	var linesToInsert []ProductLine
	if req.Lines != nil {
		var totals Totals
		linesToInsert, totals = s.priceAndTotal(*req.Lines)
		updates["subtotal"] = totals.SubTotal
		updates["tax"] = totals.Tax
		updates["total"] = totals.Total
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return err
			}
		}
		if req.Lines != nil {
			if err := repo.DeleteLines(ctx, id); err != nil {
				return err
			}
			for _, line := range linesToInsert {
				line.QuotationID = id
				if _, err := repo.InsertLine(ctx, line); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update quotation: %w", err)
	}

	s.coordinator.AfterMutation(id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteLines(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	s.coordinator.AfterMutation(id)
	return nil
}

// ChangeStatus validates the transition locally first; an invalid request
// never reaches persistence, and a persistence failure leaves the stored
// status untouched.
func (s *Service) ChangeStatus(ctx context.Context, id int64, requested Status) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	next, err := Transition(existing.Status, requested)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.coordinator.AfterMutation(id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	var q Quotation
	err := s.views.FetchJSON(ctx, KeyItem(id), &q, func(ctx context.Context) (interface{}, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

type listView struct {
	Items []Quotation `json:"items"`
	Total int         `json:"total"`
}

// List serves the unfiltered and per-status projections through the view
// cache; any other filter combination goes straight to the repository.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	if req.CustomerID != nil || req.LatestOnly || req.Offset != 0 || req.Limit != 0 {
		return s.repo.List(ctx, req)
	}

	key := KeyListAll()
	if req.Status != nil {
		key = KeyListStatus(*req.Status)
	}

	var view listView
	err := s.views.FetchJSON(ctx, key, &view, func(ctx context.Context) (interface{}, error) {
		items, total, err := s.repo.List(ctx, req)
		if err != nil {
			return nil, err
		}
		return listView{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return view.Items, view.Total, nil
}
