package quotations

import (
	"context"
	"fmt"
	"sort"
)

// CreateVersion clones the target quotation's commercial content into a
// new lineage member: version number bumped past the current maximum,
// BaseQuotationID pointing at the lineage root, and the latest flag moved
// to the new member inside the same transaction. Either the flip and the
// insert both land or the operation fails as a whole.
func (s *Service) CreateVersion(ctx context.Context, id int64, notes *string) (*Quotation, error) {
	source, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	rootID := source.LineageRootID()
	lineage, err := s.repo.GetLineage(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("get lineage: %w", err)
	}

	maxVersion := source.Version
	var latestID int64
	for _, member := range lineage {
		if member.Version > maxVersion {
			maxVersion = member.Version
		}
		if member.IsLatestVersion {
			latestID = member.ID
		}
	}

	number, err := s.repo.GenerateNumber(ctx, source.CompanyID, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}

	lines := s.policy.PriceLines(source.Lines)
	totals := s.policy.AggregateTotals(lines)

	clone := Quotation{
		Number:          number,
		CustomerID:      source.CustomerID,
		AdvisorID:       source.AdvisorID,
		AddressID:       source.AddressID,
		CompanyID:       source.CompanyID,
		Terms:           source.Terms,
		SubTotal:        totals.SubTotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          StatusNew,
		Version:         maxVersion + 1,
		BaseQuotationID: &rootID,
		IsLatestVersion: true,
		VersionNotes:    notes,
	}

	var newID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if latestID != 0 {
			if err := repo.SetLatest(ctx, latestID, false); err != nil {
				return fmt.Errorf("clear latest flag: %w", err)
			}
		}
		cloneID, err := repo.Create(ctx, clone)
		if err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		newID = cloneID
		for _, line := range lines {
			line.ID = 0
			line.QuotationID = newID
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert version line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.AfterMutation(newID)
	if latestID != 0 && latestID != newID {
		s.coordinator.AfterMutation(latestID)
	}
	if s.warmup != nil {
		s.warmup(ctx, "all")
	}
	return s.repo.Get(ctx, newID)
}

// ListVersions returns every member of the target's lineage, most recent
// version first. Sorting happens here regardless of repository order.
func (s *Service) ListVersions(ctx context.Context, id int64) ([]VersionSummary, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	lineage, err := s.repo.GetLineage(ctx, target.LineageRootID())
	if err != nil {
		return nil, fmt.Errorf("get lineage: %w", err)
	}

	sort.Slice(lineage, func(i, j int) bool {
		return lineage[i].Version > lineage[j].Version
	})

	summaries := make([]VersionSummary, 0, len(lineage))
	for _, member := range lineage {
		summaries = append(summaries, s.summarize(ctx, member))
	}
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, q Quotation) VersionSummary {
	count := len(q.Lines)
	if count == 0 {
		// Lineage queries return headers only; fetch lines for the count.
		if full, err := s.repo.Get(ctx, q.ID); err == nil {
			count = len(full.Lines)
		}
	}
	return VersionSummary{
		ID:            q.ID,
		Number:        q.Number,
		Version:       q.Version,
		IsLatest:      q.IsLatestVersion,
		SubTotal:      q.SubTotal,
		Tax:           q.Tax,
		Total:         q.Total,
		ProductsCount: count,
		VersionNotes:  q.VersionNotes,
		CreatedAt:     q.CreatedAt,
	}
}

// CompareVersions returns both versions' summaries and the per-field
// deltas, each computed as B minus A.
func (s *Service) CompareVersions(ctx context.Context, idA, idB int64) (*VersionComparison, error) {
	a, err := s.repo.Get(ctx, idA)
	if err != nil {
		return nil, fmt.Errorf("get version %d: %w", idA, err)
	}
	b, err := s.repo.Get(ctx, idB)
	if err != nil {
		return nil, fmt.Errorf("get version %d: %w", idB, err)
	}

	sumA := s.summarize(ctx, *a)
	sumB := s.summarize(ctx, *b)
	return &VersionComparison{
		A: sumA,
		B: sumB,
		Diff: VersionDiff{
			TotalDiff:         sumB.Total - sumA.Total,
			SubTotalDiff:      sumB.SubTotal - sumA.SubTotal,
			TaxDiff:           sumB.Tax - sumA.Tax,
			ProductsCountDiff: sumB.ProductsCount - sumA.ProductsCount,
		},
	}, nil
}

// PrepareForCopy projects a version into a detached payload for seeding a
// brand-new quotation: commercial terms plus lines with identity stripped.
// Customer and address are intentionally absent so the caller re-selects
// them. Pure projection; the source quotation is not mutated and keeps its
// latest flag.
func (s *Service) PrepareForCopy(ctx context.Context, id int64) (*CopyPayload, error) {
	source, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	lines := make([]ProductLine, 0, len(source.Lines))
	for _, line := range source.Lines {
		line.ID = 0
		line.QuotationID = 0
		lines = append(lines, line)
	}
	return &CopyPayload{Terms: source.Terms, Lines: lines}, nil
}
