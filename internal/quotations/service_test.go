package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	quotations map[int64]*Quotation
	lines      map[int64][]ProductLine
	customers  map[int64]bool
	sequences  map[string]int64
	nextID     int64
	nextLineID int64

	txErr             error
	createErr         error
	updateStatusErr   error
	updateStatusCalls int
	setLatestCalls    []int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotations: make(map[int64]*Quotation),
		lines:      make(map[int64][]ProductLine),
		customers:  make(map[int64]bool),
		sequences:  make(map[string]int64),
		nextID:     1,
		nextLineID: 1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *q
	copied.Lines = append([]ProductLine(nil), m.lines[id]...)
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var result []Quotation
	for _, q := range m.quotations {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		if req.CustomerID != nil && q.CustomerID != *req.CustomerID {
			continue
		}
		if req.LatestOnly && !q.IsLatestVersion {
			continue
		}
		result = append(result, *q)
	}
	return result, len(result), nil
}

func (m *mockRepository) Create(ctx context.Context, q Quotation) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	q.ID = m.nextID
	m.nextID++
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	for col, val := range updates {
		switch col {
		case "subtotal":
			q.SubTotal = val.(float64)
		case "tax":
			q.Tax = val.(float64)
		case "total":
			q.Total = val.(float64)
		case "address_id":
			v := val.(int64)
			q.AddressID = &v
		case "advance_percent":
			q.Terms.AdvancePercent = val.(float64)
		case "liquidation_percent":
			q.Terms.LiquidationPercent = val.(float64)
		case "credit_time_days":
			q.Terms.CreditTimeDays = val.(int)
		case "validity_days":
			q.Terms.ValidityDays = val.(int)
		}
	}
	q.UpdatedAt = time.Now()
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.quotations[id]; !ok {
		return ErrNotFound
	}
	delete(m.quotations, id)
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	m.updateStatusCalls++
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	return nil
}

func (m *mockRepository) InsertLine(ctx context.Context, line ProductLine) (int64, error) {
	line.ID = m.nextLineID
	m.nextLineID++
	m.lines[line.QuotationID] = append(m.lines[line.QuotationID], line)
	return line.ID, nil
}

func (m *mockRepository) DeleteLines(ctx context.Context, quotationID int64) error {
	delete(m.lines, quotationID)
	return nil
}

func (m *mockRepository) GetLineage(ctx context.Context, rootID int64) ([]Quotation, error) {
	var result []Quotation
	for _, q := range m.quotations {
		if q.ID == rootID || (q.BaseQuotationID != nil && *q.BaseQuotationID == rootID) {
			result = append(result, *q)
		}
	}
	return result, nil
}

func (m *mockRepository) SetLatest(ctx context.Context, id int64, latest bool) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.IsLatestVersion = latest
	m.setLatestCalls = append(m.setLatestCalls, id)
	return nil
}

// GenerateNumber mirrors the sequence-row semantics: the counter only
// moves forward, so deletes never free a number.
func (m *mockRepository) GenerateNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	key := fmt.Sprintf("%d-%d", companyID, date.Year())
	m.sequences[key]++
	return fmt.Sprintf("COT-%d-%04d", date.Year(), m.sequences[key]), nil
}

func (m *mockRepository) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	return m.customers[customerID], nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, *recordingInvalidator) {
	t.Helper()
	repo := newMockRepository()
	repo.customers[7] = true
	recorder := newRecordingInvalidator()
	coordinator := NewCoordinator(recorder, SyncScheduler{}, slog.Default())
	service := NewService(repo, DefaultPricingPolicy(), coordinator, NewViewStore(nil, 0))
	return service, repo, recorder
}

func validCreateRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		CustomerID: 7,
		AdvisorID:  3,
		CompanyID:  1,
		Terms: PaymentTermsRequest{
			AdvancePercent:     50,
			LiquidationPercent: 50,
			CreditTimeDays:     30,
			ValidityDays:       15,
		},
		Lines: []ProductLineRequest{
			{Description: "Thermal mug", Quantity: 10, VendorCost: 100, PrintCost: 20, ProfitMargin: 30},
			{Description: "Lanyard", Quantity: 50, VendorCost: 5, PrintCost: 2, ProfitMargin: 30},
		},
	}
}

func TestCreateQuotation(t *testing.T) {
	service, repo, recorder := newTestService(t)

	quotation, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusNew, quotation.Status)
	assert.Equal(t, 1, quotation.Version)
	assert.True(t, quotation.IsLatestVersion)
	assert.Nil(t, quotation.BaseQuotationID)
	assert.NotEmpty(t, quotation.Number)
	require.Len(t, quotation.Lines, 2)

	// Derived fields are populated before persistence.
	var expectedSubtotal float64
	for _, line := range quotation.Lines {
		assert.InDelta(t, line.UnitPrice*float64(line.Quantity), line.Total, tolerance)
		expectedSubtotal += line.Total
	}
	assert.InDelta(t, expectedSubtotal, quotation.SubTotal, tolerance)
	assert.InDelta(t, quotation.SubTotal*0.16, quotation.Tax, tolerance)
	assert.InDelta(t, quotation.SubTotal+quotation.Tax, quotation.Total, tolerance)

	// Views were invalidated after commit.
	assert.Contains(t, recorder.Keys(), KeyListAll())
	assert.Contains(t, recorder.Keys(), KeyItem(quotation.ID))
	assert.Contains(t, repo.quotations, quotation.ID)
}

func TestCreateQuotationUnknownCustomer(t *testing.T) {
	service, repo, recorder := newTestService(t)

	req := validCreateRequest()
	req.CustomerID = 999

	_, err := service.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, repo.quotations)
	assert.Empty(t, recorder.Keys())
}

func TestUpdateRecomputesTotals(t *testing.T) {
	service, _, _ := newTestService(t)

	created, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	newLines := []ProductLineRequest{
		{Description: "Notebook", Quantity: 5, VendorCost: 40, PrintCost: 10, ProfitMargin: 30},
	}
	updated, err := service.Update(context.Background(), created.ID, UpdateQuotationRequest{Lines: &newLines})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	assert.InDelta(t, updated.Lines[0].Total, updated.SubTotal, tolerance)
	assert.InDelta(t, updated.SubTotal*0.16, updated.Tax, tolerance)
	assert.NotEqual(t, created.SubTotal, updated.SubTotal)
}

func TestUpdateClosedQuotationRejected(t *testing.T) {
	service, repo, _ := newTestService(t)

	created, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	repo.quotations[created.ID].Status = StatusClosed

	lines := []ProductLineRequest{{Description: "x", Quantity: 1, VendorCost: 1}}
	_, err = service.Update(context.Background(), created.ID, UpdateQuotationRequest{Lines: &lines})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestChangeStatus(t *testing.T) {
	service, repo, recorder := newTestService(t)

	created, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	recorder.Reset()

	updated, err := service.ChangeStatus(context.Background(), created.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)
	assert.Contains(t, recorder.Keys(), KeyListStatus(StatusNew))
	assert.Contains(t, recorder.Keys(), KeyListStatus(StatusInProgress))
	assert.Contains(t, recorder.Keys(), KeyItem(created.ID))

	closed, err := service.ChangeStatus(context.Background(), created.ID, StatusClosed)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)

	reopened, err := service.ChangeStatus(context.Background(), created.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, reopened.Status)
	assert.Equal(t, 1, reopened.Version)
	assert.Equal(t, StatusInProgress, repo.quotations[created.ID].Status)
}

func TestChangeStatusInvalidTransitionRejectedLocally(t *testing.T) {
	service, repo, recorder := newTestService(t)

	created, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	recorder.Reset()
	repo.updateStatusCalls = 0

	_, err = service.ChangeStatus(context.Background(), created.ID, StatusClosed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, repo.updateStatusCalls, "invalid transition must not reach persistence")
	assert.Empty(t, recorder.Keys())
	assert.Equal(t, StatusNew, repo.quotations[created.ID].Status)
}

func TestChangeStatusPersistenceFailureLeavesStateUnchanged(t *testing.T) {
	service, repo, recorder := newTestService(t)

	created, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	recorder.Reset()
	repo.updateStatusErr = fmt.Errorf("connection reset")

	_, err = service.ChangeStatus(context.Background(), created.ID, StatusInProgress)
	require.Error(t, err)
	assert.Equal(t, StatusNew, repo.quotations[created.ID].Status)
	assert.Empty(t, recorder.Keys(), "no invalidation before a confirmed commit")
}

func TestQuotationNumbersNotReusedAfterDelete(t *testing.T) {
	service, _, _ := newTestService(t)

	first, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	second, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.Number, second.Number)

	require.NoError(t, service.Delete(context.Background(), first.ID))

	third, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.Number, third.Number)
	assert.NotEqual(t, second.Number, third.Number)
}

func TestDeleteQuotation(t *testing.T) {
	service, repo, recorder := newTestService(t)

	created, err := service.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	recorder.Reset()

	require.NoError(t, service.Delete(context.Background(), created.ID))
	assert.NotContains(t, repo.quotations, created.ID)
	assert.Contains(t, recorder.Keys(), KeyItem(created.ID))
	assert.Contains(t, recorder.Keys(), KeyListAll())
}
