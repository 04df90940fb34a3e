package quotations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martpedro/Admin-CRM-sub000/internal/platform/db"
	"github.com/martpedro/Admin-CRM-sub000/internal/platform/httpx"
)

// ErrNotFound aliases the shared sentinel so handlers can rely on the
// platform-level mapping.
var ErrNotFound = httpx.ErrNotFound

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, quotation Quotation) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertLine(ctx context.Context, line ProductLine) (int64, error)
	DeleteLines(ctx context.Context, quotationID int64) error
	GetLineage(ctx context.Context, rootID int64) ([]Quotation, error)
	SetLatest(ctx context.Context, id int64, latest bool) error
	GenerateNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quotationColumns = `id, number, customer_id, advisor_id, address_id, company_id,
	advance_percent, liquidation_percent, credit_time_days, validity_days,
	subtotal, tax, total, status, version, base_quotation_id, is_latest_version,
	version_notes, created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.Number, &q.CustomerID, &q.AdvisorID, &q.AddressID, &q.CompanyID,
		&q.Terms.AdvancePercent, &q.Terms.LiquidationPercent, &q.Terms.CreditTimeDays, &q.Terms.ValidityDays,
		&q.SubTotal, &q.Tax, &q.Total, &q.Status, &q.Version, &q.BaseQuotationID, &q.IsLatestVersion,
		&q.VersionNotes, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.getLines(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Lines = lines
	return q, nil
}

func (r *repository) getLines(ctx context.Context, quotationID int64) ([]ProductLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, code, vendor_code, description, specifications,
		       print_details, delivery_time, quantity, vendor_cost, print_cost,
		       profit_margin, extra_profit, line_order,
		       unit_price, total, revenue, commission
		FROM quotation_lines
		WHERE quotation_id = $1
		ORDER BY line_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ProductLine
	for rows.Next() {
		var l ProductLine
		err := rows.Scan(
			&l.ID, &l.QuotationID, &l.Code, &l.VendorCode, &l.Description, &l.Specifications,
			&l.PrintDetails, &l.DeliveryTime, &l.Quantity, &l.VendorCost, &l.PrintCost,
			&l.ProfitMargin, &l.ExtraProfit, &l.LineOrder,
			&l.UnitPrice, &l.Total, &l.Revenue, &l.Commission,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.LatestOnly {
		conditions = append(conditions, "is_latest_version = TRUE")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT `+quotationColumns+` FROM quotations%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *q)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (
			number, customer_id, advisor_id, address_id, company_id,
			advance_percent, liquidation_percent, credit_time_days, validity_days,
			subtotal, tax, total, status, version, base_quotation_id,
			is_latest_version, version_notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())
		RETURNING id`,
		q.Number, q.CustomerID, q.AdvisorID, q.AddressID, q.CompanyID,
		q.Terms.AdvancePercent, q.Terms.LiquidationPercent, q.Terms.CreditTimeDays, q.Terms.ValidityDays,
		q.SubTotal, q.Tax, q.Total, q.Status, q.Version, q.BaseQuotationID,
		q.IsLatestVersion, q.VersionNotes,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("quotation number %s: %w", q.Number, httpx.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)
	argPos := 1
	for col, val := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argPos))
		args = append(args, val)
		argPos++
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf("UPDATE quotations SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos),
		args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertLine(ctx context.Context, line ProductLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_lines (
			quotation_id, code, vendor_code, description, specifications,
			print_details, delivery_time, quantity, vendor_cost, print_cost,
			profit_margin, extra_profit, line_order,
			unit_price, total, revenue, commission
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id`,
		line.QuotationID, line.Code, line.VendorCode, line.Description, line.Specifications,
		line.PrintDetails, line.DeliveryTime, line.Quantity, line.VendorCost, line.PrintCost,
		line.ProfitMargin, line.ExtraProfit, line.LineOrder,
		line.UnitPrice, line.Total, line.Revenue, line.Commission,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) DeleteLines(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quotation_lines WHERE quotation_id = $1`, quotationID)
	return err
}

// GetLineage returns every quotation rooted at rootID, the root included.
// Ordering is left to the caller; the version manager sorts.
func (r *repository) GetLineage(ctx context.Context, rootID int64) ([]Quotation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = $1 OR base_quotation_id = $1`, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *q)
	}
	return result, rows.Err()
}

func (r *repository) SetLatest(ctx context.Context, id int64, latest bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET is_latest_version = $1, updated_at = NOW() WHERE id = $2`, latest, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber produces the next sequential human-readable number for a
// company, formatted COT-YYYY-NNNN. The sequence row advances atomically,
// so concurrent creates get distinct numbers and deleted quotations never
// free theirs for reuse.
func (r *repository) GenerateNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	var seq int64
	period := date.Format("2006")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (company_id, doc_type, period, seq)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (company_id, doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, companyID, "COT", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COT-%s-%04d", period, seq), nil
}

func (r *repository) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
