package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wakala/payments/internal/domain"
)

// PaymentRepo is the SQLite-backed payment store.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = "id, reference, customer_id, amount, currency, method, status, created_at"

func (r *PaymentRepo) Save(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	id := p.ID
	if id == "" {
		id = newPaymentID(p.CreatedAt)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments
		(id, reference, customer_id, amount, currency, method, status, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		id, p.Reference, p.CustomerID, p.Amount.String(), string(p.Currency),
		string(p.Method), string(p.Status()), p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		// The UNIQUE constraint on reference is the atomic backstop for
		// check-then-insert races: the second writer lands here. It is the
		// only UNIQUE index on the table, so the extended code is enough.
		var serr *sqlite.Error
		if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return nil, &domain.DuplicateReferenceError{Reference: p.Reference}
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	return domain.Rehydrate(id, p.Reference, p.CustomerID, p.Amount,
		p.Currency, p.Method, p.Status(), p.CreatedAt.UTC().Truncate(time.Second)), nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)

	p, err := scanPaymentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepo) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE reference = ?)", reference,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return exists, nil
}

func (r *PaymentRepo) FindByFilters(ctx context.Context, f domain.Filter) ([]domain.Payment, error) {
	where, args := buildPaymentWhere(f)

	size := f.Size
	if size < 1 {
		size = 1
	}
	page := f.Page
	if page < 0 {
		page = 0
	}

	// ULIDs sort by creation time, so ordering by created_at with id as a
	// tiebreaker is deterministic across pages.
	query := "SELECT " + paymentColumns + " FROM payments" + where +
		" ORDER BY created_at, id LIMIT ? OFFSET ?"
	args = append(args, size, page*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepo) CountByFilters(ctx context.Context, f domain.Filter) (int64, error) {
	where, args := buildPaymentWhere(f)

	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments"+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return total, nil
}

// TransitionStatus applies the status change as a compare-and-swap on the
// PENDING state. When two updates race on the same row, exactly one UPDATE
// matches; the loser re-reads the row and reports InvalidTransitionError
// with the status the winner left behind.
func (r *PaymentRepo) TransitionStatus(ctx context.Context, id string, target domain.Status) (*domain.Payment, error) {
	if target != domain.StatusApproved && target != domain.StatusRejected {
		return nil, &domain.InvalidTransitionError{From: domain.StatusPending, To: target}
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE payments SET status = ? WHERE id = ? AND status = ?",
		string(target), id, string(domain.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &domain.InvalidTransitionError{From: current.Status(), To: target}
	}

	return r.FindByID(ctx, id)
}

// --- helpers ---

func buildPaymentWhere(f domain.Filter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.CustomerID != "" {
		clauses = append(clauses, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaymentRow(s rowScanner) (*domain.Payment, error) {
	var (
		id, reference, customerID   string
		amountStr, currency, method string
		status                      string
		createdAt                   time.Time
	)
	// created_at is declared DATETIME, so the driver hands back a time.Time.
	if err := s.Scan(&id, &reference, &customerID, &amountStr, &currency,
		&method, &status, &createdAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}

	return domain.Rehydrate(id, reference, customerID, amount,
		domain.Currency(currency), domain.Method(method),
		domain.Status(status), createdAt.UTC()), nil
}
