// repository/fine/repo.go
package finerepo

import (
	"context"
	"database/sql"
	"time"

	"librarydesk/model"
)

type Row struct {
	FineID      int64      `json:"fine_id"`
	BorrowingID int64      `json:"borrowing_id"`
	BookTitle   string     `json:"book_title"`
	UserID      int64      `json:"user_id"`
	UserName    string     `json:"user_name"`
	Amount      float64    `json:"amount"`
	IsPaid      bool       `json:"is_paid"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type Repo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error
	ListAll(ctx context.Context) ([]Row, error)
	ListByUser(ctx context.Context, userID int64) ([]Row, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error) {
	const q = `
		SELECT id, borrowing_id, user_id, amount, is_paid, created_at, paid_at
		FROM fines
		WHERE id = $1
		FOR UPDATE`
	f := &model.Fine{}
	err := tx.QueryRowContext(ctx, q, fineID).Scan(
		&f.ID, &f.BorrowingID, &f.UserID, &f.Amount, &f.IsPaid, &f.CreatedAt, &f.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *repo) MarkPaid(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error {
	const q = `
		UPDATE fines
		SET is_paid = TRUE,
			paid_at = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, fineID, at)
	return err
}

func (r *repo) ListAll(ctx context.Context) ([]Row, error) {
	return r.list(ctx, 0)
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]Row, error) {
	return r.list(ctx, userID)
}

func (r *repo) list(ctx context.Context, userID int64) ([]Row, error) {
	// userID 0 means all users.
	const q = `
		SELECT
			f.id, f.borrowing_id, b.title,
			f.user_id, u.name,
			f.amount, f.is_paid, f.created_at, f.paid_at
		FROM fines f
		JOIN borrowings br ON br.id = f.borrowing_id
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = f.user_id
		WHERE ($1 = 0 OR f.user_id = $1)
		ORDER BY f.created_at DESC, f.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.FineID, &row.BorrowingID, &row.BookTitle,
			&row.UserID, &row.UserName,
			&row.Amount, &row.IsPaid, &row.CreatedAt, &row.PaidAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
