package userrepo

import (
	"context"
	"database/sql"
	"time"

	"librarydesk/model"
)

// Row is the admin listing shape, user plus activity counts.
type Row struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Phone            *string   `json:"phone,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	BorrowingCount   int       `json:"borrowing_count"`
	ReservationCount int       `json:"reservation_count"`
	FineCount        int       `json:"fine_count"`
}

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]Row, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id int64) error
	ActiveBorrowCount(ctx context.Context, userID int64) (int, error)
	UnpaidFineCount(ctx context.Context, userID int64) (int, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, u *model.User) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Phone, u.Address,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, phone, address, created_at
		FROM users
		WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Address, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, phone, address, created_at
		FROM users
		WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Address, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) List(ctx context.Context) ([]Row, error) {
	const q = `
		SELECT
			u.id, u.name, u.email, u.role, u.phone, u.created_at,
			(SELECT COUNT(*) FROM borrowings br WHERE br.user_id = u.id)   AS borrowing_count,
			(SELECT COUNT(*) FROM reservations rs WHERE rs.user_id = u.id) AS reservation_count,
			(SELECT COUNT(*) FROM fines f WHERE f.user_id = u.id)          AS fine_count
		FROM users u
		ORDER BY u.created_at DESC, u.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Email, &row.Role, &row.Phone, &row.CreatedAt,
			&row.BorrowingCount, &row.ReservationCount, &row.FineCount,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, u *model.User) error {
	const q = `
		UPDATE users
		SET name = $2, email = $3, role = $4, phone = $5, address = $6
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.Role, u.Phone, u.Address)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ActiveBorrowCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrowings
		WHERE user_id = $1 AND status = 'ACTIVE'`,
		userID,
	).Scan(&n)
	return n, err
}

func (r *repo) UnpaidFineCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fines
		WHERE user_id = $1 AND NOT is_paid`,
		userID,
	).Scan(&n)
	return n, err
}
