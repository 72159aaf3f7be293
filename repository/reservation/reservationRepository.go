// repository/reservation/repo.go
package reservationrepo

import (
	"context"
	"database/sql"
	"time"

	"librarydesk/model"
)

type Row struct {
	ReservationID int64      `json:"reservation_id"`
	BookID        int64      `json:"book_id"`
	BookTitle     string     `json:"book_title"`
	BookAuthor    string     `json:"book_author"`
	BookISBN      string     `json:"book_isbn"`
	UserID        int64      `json:"user_id"`
	UserName      string     `json:"user_name"`
	UserEmail     string     `json:"user_email"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes,omitempty"`
	ReservedAt    time.Time  `json:"reserved_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

type Repo interface {
	Insert(ctx context.Context, userID, bookID int64, notes *string, expiresAt time.Time) (*model.Reservation, error)
	HasOpen(ctx context.Context, userID, bookID int64) (bool, error)
	HasActiveBorrowing(ctx context.Context, userID, bookID int64) (bool, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, reservationID int64) (*model.Reservation, error)
	MarkFulfilled(ctx context.Context, tx *sql.Tx, reservationID, approverID int64, at time.Time, notes *string) error
	MarkRejected(ctx context.Context, tx *sql.Tx, reservationID, approverID int64, at time.Time, notes *string) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	ListAll(ctx context.Context) ([]Row, error)
	ListByUser(ctx context.Context, userID int64) ([]Row, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, userID, bookID int64, notes *string, expiresAt time.Time) (*model.Reservation, error) {
	const q = `
		INSERT INTO reservations (user_id, book_id, status, notes, expires_at)
		VALUES ($1, $2, 'PENDING', $3, $4)
		RETURNING id, reserved_at`
	rs := &model.Reservation{
		UserID:    userID,
		BookID:    bookID,
		Status:    model.ReservationPending,
		Notes:     notes,
		ExpiresAt: expiresAt,
	}
	if err := r.db.QueryRowContext(ctx, q, userID, bookID, notes, expiresAt).Scan(&rs.ID, &rs.ReservedAt); err != nil {
		return nil, err
	}
	return rs, nil
}

func (r *repo) HasOpen(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND book_id = $2 AND status = 'PENDING'
		)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) HasActiveBorrowing(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM borrowings
			WHERE user_id = $1 AND book_id = $2 AND status = 'ACTIVE'
		)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, reservationID int64) (*model.Reservation, error) {
	const q = `
		SELECT id, user_id, book_id, status, notes, reserved_at, expires_at, approved_by, approved_at
		FROM reservations
		WHERE id = $1
		FOR UPDATE`
	rs := &model.Reservation{}
	err := tx.QueryRowContext(ctx, q, reservationID).Scan(
		&rs.ID, &rs.UserID, &rs.BookID, &rs.Status, &rs.Notes,
		&rs.ReservedAt, &rs.ExpiresAt, &rs.ApprovedBy, &rs.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (r *repo) MarkFulfilled(ctx context.Context, tx *sql.Tx, reservationID, approverID int64, at time.Time, notes *string) error {
	const q = `
		UPDATE reservations
		SET status = 'FULFILLED',
			approved_by = $2,
			approved_at = $3,
			notes = COALESCE($4, notes)
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, reservationID, approverID, at, notes)
	return err
}

func (r *repo) MarkRejected(ctx context.Context, tx *sql.Tx, reservationID, approverID int64, at time.Time, notes *string) error {
	const q = `
		UPDATE reservations
		SET status = 'REJECTED',
			approved_by = $2,
			approved_at = $3,
			notes = COALESCE($4, notes)
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, reservationID, approverID, at, notes)
	return err
}

func (r *repo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE reservations
		SET status = 'EXPIRED'
		WHERE status = 'PENDING'
		AND expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
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
			rs.id, rs.book_id, b.title, b.author, b.isbn,
			rs.user_id, u.name, u.email,
			rs.status, rs.notes, rs.reserved_at, rs.expires_at, rs.approved_at
		FROM reservations rs
		JOIN books b ON b.id = rs.book_id
		JOIN users u ON u.id = rs.user_id
		WHERE ($1 = 0 OR rs.user_id = $1)
		ORDER BY rs.reserved_at DESC, rs.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ReservationID, &row.BookID, &row.BookTitle, &row.BookAuthor, &row.BookISBN,
			&row.UserID, &row.UserName, &row.UserEmail,
			&row.Status, &row.Notes, &row.ReservedAt, &row.ExpiresAt, &row.ApprovedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
