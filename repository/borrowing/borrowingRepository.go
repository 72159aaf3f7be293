// repository/borrowing/repo.go
package borrowrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"librarydesk/model"
)

// ErrNoEffect is returned when a guarded UPDATE matched no row, meaning the
// guard condition (copy counts) no longer holds.
var ErrNoEffect = errors.New("no rows affected")

type ActiveRow struct {
	BorrowingID  int64     `json:"borrowing_id"`
	BookID       int64     `json:"book_id"`
	BookTitle    string    `json:"book_title"`
	BookAuthor   string    `json:"book_author"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserEmail    string    `json:"user_email"`
	BorrowedAt   time.Time `json:"borrowed_at"`
	DueDate      time.Time `json:"due_date"`
	RenewalCount int       `json:"renewal_count"`
}

type HistoryRow struct {
	BorrowingID  int64      `json:"borrowing_id"`
	BookID       int64      `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	BookAuthor   string     `json:"book_author"`
	Status       string     `json:"status"`
	BorrowedAt   time.Time  `json:"borrowed_at"`
	DueDate      time.Time  `json:"due_date"`
	RenewalCount int        `json:"renewal_count"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
}

type Repo interface {
	// Book copies
	GetBookCopiesForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (available, total int, err error)
	DecrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error
	IncrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error

	// Borrowings
	UserExists(ctx context.Context, tx *sql.Tx, userID int64) (bool, error)
	HasActiveBorrowing(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, due time.Time) (*model.Borrowing, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, borrowingID int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, borrowingID int64, at time.Time) error
	Renew(ctx context.Context, tx *sql.Tx, borrowingID int64, newDue time.Time, newCount int) error

	// Fines
	InsertFine(ctx context.Context, tx *sql.Tx, borrowingID, userID int64, amount float64) (*model.Fine, error)
	HasUnpaidFine(ctx context.Context, tx *sql.Tx, borrowingID int64) (bool, error)

	// Views
	ListActive(ctx context.Context) ([]ActiveRow, error)
	ListByUser(ctx context.Context, userID int64) ([]HistoryRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

// Book copies

func (r *repo) GetBookCopiesForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (int, int, error) {
	const q = `
		SELECT available_copies, total_copies
		FROM books
		WHERE id = $1
		FOR UPDATE`
	var available, total int
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&available, &total)
	return available, total, err
}

func (r *repo) DecrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error {
	// Guard: never go below zero.
	const q = `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = $1
		AND available_copies >= 1`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNoEffect
	}
	return nil
}

func (r *repo) IncrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error {
	// Guard: never exceed total_copies.
	const q = `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE id = $1
		AND available_copies < total_copies`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNoEffect
	}
	return nil
}

// Borrowings

func (r *repo) UserExists(ctx context.Context, tx *sql.Tx, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID).Scan(&exists)
	return exists, err
}

func (r *repo) HasActiveBorrowing(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM borrowings
			WHERE user_id = $1 AND book_id = $2 AND status = 'ACTIVE'
		)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, due time.Time) (*model.Borrowing, error) {
	const q = `
		INSERT INTO borrowings (user_id, book_id, status, due_date)
		VALUES ($1, $2, 'ACTIVE', $3)
		RETURNING id, borrowed_at`
	b := &model.Borrowing{
		UserID:  userID,
		BookID:  bookID,
		Status:  model.BorrowActive,
		DueDate: due,
	}
	if err := tx.QueryRowContext(ctx, q, userID, bookID, due).Scan(&b.ID, &b.BorrowedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, borrowingID int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, status, borrowed_at, due_date, renewal_count, returned_at
		FROM borrowings
		WHERE id = $1
		FOR UPDATE`
	b := &model.Borrowing{}
	err := tx.QueryRowContext(ctx, q, borrowingID).Scan(
		&b.ID, &b.UserID, &b.BookID, &b.Status,
		&b.BorrowedAt, &b.DueDate, &b.RenewalCount, &b.ReturnedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, borrowingID int64, at time.Time) error {
	const q = `
		UPDATE borrowings
		SET status = 'RETURNED',
			returned_at = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, borrowingID, at)
	return err
}

func (r *repo) Renew(ctx context.Context, tx *sql.Tx, borrowingID int64, newDue time.Time, newCount int) error {
	const q = `
		UPDATE borrowings
		SET due_date = $2,
			renewal_count = $3
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, borrowingID, newDue, newCount)
	return err
}

// Fines

func (r *repo) InsertFine(ctx context.Context, tx *sql.Tx, borrowingID, userID int64, amount float64) (*model.Fine, error) {
	const q = `
		INSERT INTO fines (borrowing_id, user_id, amount, is_paid)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at`
	f := &model.Fine{
		BorrowingID: borrowingID,
		UserID:      userID,
		Amount:      amount,
	}
	if err := tx.QueryRowContext(ctx, q, borrowingID, userID, amount).Scan(&f.ID, &f.CreatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *repo) HasUnpaidFine(ctx context.Context, tx *sql.Tx, borrowingID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM fines
			WHERE borrowing_id = $1 AND NOT is_paid
		)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, borrowingID).Scan(&exists)
	return exists, err
}

// Views

func (r *repo) ListActive(ctx context.Context) ([]ActiveRow, error) {
	const q = `
		SELECT
			br.id          AS borrowing_id,
			br.book_id     AS book_id,
			b.title        AS book_title,
			b.author       AS book_author,
			br.user_id     AS user_id,
			u.name         AS user_name,
			u.email        AS user_email,
			br.borrowed_at AS borrowed_at,
			br.due_date    AS due_date,
			br.renewal_count AS renewal_count
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.status = 'ACTIVE'
		ORDER BY br.due_date, br.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveRow
	for rows.Next() {
		var a ActiveRow
		if err := rows.Scan(
			&a.BorrowingID, &a.BookID, &a.BookTitle, &a.BookAuthor,
			&a.UserID, &a.UserName, &a.UserEmail,
			&a.BorrowedAt, &a.DueDate, &a.RenewalCount,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]HistoryRow, error) {
	const q = `
		SELECT
			br.id          AS borrowing_id,
			br.book_id     AS book_id,
			b.title        AS book_title,
			b.author       AS book_author,
			br.status      AS status,
			br.borrowed_at AS borrowed_at,
			br.due_date    AS due_date,
			br.renewal_count AS renewal_count,
			br.returned_at AS returned_at
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		WHERE br.user_id = $1
		ORDER BY br.borrowed_at DESC, br.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(
			&h.BorrowingID, &h.BookID, &h.BookTitle, &h.BookAuthor,
			&h.Status, &h.BorrowedAt, &h.DueDate, &h.RenewalCount, &h.ReturnedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
