package bookrepo

import (
	"context"
	"database/sql"
	"time"

	"librarydesk/model"
)

type SearchFilter struct {
	Title    string
	Author   string
	Category string
}

// BorrowSummary and RequestSummary feed the book detail view.
type BorrowSummary struct {
	BorrowingID int64      `json:"borrowing_id"`
	UserName    string     `json:"user_name"`
	UserEmail   string     `json:"user_email"`
	Status      string     `json:"status"`
	BorrowedAt  time.Time  `json:"borrowed_at"`
	DueDate     time.Time  `json:"due_date"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
}

type RequestSummary struct {
	ReservationID int64     `json:"reservation_id"`
	UserName      string    `json:"user_name"`
	UserEmail     string    `json:"user_email"`
	Status        string    `json:"status"`
	ReservedAt    time.Time `json:"reserved_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	ByID(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f SearchFilter) ([]model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	ISBNTaken(ctx context.Context, isbn string, excludeID int64) (bool, error)
	ActiveBorrowCount(ctx context.Context, bookID int64) (int, error)
	OpenReservationCount(ctx context.Context, bookID int64) (int, error)
	RecentBorrowings(ctx context.Context, bookID int64) ([]BorrowSummary, error)
	RecentRequests(ctx context.Context, bookID int64) ([]RequestSummary, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books (title, author, isbn, category, publisher, published_year,
		                   description, location, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.Category, b.Publisher, b.PublishedYear,
		b.Description, b.Location, b.TotalCopies, b.AvailableCopies,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
		SELECT id, title, author, isbn, category, publisher, published_year,
		       description, location, total_copies, available_copies, created_at
		FROM books
		WHERE id = $1`
	b := &model.Book{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.Publisher, &b.PublishedYear,
		&b.Description, &b.Location, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) List(ctx context.Context, f SearchFilter) ([]model.Book, error) {
	// Empty filter fields match everything.
	const q = `
		SELECT id, title, author, isbn, category, publisher, published_year,
		       description, location, total_copies, available_copies, created_at
		FROM books
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		AND ($2 = '' OR author ILIKE '%' || $2 || '%')
		AND ($3 = '' OR category = $3)
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, f.Title, f.Author, f.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.Publisher, &b.PublishedYear,
			&b.Description, &b.Location, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, b *model.Book) error {
	const q = `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, category = $5, publisher = $6,
		    published_year = $7, description = $8, location = $9,
		    total_copies = $10, available_copies = $11
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q,
		b.ID, b.Title, b.Author, b.ISBN, b.Category, b.Publisher,
		b.PublishedYear, b.Description, b.Location, b.TotalCopies, b.AvailableCopies,
	)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ISBNTaken(ctx context.Context, isbn string, excludeID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM books
			WHERE isbn = $1 AND id <> $2
		)`
	var taken bool
	err := r.db.QueryRowContext(ctx, q, isbn, excludeID).Scan(&taken)
	return taken, err
}

func (r *repo) ActiveBorrowCount(ctx context.Context, bookID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrowings
		WHERE book_id = $1 AND status = 'ACTIVE'`,
		bookID,
	).Scan(&n)
	return n, err
}

func (r *repo) OpenReservationCount(ctx context.Context, bookID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE book_id = $1 AND status = 'PENDING'`,
		bookID,
	).Scan(&n)
	return n, err
}

func (r *repo) RecentBorrowings(ctx context.Context, bookID int64) ([]BorrowSummary, error) {
	const q = `
		SELECT br.id, u.name, u.email, br.status, br.borrowed_at, br.due_date, br.returned_at
		FROM borrowings br
		JOIN users u ON u.id = br.user_id
		WHERE br.book_id = $1
		ORDER BY br.borrowed_at DESC, br.id DESC
		LIMIT 20`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BorrowSummary
	for rows.Next() {
		var s BorrowSummary
		if err := rows.Scan(&s.BorrowingID, &s.UserName, &s.UserEmail, &s.Status,
			&s.BorrowedAt, &s.DueDate, &s.ReturnedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repo) RecentRequests(ctx context.Context, bookID int64) ([]RequestSummary, error) {
	const q = `
		SELECT rs.id, u.name, u.email, rs.status, rs.reserved_at, rs.expires_at
		FROM reservations rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.book_id = $1
		ORDER BY rs.reserved_at DESC, rs.id DESC
		LIMIT 20`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RequestSummary
	for rows.Next() {
		var s RequestSummary
		if err := rows.Scan(&s.ReservationID, &s.UserName, &s.UserEmail, &s.Status,
			&s.ReservedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
