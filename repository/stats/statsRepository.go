// repository/stats/repo.go
package statsrepo

import (
	"context"
	"database/sql"
	"time"
)

type Counts struct {
	TotalBooks   int `json:"total_books"`
	TotalPatrons int `json:"total_patrons"`
	BooksIssued  int `json:"books_issued"`
	OverdueBooks int `json:"overdue_books"`
}

type OverdueRow struct {
	BorrowingID int64     `json:"borrowing_id"`
	BookTitle   string    `json:"book_title"`
	BookAuthor  string    `json:"book_author"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	DueDate     time.Time `json:"due_date"`
}

type Repo interface {
	Counts(ctx context.Context, now time.Time) (*Counts, error)
	ListOverdue(ctx context.Context, now time.Time) ([]OverdueRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Counts(ctx context.Context, now time.Time) (*Counts, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM books)                                           AS total_books,
			(SELECT COUNT(*) FROM users WHERE role = 'PATRON')                     AS total_patrons,
			(SELECT COUNT(*) FROM borrowings WHERE status = 'ACTIVE')              AS books_issued,
			(SELECT COUNT(*) FROM borrowings WHERE status = 'ACTIVE' AND due_date < $1) AS overdue_books`
	c := &Counts{}
	err := r.db.QueryRowContext(ctx, q, now).Scan(
		&c.TotalBooks, &c.TotalPatrons, &c.BooksIssued, &c.OverdueBooks,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) ListOverdue(ctx context.Context, now time.Time) ([]OverdueRow, error) {
	const q = `
		SELECT br.id, b.title, b.author, u.name, u.email, br.due_date
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.status = 'ACTIVE'
		AND br.due_date < $1
		ORDER BY br.due_date, br.id`
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueRow
	for rows.Next() {
		var o OverdueRow
		if err := rows.Scan(&o.BorrowingID, &o.BookTitle, &o.BookAuthor,
			&o.UserName, &o.UserEmail, &o.DueDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
