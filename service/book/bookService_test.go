package booksvc

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"librarydesk/model"
	bookrepo "librarydesk/repository/book"
	openlibraryrepo "librarydesk/repository/openlibrary"
)

type mockRepo struct {
	createFn    func(ctx context.Context, b *model.Book) error
	byIDFn      func(ctx context.Context, id int64) (*model.Book, error)
	listFn      func(ctx context.Context, f bookrepo.SearchFilter) ([]model.Book, error)
	updateFn    func(ctx context.Context, b *model.Book) error
	deleteFn    func(ctx context.Context, id int64) error
	isbnTakenFn func(ctx context.Context, isbn string, excludeID int64) (bool, error)
	activeFn    func(ctx context.Context, bookID int64) (int, error)
	openFn      func(ctx context.Context, bookID int64) (int, error)
	deleted     bool
}

func (m *mockRepo) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *mockRepo) ByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.byIDFn(ctx, id)
}
func (m *mockRepo) List(ctx context.Context, f bookrepo.SearchFilter) ([]model.Book, error) {
	return m.listFn(ctx, f)
}
func (m *mockRepo) Update(ctx context.Context, b *model.Book) error { return m.updateFn(ctx, b) }
func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = true
	return m.deleteFn(ctx, id)
}
func (m *mockRepo) ISBNTaken(ctx context.Context, isbn string, excludeID int64) (bool, error) {
	return m.isbnTakenFn(ctx, isbn, excludeID)
}
func (m *mockRepo) ActiveBorrowCount(ctx context.Context, bookID int64) (int, error) {
	return m.activeFn(ctx, bookID)
}
func (m *mockRepo) OpenReservationCount(ctx context.Context, bookID int64) (int, error) {
	return m.openFn(ctx, bookID)
}
func (m *mockRepo) RecentBorrowings(ctx context.Context, bookID int64) ([]bookrepo.BorrowSummary, error) {
	return nil, nil
}
func (m *mockRepo) RecentRequests(ctx context.Context, bookID int64) ([]bookrepo.RequestSummary, error) {
	return nil, nil
}

type mockLookup struct {
	fn func(isbn string) (*openlibraryrepo.BookMeta, error)
}

func (m *mockLookup) LookupISBN(isbn string) (*openlibraryrepo.BookMeta, error) {
	return m.fn(isbn)
}

func TestCreate_AvailableEqualsTotal(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, b *model.Book) error {
			b.ID = 1
			return nil
		},
	}
	svc := New(m, nil)

	b, err := svc.Create(context.Background(), SaveReq{
		Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719",
		Category: "SF", TotalCopies: 4,
	})
	require.NoError(t, err)
	require.Equal(t, 4, b.TotalCopies)
	require.Equal(t, 4, b.AvailableCopies)
}

func TestCreate_DuplicateISBN(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, b *model.Book) error {
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
		},
	}
	svc := New(m, nil)
	_, err := svc.Create(context.Background(), SaveReq{
		Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 1,
	})
	require.Equal(t, ErrISBNTaken, Code(err))
}

func TestCreate_BadInput(t *testing.T) {
	svc := New(&mockRepo{}, nil)
	_, err := svc.Create(context.Background(), SaveReq{Title: " ", Author: "x", ISBN: "1"})
	require.Equal(t, ErrBadInput, Code(err))

	_, err = svc.Create(context.Background(), SaveReq{
		Title: "x", Author: "x", ISBN: "1", TotalCopies: -1,
	})
	require.Equal(t, ErrBadInput, Code(err))
}

func TestUpdate_RescalesAvailable(t *testing.T) {
	var saved *model.Book
	m := &mockRepo{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			// 3 of 5 copies out on loan.
			return &model.Book{
				ID: id, Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719",
				TotalCopies: 5, AvailableCopies: 2,
			}, nil
		},
		updateFn: func(ctx context.Context, b *model.Book) error {
			saved = b
			return nil
		},
	}
	svc := New(m, nil)

	b, err := svc.Update(context.Background(), 1, SaveReq{
		Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Equal(t, 10, b.TotalCopies)
	require.Equal(t, 7, b.AvailableCopies)
}

func TestUpdate_ClampsAvailableAtZero(t *testing.T) {
	m := &mockRepo{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{
				ID: id, Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719",
				TotalCopies: 5, AvailableCopies: 2,
			}, nil
		},
		updateFn: func(ctx context.Context, b *model.Book) error { return nil },
	}
	svc := New(m, nil)

	// 3 copies are out; shrinking total below 3 cannot go negative.
	b, err := svc.Update(context.Background(), 1, SaveReq{
		Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 2, b.TotalCopies)
	require.Equal(t, 0, b.AvailableCopies)
}

func TestUpdate_ISBNTakenByOther(t *testing.T) {
	m := &mockRepo{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id, Title: "Dune", Author: "FH", ISBN: "111", TotalCopies: 1, AvailableCopies: 1}, nil
		},
		isbnTakenFn: func(ctx context.Context, isbn string, excludeID int64) (bool, error) {
			require.Equal(t, "222", isbn)
			return true, nil
		},
	}
	svc := New(m, nil)
	_, err := svc.Update(context.Background(), 1, SaveReq{
		Title: "Dune", Author: "FH", ISBN: "222", TotalCopies: 1,
	})
	require.Equal(t, ErrISBNTaken, Code(err))
}

func TestUpdate_NotFound(t *testing.T) {
	m := &mockRepo{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := New(m, nil)
	_, err := svc.Update(context.Background(), 99, SaveReq{
		Title: "x", Author: "x", ISBN: "1", TotalCopies: 1,
	})
	require.Equal(t, ErrNotFound, Code(err))
}

func TestDelete_BlockedByActiveBorrowing(t *testing.T) {
	m := &mockRepo{
		activeFn: func(ctx context.Context, bookID int64) (int, error) { return 2, nil },
		openFn:   func(ctx context.Context, bookID int64) (int, error) { return 0, nil },
		deleteFn: func(ctx context.Context, id int64) error { return nil },
	}
	svc := New(m, nil)
	require.Equal(t, ErrHasActivity, Code(svc.Delete(context.Background(), 1)))
	require.False(t, m.deleted)
}

func TestDelete_BlockedByPendingRequest(t *testing.T) {
	m := &mockRepo{
		activeFn: func(ctx context.Context, bookID int64) (int, error) { return 0, nil },
		openFn:   func(ctx context.Context, bookID int64) (int, error) { return 1, nil },
		deleteFn: func(ctx context.Context, id int64) error { return nil },
	}
	svc := New(m, nil)
	require.Equal(t, ErrHasActivity, Code(svc.Delete(context.Background(), 1)))
	require.False(t, m.deleted)
}

func TestDelete_Success(t *testing.T) {
	m := &mockRepo{
		activeFn: func(ctx context.Context, bookID int64) (int, error) { return 0, nil },
		openFn:   func(ctx context.Context, bookID int64) (int, error) { return 0, nil },
		deleteFn: func(ctx context.Context, id int64) error { return nil },
	}
	svc := New(m, nil)
	require.NoError(t, svc.Delete(context.Background(), 1))
	require.True(t, m.deleted)
}

func TestLookup_NotFound(t *testing.T) {
	svc := New(&mockRepo{}, &mockLookup{
		fn: func(isbn string) (*openlibraryrepo.BookMeta, error) {
			return nil, openlibraryrepo.ErrNotFound
		},
	})
	_, err := svc.Lookup(context.Background(), "0000000000")
	require.Equal(t, ErrNotFound, Code(err))
}

func TestLookup_Success(t *testing.T) {
	svc := New(&mockRepo{}, &mockLookup{
		fn: func(isbn string) (*openlibraryrepo.BookMeta, error) {
			require.Equal(t, "9780441172719", isbn)
			return &openlibraryrepo.BookMeta{Title: "Dune", Author: "Frank Herbert"}, nil
		},
	})
	meta, err := svc.Lookup(context.Background(), " 9780441172719 ")
	require.NoError(t, err)
	require.Equal(t, "Dune", meta.Title)
}
