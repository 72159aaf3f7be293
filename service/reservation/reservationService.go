package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"librarydesk/model"
	reservationrepo "librarydesk/repository/reservation"
	"librarydesk/service/circulation"
	"librarydesk/util/database"
)

// Pending requests expire after this many days.
const RequestTTLDays = 7

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound     ErrCode = "BOOK_NOT_FOUND"
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrNotPending       ErrCode = "NOT_PENDING"
	ErrNoCopies         ErrCode = "NO_COPIES"
	ErrDuplicateRequest ErrCode = "DUPLICATE_REQUEST"
	ErrAlreadyBorrowed  ErrCode = "ALREADY_BORROWED"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Row = reservationrepo.Row

type Approved struct {
	Reservation *model.Reservation `json:"reservation"`
	Borrowing   *model.Borrowing   `json:"borrowing"`
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

// CircRepo is the slice of the borrowing repository the approval path needs.
type CircRepo interface {
	GetBookCopiesForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (available, total int, err error)
	DecrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error
	HasActiveBorrowing(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, due time.Time) (*model.Borrowing, error)
}

// BookRepo checks request targets exist.
type BookRepo interface {
	ByID(ctx context.Context, id int64) (*model.Book, error)
}

type Service interface {
	// Create files a borrow request for the caller. One open request per
	// (user, book), and not while the book is already borrowed.
	Create(ctx context.Context, userID, bookID int64, notes *string) (*model.Reservation, error)

	// Approve fulfills a pending request: borrowing created, copy taken,
	// request closed. All inside one transaction.
	Approve(ctx context.Context, approverID, reservationID int64, notes *string) (*Approved, error)

	// Reject closes a pending request with no side effects.
	Reject(ctx context.Context, approverID, reservationID int64, notes *string) (*model.Reservation, error)

	// ExpireStale marks pending requests past their expiry EXPIRED and
	// reports how many changed.
	ExpireStale(ctx context.Context) (int64, error)

	ListAll(ctx context.Context) ([]Row, error)
	ListByUser(ctx context.Context, userID int64) ([]Row, error)
}

// ----- Service implementation -----

type service struct {
	db    database.TxRunner
	r     Repo
	c     CircRepo
	books BookRepo
	now   func() time.Time
}

func New(db database.TxRunner, r Repo, c CircRepo, books BookRepo) Service {
	return &service{db: db, r: r, c: c, books: books, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID, bookID int64, notes *string) (*model.Reservation, error) {
	if _, err := s.books.ByID(ctx, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}

	open, err := s.r.HasOpen(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, makeErr(ErrDuplicateRequest)
	}

	active, err := s.r.HasActiveBorrowing(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, makeErr(ErrAlreadyBorrowed)
	}

	expiresAt := s.now().Add(RequestTTLDays * 24 * time.Hour)
	return s.r.Insert(ctx, userID, bookID, notes, expiresAt)
}

func (s *service) Approve(ctx context.Context, approverID, reservationID int64, notes *string) (*Approved, error) {
	var out Approved
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		rs, err := s.r.GetForUpdate(ctx, tx, reservationID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		if err != nil {
			return err
		}
		if rs.Status != model.ReservationPending {
			return makeErr(ErrNotPending)
		}

		// Availability may have changed since the request was filed.
		available, _, err := s.c.GetBookCopiesForUpdate(ctx, tx, rs.BookID)
		if err != nil {
			return err
		}
		if available < 1 {
			return makeErr(ErrNoCopies)
		}

		// The requester may have borrowed the book directly in the
		// meantime; a second active loan of the same book is not allowed.
		active, err := s.c.HasActiveBorrowing(ctx, tx, rs.UserID, rs.BookID)
		if err != nil {
			return err
		}
		if active {
			return makeErr(ErrAlreadyBorrowed)
		}

		now := s.now()
		due := now.Add(circulation.LoanDays * 24 * time.Hour)
		b, err := s.c.Insert(ctx, tx, rs.UserID, rs.BookID, due)
		if err != nil {
			return err
		}
		if err := s.c.DecrementAvailable(ctx, tx, rs.BookID); err != nil {
			return err
		}
		if err := s.r.MarkFulfilled(ctx, tx, rs.ID, approverID, now, notes); err != nil {
			return err
		}

		rs.Status = model.ReservationFulfilled
		rs.ApprovedBy = &approverID
		rs.ApprovedAt = &now
		out = Approved{Reservation: rs, Borrowing: b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Reject(ctx context.Context, approverID, reservationID int64, notes *string) (*model.Reservation, error) {
	var out *model.Reservation
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		rs, err := s.r.GetForUpdate(ctx, tx, reservationID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		if err != nil {
			return err
		}
		if rs.Status != model.ReservationPending {
			return makeErr(ErrNotPending)
		}

		now := s.now()
		if err := s.r.MarkRejected(ctx, tx, rs.ID, approverID, now, notes); err != nil {
			return err
		}
		rs.Status = model.ReservationRejected
		rs.ApprovedBy = &approverID
		rs.ApprovedAt = &now
		out = rs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ExpireStale(ctx context.Context) (int64, error) {
	return s.r.ExpireStale(ctx, s.now())
}

func (s *service) ListAll(ctx context.Context) ([]Row, error) {
	return s.r.ListAll(ctx)
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]Row, error) {
	return s.r.ListByUser(ctx, userID)
}
