package circulation

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"librarydesk/model"
	borrowrepo "librarydesk/repository/borrowing"
	"librarydesk/util/database"
)

// Lending policy. FinePerDay is in currency units per started overdue day.
const (
	LoanDays    = 14
	MaxRenewals = 2
	FinePerDay  = 0.50
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrNoCopies        ErrCode = "NO_COPIES"
	ErrAlreadyBorrowed ErrCode = "ALREADY_BORROWED"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
	ErrRenewLimit      ErrCode = "RENEW_LIMIT"
	ErrOverdue         ErrCode = "OVERDUE"
	ErrUnpaidFine      ErrCode = "UNPAID_FINE"
	ErrForbidden       ErrCode = "FORBIDDEN"
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

// Caller is the authenticated identity every operation runs as.
type Caller struct {
	UserID int64
	Role   model.Role
}

func (c Caller) staff() bool { return c.Role.AtLeast(model.RoleLibrarian) }

type ReturnResult struct {
	Borrowing *model.Borrowing `json:"borrowing"`
	Fine      *model.Fine      `json:"fine,omitempty"`
}

// Row shapes come straight from the repository.
type ActiveRow = borrowrepo.ActiveRow
type HistoryRow = borrowrepo.HistoryRow

type Repo interface {
	GetBookCopiesForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (available, total int, err error)
	DecrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error
	IncrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error

	UserExists(ctx context.Context, tx *sql.Tx, userID int64) (bool, error)
	HasActiveBorrowing(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, due time.Time) (*model.Borrowing, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, borrowingID int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, borrowingID int64, at time.Time) error
	Renew(ctx context.Context, tx *sql.Tx, borrowingID int64, newDue time.Time, newCount int) error

	InsertFine(ctx context.Context, tx *sql.Tx, borrowingID, userID int64, amount float64) (*model.Fine, error)
	HasUnpaidFine(ctx context.Context, tx *sql.Tx, borrowingID int64) (bool, error)

	ListActive(ctx context.Context) ([]ActiveRow, error)
	ListByUser(ctx context.Context, userID int64) ([]HistoryRow, error)
}

type Service interface {
	// Borrow lends one copy to forUserID (0 = the caller). Only staff may
	// borrow on behalf of someone else.
	Borrow(ctx context.Context, caller Caller, bookID, forUserID int64) (*model.Borrowing, error)

	// Return closes an active borrowing, frees the copy and fines overdue
	// returns. Staff only.
	Return(ctx context.Context, caller Caller, borrowingID int64) (*ReturnResult, error)

	// Renew extends an active borrowing by one loan period.
	Renew(ctx context.Context, caller Caller, borrowingID int64) (*model.Borrowing, error)

	ListActive(ctx context.Context) ([]ActiveRow, error)
	History(ctx context.Context, userID int64) ([]HistoryRow, error)
}

// ----- Service implementation -----

type service struct {
	db  database.TxRunner
	r   Repo
	now func() time.Time
}

func New(db database.TxRunner, r Repo) Service {
	return &service{db: db, r: r, now: time.Now}
}

func (s *service) Borrow(ctx context.Context, caller Caller, bookID, forUserID int64) (*model.Borrowing, error) {
	target := caller.UserID
	if forUserID != 0 && forUserID != caller.UserID {
		if !caller.staff() {
			return nil, makeErr(ErrForbidden)
		}
		target = forUserID
	}

	var out *model.Borrowing
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		available, _, err := s.r.GetBookCopiesForUpdate(ctx, tx, bookID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrBookNotFound)
		}
		if err != nil {
			return err
		}
		if available < 1 {
			return makeErr(ErrNoCopies)
		}

		// The caller is known from auth; an on-behalf target is not.
		if target != caller.UserID {
			exists, err := s.r.UserExists(ctx, tx, target)
			if err != nil {
				return err
			}
			if !exists {
				return makeErr(ErrUserNotFound)
			}
		}

		dup, err := s.r.HasActiveBorrowing(ctx, tx, target, bookID)
		if err != nil {
			return err
		}
		if dup {
			return makeErr(ErrAlreadyBorrowed)
		}

		due := s.now().Add(LoanDays * 24 * time.Hour)
		b, err := s.r.Insert(ctx, tx, target, bookID, due)
		if err != nil {
			return err
		}
		if err := s.r.DecrementAvailable(ctx, tx, bookID); err != nil {
			if errors.Is(err, borrowrepo.ErrNoEffect) {
				return makeErr(ErrNoCopies)
			}
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Return(ctx context.Context, caller Caller, borrowingID int64) (*ReturnResult, error) {
	if !caller.staff() {
		return nil, makeErr(ErrForbidden)
	}

	var out ReturnResult
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.r.GetForUpdate(ctx, tx, borrowingID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		if err != nil {
			return err
		}
		if b.Status != model.BorrowActive {
			return makeErr(ErrAlreadyReturned)
		}

		now := s.now()
		if err := s.r.MarkReturned(ctx, tx, b.ID, now); err != nil {
			return err
		}
		// A rescale may have shrunk total_copies while this copy was out;
		// availability is then already at the cap and stays there.
		if err := s.r.IncrementAvailable(ctx, tx, b.BookID); err != nil && !errors.Is(err, borrowrepo.ErrNoEffect) {
			return err
		}

		b.Status = model.BorrowReturned
		b.ReturnedAt = &now
		out.Borrowing = b

		if now.After(b.DueDate) {
			days := overdueDays(b.DueDate, now)
			fine, err := s.r.InsertFine(ctx, tx, b.ID, b.UserID, float64(days)*FinePerDay)
			if err != nil {
				return err
			}
			out.Fine = fine
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Renew(ctx context.Context, caller Caller, borrowingID int64) (*model.Borrowing, error) {
	var out *model.Borrowing
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.r.GetForUpdate(ctx, tx, borrowingID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		if err != nil {
			return err
		}
		if b.UserID != caller.UserID && !caller.staff() {
			return makeErr(ErrForbidden)
		}
		if b.Status != model.BorrowActive {
			return makeErr(ErrAlreadyReturned)
		}
		if b.RenewalCount >= MaxRenewals {
			return makeErr(ErrRenewLimit)
		}
		if s.now().After(b.DueDate) {
			return makeErr(ErrOverdue)
		}
		unpaid, err := s.r.HasUnpaidFine(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if unpaid {
			return makeErr(ErrUnpaidFine)
		}

		newDue := b.DueDate.Add(LoanDays * 24 * time.Hour)
		if err := s.r.Renew(ctx, tx, b.ID, newDue, b.RenewalCount+1); err != nil {
			return err
		}
		b.DueDate = newDue
		b.RenewalCount++
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ListActive(ctx context.Context) ([]ActiveRow, error) {
	return s.r.ListActive(ctx)
}

func (s *service) History(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return s.r.ListByUser(ctx, userID)
}

// overdueDays counts started days past due.
func overdueDays(due, now time.Time) int {
	return int(math.Ceil(now.Sub(due).Hours() / 24))
}
