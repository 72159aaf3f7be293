package finesvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"librarydesk/model"
	finerepo "librarydesk/repository/fine"
	"librarydesk/service/circulation"
	"librarydesk/util/database"
)

type ErrCode string

const (
	ErrNotFound    ErrCode = "NOT_FOUND"
	ErrAlreadyPaid ErrCode = "ALREADY_PAID"
	ErrForbidden   ErrCode = "FORBIDDEN"
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

type Repo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error
	ListAll(ctx context.Context) ([]finerepo.Row, error)
	ListByUser(ctx context.Context, userID int64) ([]finerepo.Row, error)
}

type Service interface {
	// List returns every fine for staff callers, own fines for patrons.
	List(ctx context.Context, caller circulation.Caller) ([]finerepo.Row, error)

	// Pay settles a fine. Patrons may only pay their own.
	Pay(ctx context.Context, caller circulation.Caller, fineID int64) (*model.Fine, error)
}

type service struct {
	db  database.TxRunner
	r   Repo
	now func() time.Time
}

func New(db database.TxRunner, r Repo) Service {
	return &service{db: db, r: r, now: time.Now}
}

func (s *service) List(ctx context.Context, caller circulation.Caller) ([]finerepo.Row, error) {
	if caller.Role.AtLeast(model.RoleLibrarian) {
		return s.r.ListAll(ctx)
	}
	return s.r.ListByUser(ctx, caller.UserID)
}

func (s *service) Pay(ctx context.Context, caller circulation.Caller, fineID int64) (*model.Fine, error) {
	var out *model.Fine
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		f, err := s.r.GetForUpdate(ctx, tx, fineID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		if err != nil {
			return err
		}
		if f.UserID != caller.UserID && !caller.Role.AtLeast(model.RoleLibrarian) {
			return makeErr(ErrForbidden)
		}
		if f.IsPaid {
			return makeErr(ErrAlreadyPaid)
		}

		at := s.now().UTC()
		if err := s.r.MarkPaid(ctx, tx, fineID, at); err != nil {
			return err
		}
		f.IsPaid = true
		f.PaidAt = &at
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
