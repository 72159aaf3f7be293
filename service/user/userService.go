package usersvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarydesk/model"
	userrepo "librarydesk/repository/user"
	"librarydesk/util/hash"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound    ErrCode = "NOT_FOUND"
	ErrEmailTaken  ErrCode = "EMAIL_TAKEN"
	ErrInvalidRole ErrCode = "INVALID_ROLE"
	ErrHasActivity ErrCode = "HAS_ACTIVITY"
	ErrBadInput    ErrCode = "BAD_INPUT"
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

type CreateReq struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Phone    *string
	Address  *string
}

type UpdateReq struct {
	Name    string
	Email   string
	Role    model.Role
	Phone   *string
	Address *string
}

type Row = userrepo.Row

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]Row, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id int64) error
	ActiveBorrowCount(ctx context.Context, userID int64) (int, error)
	UnpaidFineCount(ctx context.Context, userID int64) (int, error)
}

type Service interface {
	Create(ctx context.Context, req CreateReq) (*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]Row, error)
	Update(ctx context.Context, id int64, req UpdateReq) (*model.User, error)

	// Delete refuses while the user still has active borrowings or unpaid
	// fines.
	Delete(ctx context.Context, id int64) error
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, req CreateReq) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, makeErr(ErrInvalidRole)
	}
	if strings.TrimSpace(req.Name) == "" || len(req.Password) < 6 {
		return nil, makeErr(ErrBadInput)
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashed,
		Role:         req.Role,
		Phone:        req.Phone,
		Address:      req.Address,
	}
	if err := s.r.Create(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrEmailTaken)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.r.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrNotFound)
	}
	return u, err
}

func (s *service) List(ctx context.Context) ([]Row, error) {
	return s.r.List(ctx)
}

func (s *service) Update(ctx context.Context, id int64, req UpdateReq) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, makeErr(ErrInvalidRole)
	}
	u, err := s.r.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	u.Name = strings.TrimSpace(req.Name)
	u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	u.Role = req.Role
	u.Phone = req.Phone
	u.Address = req.Address

	if err := s.r.Update(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrEmailTaken)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	active, err := s.r.ActiveBorrowCount(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return makeErr(ErrHasActivity)
	}
	unpaid, err := s.r.UnpaidFineCount(ctx, id)
	if err != nil {
		return err
	}
	if unpaid > 0 {
		return makeErr(ErrHasActivity)
	}

	if err := s.r.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
