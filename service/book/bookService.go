package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarydesk/model"
	bookrepo "librarydesk/repository/book"
	openlibraryrepo "librarydesk/repository/openlibrary"
)

type ErrCode string

const (
	ErrNotFound    ErrCode = "NOT_FOUND"
	ErrISBNTaken   ErrCode = "ISBN_TAKEN"
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

type SaveReq struct {
	Title         string
	Author        string
	ISBN          string
	Category      string
	Publisher     *string
	PublishedYear *int
	Description   *string
	Location      *string
	TotalCopies   int
}

// Detail bundles the book with its recent circulation activity.
type Detail struct {
	Book       *model.Book               `json:"book"`
	Borrowings []bookrepo.BorrowSummary  `json:"borrowings"`
	Requests   []bookrepo.RequestSummary `json:"requests"`
}

type Service interface {
	Create(ctx context.Context, req SaveReq) (*model.Book, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, f bookrepo.SearchFilter) ([]model.Book, error)

	// Update rescales available copies when the total changes, clamping at
	// zero so currently borrowed copies stay accounted for.
	Update(ctx context.Context, id int64, req SaveReq) (*model.Book, error)

	// Delete refuses while the book still has active borrowings or pending
	// reservation requests.
	Delete(ctx context.Context, id int64) error

	Lookup(ctx context.Context, isbn string) (*openlibraryrepo.BookMeta, error)
}

type service struct {
	r  bookrepo.Repo
	ol openlibraryrepo.Repo
}

func New(r bookrepo.Repo, ol openlibraryrepo.Repo) Service {
	return &service{r: r, ol: ol}
}

func (s *service) Create(ctx context.Context, req SaveReq) (*model.Book, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}
	b := &model.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            strings.TrimSpace(req.ISBN),
		Category:        strings.TrimSpace(req.Category),
		Publisher:       req.Publisher,
		PublishedYear:   req.PublishedYear,
		Description:     req.Description,
		Location:        req.Location,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	}
	if err := s.r.Create(ctx, b); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrISBNTaken)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Detail, error) {
	b, err := s.r.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	borrows, err := s.r.RecentBorrowings(ctx, id)
	if err != nil {
		return nil, err
	}
	requests, err := s.r.RecentRequests(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Book: b, Borrowings: borrows, Requests: requests}, nil
}

func (s *service) List(ctx context.Context, f bookrepo.SearchFilter) ([]model.Book, error) {
	return s.r.List(ctx, f)
}

func (s *service) Update(ctx context.Context, id int64, req SaveReq) (*model.Book, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}
	b, err := s.r.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ISBN) != b.ISBN {
		taken, err := s.r.ISBNTaken(ctx, strings.TrimSpace(req.ISBN), id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, makeErr(ErrISBNTaken)
		}
	}

	borrowed := b.TotalCopies - b.AvailableCopies
	b.Title = strings.TrimSpace(req.Title)
	b.Author = strings.TrimSpace(req.Author)
	b.ISBN = strings.TrimSpace(req.ISBN)
	b.Category = strings.TrimSpace(req.Category)
	b.Publisher = req.Publisher
	b.PublishedYear = req.PublishedYear
	b.Description = req.Description
	b.Location = req.Location
	b.TotalCopies = req.TotalCopies
	b.AvailableCopies = req.TotalCopies - borrowed
	if b.AvailableCopies < 0 {
		b.AvailableCopies = 0
	}

	if err := s.r.Update(ctx, b); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrISBNTaken)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	active, err := s.r.ActiveBorrowCount(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return makeErr(ErrHasActivity)
	}
	open, err := s.r.OpenReservationCount(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
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

func (s *service) Lookup(ctx context.Context, isbn string) (*openlibraryrepo.BookMeta, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, makeErr(ErrBadInput)
	}
	meta, err := s.ol.LookupISBN(isbn)
	if errors.Is(err, openlibraryrepo.ErrNotFound) {
		return nil, makeErr(ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func validateSave(req SaveReq) error {
	if strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Author) == "" ||
		strings.TrimSpace(req.ISBN) == "" ||
		req.TotalCopies < 0 {
		return makeErr(ErrBadInput)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
