package circulation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"librarydesk/model"
	borrowrepo "librarydesk/repository/borrowing"
)

// stubTx satisfies database.TxRunner without a database.
type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type bookState struct{ available, total int }

// fakeRepo keeps copy counts and borrowings in memory, with the same guards
// the SQL enforces.
type fakeRepo struct {
	books      map[int64]*bookState
	borrowings map[int64]*model.Borrowing
	fines      []*model.Fine
	unpaid     map[int64]bool
	users      map[int64]bool
	nextID     int64
}

var _ Repo = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		books:      map[int64]*bookState{},
		borrowings: map[int64]*model.Borrowing{},
		unpaid:     map[int64]bool{},
		users:      map[int64]bool{1: true, 2: true, 3: true, 9: true},
	}
}

func (f *fakeRepo) GetBookCopiesForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (int, int, error) {
	b, ok := f.books[bookID]
	if !ok {
		return 0, 0, sql.ErrNoRows
	}
	return b.available, b.total, nil
}

func (f *fakeRepo) DecrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error {
	b, ok := f.books[bookID]
	if !ok || b.available < 1 {
		return borrowrepo.ErrNoEffect
	}
	b.available--
	return nil
}

func (f *fakeRepo) IncrementAvailable(ctx context.Context, tx *sql.Tx, bookID int64) error {
	b, ok := f.books[bookID]
	if !ok || b.available >= b.total {
		return borrowrepo.ErrNoEffect
	}
	b.available++
	return nil
}

func (f *fakeRepo) UserExists(ctx context.Context, tx *sql.Tx, userID int64) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) HasActiveBorrowing(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	for _, b := range f.borrowings {
		if b.UserID == userID && b.BookID == bookID && b.Status == model.BorrowActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, due time.Time) (*model.Borrowing, error) {
	f.nextID++
	b := &model.Borrowing{
		ID:      f.nextID,
		UserID:  userID,
		BookID:  bookID,
		Status:  model.BorrowActive,
		DueDate: due,
	}
	f.borrowings[b.ID] = b
	return b, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx *sql.Tx, borrowingID int64) (*model.Borrowing, error) {
	b, ok := f.borrowings[borrowingID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) MarkReturned(ctx context.Context, tx *sql.Tx, borrowingID int64, at time.Time) error {
	b := f.borrowings[borrowingID]
	b.Status = model.BorrowReturned
	b.ReturnedAt = &at
	return nil
}

func (f *fakeRepo) Renew(ctx context.Context, tx *sql.Tx, borrowingID int64, newDue time.Time, newCount int) error {
	b := f.borrowings[borrowingID]
	b.DueDate = newDue
	b.RenewalCount = newCount
	return nil
}

func (f *fakeRepo) InsertFine(ctx context.Context, tx *sql.Tx, borrowingID, userID int64, amount float64) (*model.Fine, error) {
	f.nextID++
	fine := &model.Fine{ID: f.nextID, BorrowingID: borrowingID, UserID: userID, Amount: amount}
	f.fines = append(f.fines, fine)
	return fine, nil
}

func (f *fakeRepo) HasUnpaidFine(ctx context.Context, tx *sql.Tx, borrowingID int64) (bool, error) {
	return f.unpaid[borrowingID], nil
}

func (f *fakeRepo) ListActive(ctx context.Context) ([]ActiveRow, error) { return nil, nil }
func (f *fakeRepo) ListByUser(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return nil, nil
}

func newService(t *testing.T, r Repo, at time.Time) *service {
	t.Helper()
	svc := New(stubTx{}, r).(*service)
	svc.now = func() time.Time { return at }
	return svc
}

var (
	patron      = Caller{UserID: 1, Role: model.RolePatron}
	otherPatron = Caller{UserID: 2, Role: model.RolePatron}
	librarian   = Caller{UserID: 9, Role: model.RoleLibrarian}
)

// --- borrow ---

func TestBorrow_Success(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.books[10] = &bookState{available: 2, total: 3}
	svc := newService(t, f, now)

	b, err := svc.Borrow(ctx, patron, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), b.UserID)
	require.Equal(t, model.BorrowActive, b.Status)
	require.Equal(t, 0, b.RenewalCount)
	require.Equal(t, now.Add(14*24*time.Hour), b.DueDate)
	require.Equal(t, 1, f.books[10].available)
}

func TestBorrow_BookNotFound(t *testing.T) {
	svc := newService(t, newFakeRepo(), time.Now())
	_, err := svc.Borrow(context.Background(), patron, 404, 0)
	require.Error(t, err)
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestBorrow_NoCopies(t *testing.T) {
	f := newFakeRepo()
	f.books[10] = &bookState{available: 0, total: 3}
	svc := newService(t, f, time.Now())

	_, err := svc.Borrow(context.Background(), patron, 10, 0)
	require.Error(t, err)
	require.Equal(t, ErrNoCopies, Code(err))
	require.Empty(t, f.borrowings, "no borrowing row may exist")
	require.Equal(t, 0, f.books[10].available)
}

func TestBorrow_DuplicateActive(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.books[10] = &bookState{available: 2, total: 2}
	svc := newService(t, f, time.Now())

	_, err := svc.Borrow(ctx, patron, 10, 0)
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, patron, 10, 0)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyBorrowed, Code(err))
	require.Equal(t, 1, f.books[10].available)
}

func TestBorrow_OnBehalf(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	svc := newService(t, f, time.Now())

	// patrons may not borrow for someone else
	_, err := svc.Borrow(ctx, patron, 10, otherPatron.UserID)
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
	require.Equal(t, 1, f.books[10].available)

	// staff may
	b, err := svc.Borrow(ctx, librarian, 10, otherPatron.UserID)
	require.NoError(t, err)
	require.Equal(t, otherPatron.UserID, b.UserID)
	require.Equal(t, 0, f.books[10].available)
}

func TestBorrow_OnBehalfUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	svc := newService(t, f, time.Now())

	_, err := svc.Borrow(ctx, librarian, 10, 404)
	require.Error(t, err)
	require.Equal(t, ErrUserNotFound, Code(err))
	require.Empty(t, f.borrowings)
	require.Equal(t, 1, f.books[10].available)
}

// --- return ---

func TestReturn_Success(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	svc := newService(t, f, now)

	b, err := svc.Borrow(ctx, patron, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 0, f.books[10].available)

	res, err := svc.Return(ctx, librarian, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.BorrowReturned, res.Borrowing.Status)
	require.NotNil(t, res.Borrowing.ReturnedAt)
	require.Nil(t, res.Fine, "on-time return must not fine")
	require.Equal(t, 1, f.books[10].available)
}

func TestReturn_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	svc := newService(t, f, time.Now())

	b, err := svc.Borrow(ctx, patron, 10, 0)
	require.NoError(t, err)

	_, err = svc.Return(ctx, librarian, b.ID)
	require.NoError(t, err)

	_, err = svc.Return(ctx, librarian, b.ID)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyReturned, Code(err))
	require.Equal(t, 1, f.books[10].available, "copies incremented exactly once")
}

// Shrinking total_copies while a copy is out leaves availability at the
// cap; the return must still close the borrowing.
func TestReturn_AfterRescaleClamp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.books[10] = &bookState{available: 0, total: 0}
	f.borrowings[77] = &model.Borrowing{
		ID: 77, UserID: 1, BookID: 10, Status: model.BorrowActive,
		DueDate: now.Add(24 * time.Hour),
	}
	svc := newService(t, f, now)

	res, err := svc.Return(ctx, librarian, 77)
	require.NoError(t, err)
	require.Equal(t, model.BorrowReturned, res.Borrowing.Status)
	require.Equal(t, 0, f.books[10].available)
}

func TestReturn_PatronForbidden(t *testing.T) {
	f := newFakeRepo()
	svc := newService(t, f, time.Now())

	_, err := svc.Return(context.Background(), patron, 1)
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
}

func TestReturn_NotFound(t *testing.T) {
	svc := newService(t, newFakeRepo(), time.Now())
	_, err := svc.Return(context.Background(), librarian, 404)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestReturn_OverdueCreatesFine(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	f.borrowings[77] = &model.Borrowing{
		ID:      77,
		UserID:  patron.UserID,
		BookID:  10,
		Status:  model.BorrowActive,
		DueDate: now.Add(-5 * 24 * time.Hour),
	}
	f.books[10].available = 0
	svc := newService(t, f, now)

	res, err := svc.Return(ctx, librarian, 77)
	require.NoError(t, err)
	require.NotNil(t, res.Fine)
	require.Equal(t, 2.50, res.Fine.Amount)
	require.False(t, res.Fine.IsPaid)
	require.Equal(t, patron.UserID, res.Fine.UserID)
}

func TestReturn_PartialDayRoundsUp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.books[10] = &bookState{available: 0, total: 1}
	f.borrowings[77] = &model.Borrowing{
		ID: 77, UserID: 1, BookID: 10, Status: model.BorrowActive,
		DueDate: now.Add(-26 * time.Hour),
	}
	svc := newService(t, f, now)

	res, err := svc.Return(ctx, librarian, 77)
	require.NoError(t, err)
	require.NotNil(t, res.Fine)
	require.Equal(t, 1.00, res.Fine.Amount, "26h overdue counts as 2 started days")
}

// --- renew ---

func TestRenew_LimitAfterTwo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	svc := newService(t, f, now)

	b, err := svc.Borrow(ctx, patron, 10, 0)
	require.NoError(t, err)
	due0 := b.DueDate

	b1, err := svc.Renew(ctx, patron, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, b1.RenewalCount)
	require.Equal(t, due0.Add(14*24*time.Hour), b1.DueDate)

	b2, err := svc.Renew(ctx, patron, b.ID)
	require.NoError(t, err)
	require.Equal(t, 2, b2.RenewalCount)

	_, err = svc.Renew(ctx, patron, b.ID)
	require.Error(t, err)
	require.Equal(t, ErrRenewLimit, Code(err))
}

func TestRenew_OtherPatronForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.books[10] = &bookState{available: 1, total: 1}
	svc := newService(t, f, time.Now())

	b, err := svc.Borrow(ctx, patron, 10, 0)
	require.NoError(t, err)

	_, err = svc.Renew(ctx, otherPatron, b.ID)
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))

	// staff may renew anyone's
	_, err = svc.Renew(ctx, librarian, b.ID)
	require.NoError(t, err)
}

func TestRenew_OverdueBlocked(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.borrowings[5] = &model.Borrowing{
		ID: 5, UserID: 1, BookID: 10, Status: model.BorrowActive,
		DueDate: now.Add(-time.Hour),
	}
	svc := newService(t, f, now)

	_, err := svc.Renew(context.Background(), patron, 5)
	require.Error(t, err)
	require.Equal(t, ErrOverdue, Code(err))
}

func TestRenew_UnpaidFineBlocked(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	f := newFakeRepo()
	f.borrowings[5] = &model.Borrowing{
		ID: 5, UserID: 1, BookID: 10, Status: model.BorrowActive,
		DueDate: now.Add(24 * time.Hour),
	}
	f.unpaid[5] = true
	svc := newService(t, f, now)

	_, err := svc.Renew(context.Background(), patron, 5)
	require.Error(t, err)
	require.Equal(t, ErrUnpaidFine, Code(err))
}

func TestRenew_ReturnedBlocked(t *testing.T) {
	now := time.Now()
	ret := now.Add(-time.Hour)
	f := newFakeRepo()
	f.borrowings[5] = &model.Borrowing{
		ID: 5, UserID: 1, BookID: 10, Status: model.BorrowReturned,
		DueDate: now.Add(24 * time.Hour), ReturnedAt: &ret,
	}
	svc := newService(t, f, now)

	_, err := svc.Renew(context.Background(), patron, 5)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyReturned, Code(err))
}

// availableCopies stays within [0, total] across a borrow/return storm.
func TestCopyCountBounds(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.books[10] = &bookState{available: 2, total: 2}
	svc := newService(t, f, time.Now())

	callers := []Caller{
		{UserID: 1, Role: model.RolePatron},
		{UserID: 2, Role: model.RolePatron},
		{UserID: 3, Role: model.RolePatron},
	}

	var borrowed []int64
	for _, c := range callers {
		b, err := svc.Borrow(ctx, c, 10, 0)
		if err != nil {
			require.Equal(t, ErrNoCopies, Code(err))
			continue
		}
		borrowed = append(borrowed, b.ID)
	}
	require.Len(t, borrowed, 2)
	require.Equal(t, 0, f.books[10].available)

	for _, id := range borrowed {
		_, err := svc.Return(ctx, librarian, id)
		require.NoError(t, err)
		require.LessOrEqual(t, f.books[10].available, f.books[10].total)
		require.GreaterOrEqual(t, f.books[10].available, 0)
	}
	require.Equal(t, 2, f.books[10].available)
}
