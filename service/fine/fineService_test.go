package finesvc

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"librarydesk/model"
	finerepo "librarydesk/repository/fine"
	"librarydesk/service/circulation"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(*sql.Tx) error) error { return fn(nil) }

type fakeRepo struct {
	fines       map[int64]*model.Fine
	listAllHits int
	listByUser  []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{fines: map[int64]*model.Fine{}}
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error) {
	fine, ok := f.fines[fineID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *fine
	return &cp, nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error {
	fine := f.fines[fineID]
	fine.IsPaid = true
	fine.PaidAt = &at
	return nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]finerepo.Row, error) {
	f.listAllHits++
	return nil, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID int64) ([]finerepo.Row, error) {
	f.listByUser = append(f.listByUser, userID)
	return nil, nil
}

var payTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(f *fakeRepo) Service {
	svc := New(stubTx{}, f).(*service)
	svc.now = func() time.Time { return payTime }
	return svc
}

func patron(id int64) circulation.Caller {
	return circulation.Caller{UserID: id, Role: model.RolePatron}
}

func librarian(id int64) circulation.Caller {
	return circulation.Caller{UserID: id, Role: model.RoleLibrarian}
}

func TestPay_Success(t *testing.T) {
	f := newFakeRepo()
	f.fines[1] = &model.Fine{ID: 1, UserID: 10, Amount: 2.50}
	svc := newService(f)

	paid, err := svc.Pay(context.Background(), patron(10), 1)
	require.NoError(t, err)
	require.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, payTime, *paid.PaidAt)
	require.True(t, f.fines[1].IsPaid)
}

func TestPay_AlreadyPaid(t *testing.T) {
	f := newFakeRepo()
	at := payTime.Add(-time.Hour)
	f.fines[1] = &model.Fine{ID: 1, UserID: 10, Amount: 2.50, IsPaid: true, PaidAt: &at}
	svc := newService(f)

	_, err := svc.Pay(context.Background(), patron(10), 1)
	require.Equal(t, ErrAlreadyPaid, Code(err))
	require.Equal(t, at, *f.fines[1].PaidAt)
}

func TestPay_OtherPatronForbidden(t *testing.T) {
	f := newFakeRepo()
	f.fines[1] = &model.Fine{ID: 1, UserID: 10, Amount: 2.50}
	svc := newService(f)

	_, err := svc.Pay(context.Background(), patron(11), 1)
	require.Equal(t, ErrForbidden, Code(err))
	require.False(t, f.fines[1].IsPaid)
}

func TestPay_StaffMayPayForPatron(t *testing.T) {
	f := newFakeRepo()
	f.fines[1] = &model.Fine{ID: 1, UserID: 10, Amount: 2.50}
	svc := newService(f)

	paid, err := svc.Pay(context.Background(), librarian(2), 1)
	require.NoError(t, err)
	require.True(t, paid.IsPaid)
}

func TestPay_NotFound(t *testing.T) {
	svc := newService(newFakeRepo())
	_, err := svc.Pay(context.Background(), patron(10), 99)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestList_ScopesByRole(t *testing.T) {
	f := newFakeRepo()
	svc := newService(f)

	_, err := svc.List(context.Background(), librarian(2))
	require.NoError(t, err)
	require.Equal(t, 1, f.listAllHits)

	_, err = svc.List(context.Background(), patron(10))
	require.NoError(t, err)
	require.Equal(t, []int64{10}, f.listByUser)
}
