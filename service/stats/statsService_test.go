package statssvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	statsrepo "librarydesk/repository/stats"
)

type mockRepo struct {
	countsFn  func(ctx context.Context, now time.Time) (*statsrepo.Counts, error)
	overdueFn func(ctx context.Context, now time.Time) ([]statsrepo.OverdueRow, error)
}

func (m *mockRepo) Counts(ctx context.Context, now time.Time) (*statsrepo.Counts, error) {
	return m.countsFn(ctx, now)
}
func (m *mockRepo) ListOverdue(ctx context.Context, now time.Time) ([]statsrepo.OverdueRow, error) {
	return m.overdueFn(ctx, now)
}

func TestOverview(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	due := fixed.Add(-48 * time.Hour)

	m := &mockRepo{
		countsFn: func(ctx context.Context, now time.Time) (*statsrepo.Counts, error) {
			require.Equal(t, fixed, now)
			return &statsrepo.Counts{TotalBooks: 12, TotalPatrons: 5, BooksIssued: 3, OverdueBooks: 1}, nil
		},
		overdueFn: func(ctx context.Context, now time.Time) ([]statsrepo.OverdueRow, error) {
			require.Equal(t, fixed, now)
			return []statsrepo.OverdueRow{{BorrowingID: 7, BookTitle: "Dune", DueDate: due}}, nil
		},
	}
	svc := New(m).(*service)
	svc.now = func() time.Time { return fixed }

	out, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, out.Counts.TotalBooks)
	require.Len(t, out.Overdue, 1)
	require.Equal(t, "Dune", out.Overdue[0].BookTitle)
}
