package statssvc

import (
	"context"
	"time"

	statsrepo "librarydesk/repository/stats"
)

// Overview is the staff dashboard payload.
type Overview struct {
	Counts  statsrepo.Counts       `json:"counts"`
	Overdue []statsrepo.OverdueRow `json:"overdue"`
}

type Service interface {
	Overview(ctx context.Context) (*Overview, error)
}

type service struct {
	r   statsrepo.Repo
	now func() time.Time
}

func New(r statsrepo.Repo) Service {
	return &service{r: r, now: time.Now}
}

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	now := s.now().UTC()
	counts, err := s.r.Counts(ctx, now)
	if err != nil {
		return nil, err
	}
	overdue, err := s.r.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	return &Overview{Counts: *counts, Overdue: overdue}, nil
}
