package mocks

import (
	"context"

	"github.com/quickshow/quickshow/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockShowRepo struct {
	mock.Mock
	domain.ShowRepository
}

func (m *MockShowRepo) CreateMovieWithShows(ctx context.Context, movie *domain.Movie, shows []*domain.Show) error {
	args := m.Called(ctx, movie, shows)
	return args.Error(0)
}

func (m *MockShowRepo) GetById(ctx context.Context, id int64) (*domain.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Show), args.Error(1)
}

func (m *MockShowRepo) GetUpcomingByMovie(ctx context.Context, movieID int64) ([]*domain.Show, error) {
	args := m.Called(ctx, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Show), args.Error(1)
}

func (m *MockShowRepo) GetOccupiedSeats(ctx context.Context, showID int64) ([]domain.OccupiedSeat, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OccupiedSeat), args.Error(1)
}
