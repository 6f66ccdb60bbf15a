package mocks

import (
	"context"

	"github.com/quickshow/quickshow/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockMovieCatalog struct {
	mock.Mock
	domain.MovieCatalog
}

func (m *MockMovieCatalog) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Movie), args.Error(1)
}
