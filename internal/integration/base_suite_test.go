package integration_test

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/quickshow/quickshow/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "quickshow"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

// BaseSuite boots real Postgres and Redis containers once per suite and
// exposes the repositories wired against them. The ledger semantics under
// test here live in SQL, so mocks would prove nothing.
type BaseSuite struct {
	suite.Suite
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer

	db    *pgxpool.Pool
	redis *redis.Client

	movieRepo   domain.MovieRepository
	showRepo    domain.ShowRepository
	bookingRepo domain.BookingRepository
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		s.T().Skip("docker not available")
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		s.T().Skip("docker not available")
		return
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	db, err := pgxpool.New(ctx, postgresContainer.ConnectionString)
	s.Require().NoError(err)

	s.db = db
	s.redis = redis.NewClient(&redis.Options{Addr: redisContainer.ConnectionString})

	s.movieRepo = repository.NewPostgresMovieRepository(db)
	s.showRepo = repository.NewPostgresShowRepository(db)
	s.bookingRepo = repository.NewPostgresBookingRepository(db)
}

func (s *BaseSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}
