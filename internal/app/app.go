package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickshow/quickshow/internal/catalog"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/quickshow/quickshow/internal/mailer"
	"github.com/quickshow/quickshow/internal/payment"
	"github.com/quickshow/quickshow/internal/repository"
	appvalidator "github.com/quickshow/quickshow/internal/validator"
	"github.com/quickshow/quickshow/internal/vcs"
	"github.com/quickshow/quickshow/internal/worker"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/stripe/stripe-go/v82"
)

var (
	version = vcs.Version()
)

type application struct {
	config         config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager
	showLocation   *time.Location

	movieRepo   domain.MovieRepository
	showRepo    domain.ShowRepository
	bookingRepo domain.BookingRepository

	paymentProvider domain.PaymentProvider
	movieCatalog    domain.MovieCatalog
}

type config struct {
	port int
	env  string
	db   struct {
		dsn          string
		maxOpenConns int
		maxIdleTime  time.Duration
	}
	redis struct {
		url          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	stripe struct {
		secretKey     string
		webhookSecret string
		successUrl    string
		failureUrl    string
	}
	tmdb struct {
		baseUrl string
		apiKey  string
	}
	operator struct {
		username     string
		passwordHash string
	}
	booking struct {
		ttl           time.Duration
		sweepInterval time.Duration
		sweepBatch    int
	}
	timezone         string
	otelCollectorUrl string
}

func Run() error {
	var cfg config

	flag.IntVar(&cfg.port, "port", 3000, "server port")
	flag.StringVar(&cfg.env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.redis.url, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.redis.maxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.redis.maxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.redis.maxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "QuickShow <no-reply@quickshow.example.com>", "SMTP sender")

	flag.StringVar(&cfg.stripe.secretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.stripe.webhookSecret, "stripe-webhook-secret", "", "Stripe webhook secret")
	flag.StringVar(&cfg.stripe.successUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.stripe.failureUrl, "stripe-failure-url", "https://example.com/failure.html", "Stripe payment failure page")

	flag.StringVar(&cfg.tmdb.baseUrl, "tmdb-base-url", "https://api.themoviedb.org/3", "TMDB API base URL")
	flag.StringVar(&cfg.tmdb.apiKey, "tmdb-api-key", "", "TMDB API read access token")

	flag.StringVar(&cfg.operator.username, "operator-username", "operator", "Operator username for show management")
	flag.StringVar(&cfg.operator.passwordHash, "operator-password-hash", "", "Bcrypt hash of the operator password")

	flag.DurationVar(&cfg.booking.ttl, "booking-ttl", 10*time.Minute, "How long an unpaid booking holds its seats")
	flag.DurationVar(&cfg.booking.sweepInterval, "booking-sweep-interval", time.Minute, "How often expired bookings are swept")
	flag.IntVar(&cfg.booking.sweepBatch, "booking-sweep-batch", 100, "Max bookings expired per sweep")

	flag.StringVar(&cfg.timezone, "timezone", "Local", "IANA timezone that show schedules are given in")
	flag.StringVar(&cfg.otelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.stripe.secretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	showLocation, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.timezone, err)
	}

	validator := appvalidator.NewValidator()

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	app := &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       validator,
		mailer:          mailer.NewSMTPMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
		sessionManager:  newSessionManager(redisClient),
		showLocation:    showLocation,
		movieRepo:       repository.NewPostgresMovieRepository(db),
		showRepo:        repository.NewPostgresShowRepository(db),
		bookingRepo:     repository.NewPostgresBookingRepository(db),
		paymentProvider: payment.NewStripePaymentProvider(cfg.stripe.successUrl, cfg.stripe.failureUrl),
		movieCatalog:    catalog.NewTMDBCatalog(cfg.tmdb.baseUrl, cfg.tmdb.apiKey),
	}

	shutdownTelemetry, err := app.initTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.run()
}

func newSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func newRedisClient(cfg config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.redis.url,
		MaxIdleConns:    cfg.redis.maxIdleConns,
		MaxActiveConns:  cfg.redis.maxOpenConns,
		ConnMaxIdleTime: cfg.redis.maxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.db.maxIdleTime
	config.MaxConns = int32(cfg.db.maxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	expirer := worker.NewExpirer(
		app.bookingRepo,
		app.logger,
		app.config.booking.sweepInterval,
		app.config.booking.sweepBatch,
	)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	go func() {
		defer close(workerDone)
		expirer.Run(workerCtx)
	}()

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopWorker()
		<-workerDone

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		stopWorker()
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("quickshow-api", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestSession)

	r.Get("/health", app.HealthcheckHandler)

	r.Route("/shows", func(r chi.Router) {
		r.With(app.requireOperator).Post("/", app.CreateShowsHandler)

		r.Get("/", app.GetMoviesWithShowsHandler)
		r.Get("/movie/{movieID}", app.GetShowtimesByMovieHandler)
		r.Get("/{showID}/seats", app.GetShowSeatsHandler)

		r.Post("/{showID}/bookings", app.CreateBookingHandler)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", app.GetBookingsOfCustomerHandler)
		r.Get("/{bookingID}", app.GetBookingHandler)
		r.Delete("/{bookingID}", app.CancelBookingHandler)
		r.Post("/{bookingID}/checkout", app.CreateCheckoutSessionHandler)
	})

	r.Route("/webhook", func(r chi.Router) {
		r.Post("/", app.StripeWebhookHandler)
	})

	return r
}
