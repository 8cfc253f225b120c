// Package app wires the movie booking service together and runs it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/movie-booking/internal/catalog"
	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/identity"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/payment"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/router"
	"github.com/iliyamo/movie-booking/internal/session"
)

// App holds the long-lived parts of the service.
type App struct {
	cfg      config.Config
	echo     *echo.Echo
	db       *sql.DB
	rdb      *redis.Client
	sched    gocron.Scheduler
	sessions *session.Manager
	broker   *payment.CheckoutBroker

	publisher *queue.Publisher
	consumer  *queue.Consumer
}

// New connects the optional backends and registers all routes.  Redis and
// RabbitMQ are optional; MySQL is used when DB_HOST is set.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	if rdb, err := config.NewRedisClient(ctx, config.RedisOptions()); err != nil {
		logrus.WithError(err).Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		a.rdb = rdb
	}

	users, tokens, err := a.identityStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	auth := identity.NewService(identity.Config{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, users, tokens)

	if cfg.TMDBAPIKey == "" {
		logrus.Warn("TMDB_API_KEY is not set; catalog requests will fail")
	}
	cat := catalog.New(
		catalog.NewClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, cfg.CatalogTimeout),
		catalog.WithGenreCache(catalog.NewRedisGenreCache(a.rdb, "", cfg.GenreCacheTTL)),
	)

	var creator payment.OrderCreator
	if rp := payment.NewRazorpayOrders(cfg.RazorpayKeyID, cfg.RazorpayKeySecret); rp != nil {
		creator = rp
	} else {
		logrus.Warn("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET not set; order creation disabled")
	}
	orders := payment.NewOrderService(creator, cfg.OrderCurrency, cfg.OrderTimeout)
	a.broker = payment.NewCheckoutBroker(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	if cfg.RabbitURL != "" {
		a.publisher = queue.NewPublisher(cfg.RabbitURL)
		var mailer queue.Mailer
		if m := queue.NewSMTPMailer(queue.SMTPConfig(cfg.SMTP)); m != nil {
			mailer = m
		}
		a.consumer = queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogDir, mailer)
	}

	a.sessions = session.NewManager(cat, payment.NewGateway(orders, a.broker),
		session.WithBookingListeners(a.publishBooking, a.publishBooking))

	a.sched, err = gocron.NewScheduler()
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.scheduleJobs(); err != nil {
		a.Close()
		return nil, err
	}

	a.echo = a.routes(auth, cat, orders)
	return a, nil
}

func (a *App) identityStores(ctx context.Context) (identity.UserStore, identity.TokenStore, error) {
	if !a.cfg.UseDatabase() {
		logrus.Warn("DB_HOST not set; accounts are kept in memory")
		mem := identity.NewMemoryStore()
		return mem, mem, nil
	}
	db, err := database.Open(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	a.db = db
	if err := repository.InitializeDBSchema(ctx, db); err != nil {
		return nil, nil, err
	}
	return repository.NewUserRepo(db), repository.NewTokenRepo(db), nil
}

func (a *App) scheduleJobs() error {
	sc := config.LoadSessionConfig()
	if err := a.sessions.ScheduleSweep(a.sched, sc.SweepInterval, sc.IdleTimeout); err != nil {
		return err
	}
	_, err := a.sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			if n := a.broker.Expire(a.cfg.CheckoutTTL); n > 0 {
				logrus.WithField("expired", n).Info("stale checkouts failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (a *App) routes(auth *identity.Service, cat *catalog.Catalog, orders *payment.OrderService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.CORS())

	verify := middleware.TokenVerifier(auth.Verify)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, a.sessions), verify)
	router.RegisterCatalog(e, handler.NewCatalogHandler(cat), middleware.NewRedisCache(config.LoadCacheConfig(), a.rdb))
	router.RegisterOrders(e, handler.NewOrderHandler(orders), middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.rdb))
	router.RegisterSessions(e, handler.NewSessionHandler(a.sessions, cat, a.broker), verify)
	return e
}

// publishBooking forwards a store change to the broker without blocking
// the booking flow.
func (a *App) publishBooking(sessionID string, who *model.Identity, rec model.BookingRecord) {
	if a.publisher == nil {
		return
	}
	ev := queue.NewBookingEvent(sessionID, rec, who, time.Now().UTC())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.publisher.Publish(ctx, ev)
	}()
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.echo }

// Run serves HTTP, consumes booking events and runs scheduled jobs until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	a.sched.Start()

	g.Go(func() error {
		addr := ":" + a.cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": a.cfg.Env}).Info("listening")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		logrus.Info("shutting down")
		return a.echo.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close releases the backends.  It is safe to call more than once.
func (a *App) Close() {
	if a.sched != nil {
		_ = a.sched.Shutdown()
		a.sched = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
