// Package server initializes and runs the user account service.
// It opens the database, applies migrations, wires the services and
// runs the HTTP server until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/config"
	"github.com/dmitrijs2005/usermanager/internal/server/events"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usermanager/internal/server/rest"
	"github.com/dmitrijs2005/usermanager/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// MemoryDSN selects the in-memory store instead of PostgreSQL.
const MemoryDSN = "memory"

const pingTimeout = 5 * time.Second

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	publisher events.Publisher
	server    *rest.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.IsProduction())
	ctx := context.Background()

	var (
		db *sql.DB
		rm repomanager.RepositoryManager
		tx dbx.TxRunner
	)

	if c.DatabaseDSN == MemoryDSN {
		logger.Warn(ctx, "using in-memory store, data is lost on exit")
		rm = repomanager.NewMemoryRepositoryManager(time.Now)
		tx = dbx.NoTx(nil)
	} else {
		var err error
		db, err = openDB(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		pm := repomanager.NewPostgresRepositoryManager()
		if err := pm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		rm = pm
		tx = dbx.SQLTxRunner(db)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(c.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic)
	}

	tokens := auth.NewTokenService([]byte(c.SecretKey), c.TokenValidityDuration, time.Now)
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	// the gate reads through the pool, outside any transaction
	var readDB dbx.DBTX
	if db != nil {
		readDB = db
	}
	gate := auth.NewGate(tokens, rm.Users(readDB), auth.NewStaticRoles(c.AdminIDs), logger)
	us := services.NewUserService(readDB, tx, rm, tokens, hasher, publisher, logger)

	srv := rest.NewServer(rest.Options{
		Address:         c.HTTPAddr,
		Production:      c.IsProduction(),
		FrontendURL:     c.FrontendURL,
		RateLimitMax:    c.RateLimitMax,
		RateLimitWindow: c.RateLimitWindow,
	}, logger, us, gate)

	return &App{config: c, logger: logger, db: db, publisher: publisher, server: srv}, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the publisher and the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if err := app.publisher.Close(); err != nil {
		app.logger.Error(ctx, "event publisher close failed", "error", err.Error())
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close failed", "error", err.Error())
		}
	}
	app.logger.Info(ctx, "App stopped")
}
