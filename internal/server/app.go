// Package server wires configuration, storage, activity recording and the
// gRPC endpoint into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/activity"
	"github.com/dmitrijs2005/accounts/internal/server/config"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accounts/internal/server/services"

	gs "github.com/dmitrijs2005/accounts/internal/server/grpc"
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepositoryManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
	newS3Recorder = func(ctx context.Context, s activity.S3Settings) (activity.Recorder, error) {
		return activity.NewS3Recorder(ctx, s)
	}
)

type App struct {
	config           *config.Config
	logger           logging.Logger
	db               *sql.DB
	UserService      *services.UserService
	OrgService       *services.OrgService
	WorkspaceService *services.WorkspaceService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := newRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	recorder, err := buildRecorder(ctx, c, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config:           c,
		logger:           logger,
		db:               db,
		UserService:      services.NewUserService(db, m, recorder, logger),
		OrgService:       services.NewOrgService(db, m, recorder, logger),
		WorkspaceService: services.NewWorkspaceService(db, m, recorder, logger),
	}, nil
}

// buildRecorder always logs events and, when enabled, archives them to S3.
func buildRecorder(ctx context.Context, c *config.Config, l logging.Logger) (activity.Recorder, error) {
	recorders := activity.Multi{activity.NewLogRecorder(l)}

	if c.ActivityS3Enabled {
		s3r, err := newS3Recorder(ctx, activity.S3Settings{
			Region:       c.S3Region,
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("activity archive init error: %w", err)
		}
		recorders = append(recorders, s3r)
	}

	return recorders, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
