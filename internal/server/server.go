package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/backend"
	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	mid "github.com/OFFIS-RIT/stakegraph/internal/server/middleware"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewServer builds the echo instance with its middleware and routes.
func NewServer(app *mid.App, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(middleware.RequestLogger())
	e.Use(middleware.BodyLimit("16M"))
	e.Use(mid.Metrics())
	e.Use(mid.AppContextMiddleware(app))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(ctx)
	if err != nil {
		logger.Fatal("[Server] Failed to open graph source", "err", err)
	}
	defer b.Close(context.Background())

	params, err := backend.SolverParamsFromEnv()
	if err != nil {
		logger.Fatal("[Server] Invalid solver configuration", "err", err)
	}
	solver, err := graph.NewSolver(params)
	if err != nil {
		logger.Fatal("[Server] Invalid solver configuration", "err", err)
	}

	app := &mid.App{
		Source:       b.Source,
		Reports:      b.Reports,
		Solver:       solver,
		SolverParams: params,
		NetworkDepth: backend.NetworkDepthFromEnv(),
		SolveSlots:   semaphore.NewWeighted(int64(util.GetEnvInt("SOLVER_MAX_CONCURRENT", runtime.GOMAXPROCS(0)))),
	}
	if b.Postgres != nil {
		app.Timings = b.Postgres.Pool()
	}

	if util.GetEnv("RABBITMQ_HOST") != "" {
		conn := queue.Init()
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("[Server] Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.ReportQueue}); err != nil {
			logger.Fatal("[Server] Failed to set up queues", "err", err)
		}
		app.Queue = ch
	}

	objects, err := backend.ObjectStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("[Server] Failed to create S3 client", "err", err)
	}
	app.Objects = objects

	e := NewServer(app, util.GetEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}))

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("[Server] Starting server", "port", port, "strategy", solver.Strategy())
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("[Server] Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Server] Failed to shutdown server", "err", err)
	}
}
