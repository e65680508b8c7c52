// Package backend opens the graph source, report repository and object store
// selected by the environment. It is shared by the server, the worker and
// the seeder.
package backend

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/storage"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"
	"github.com/OFFIS-RIT/stakegraph/pkg/store/memory"
	"github.com/OFFIS-RIT/stakegraph/pkg/store/neo4j"
	"github.com/OFFIS-RIT/stakegraph/pkg/store/pgx"
)

const (
	SourceNeo4j    = "neo4j"
	SourcePostgres = "postgres"
	SourceMemory   = "memory"

	// DefaultNetworkDepth bounds owner chains loaded for a solve.
	DefaultNetworkDepth = 8
	MaxNetworkDepth     = 64
)

var ErrNoDatabase = errors.New("DATABASE_URL is not set")

// Backend is the set of stores a process works with. Reports and Postgres
// are nil when no database is configured, unless the memory source is used.
type Backend struct {
	Kind     string
	Source   store.GraphSource
	Writer   store.GraphWriter
	Reports  store.ReportRepository
	Postgres *pgx.Source

	closers []func(context.Context) error
}

// Open connects to the source named by GRAPH_SOURCE (default neo4j) and, when
// DATABASE_URL is set, to PostgreSQL for reports, locks and timings. The
// PostgreSQL schema is migrated on open.
func Open(ctx context.Context) (*Backend, error) {
	kind := util.GetEnvString("GRAPH_SOURCE", SourceNeo4j)
	b := &Backend{Kind: kind}

	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL != "" {
		if err := pgx.Migrate(databaseURL); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		pg, err := pgx.NewSource(ctx, databaseURL, pgx.WithBatchSize(util.GetEnvInt("SEED_BATCH_SIZE", 500)))
		if err != nil {
			return nil, err
		}
		b.Postgres = pg
		b.Reports = pg
		b.closers = append(b.closers, pg.Close)
	}

	switch kind {
	case SourcePostgres:
		if b.Postgres == nil {
			return nil, ErrNoDatabase
		}
		b.Source, b.Writer = b.Postgres, b.Postgres
	case SourceNeo4j:
		src, err := neo4j.NewSource(neo4j.NewSourceParams{
			URL:      util.GetEnvString("NEO4J_URL", "bolt://localhost:7687"),
			User:     util.GetEnvString("NEO4J_USER", "neo4j"),
			Password: util.GetEnv("NEO4J_PASS"),
			Database: util.GetEnv("NEO4J_DATABASE"),
			Timeout:  util.GetEnvDuration("NEO4J_TIMEOUT", 30*time.Second),
		})
		if err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		b.Source, b.Writer = src, src
		b.closers = append(b.closers, src.Close)
	case SourceMemory:
		src, err := memory.NewSeededSource(store.Sample())
		if err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		b.Source, b.Writer = src, src
		if b.Reports == nil {
			b.Reports = src
		}
	default:
		_ = b.Close(ctx)
		return nil, fmt.Errorf("unknown GRAPH_SOURCE %q", kind)
	}

	logger.Info("[Backend] Graph source ready", "source", kind, "reports", b.Reports != nil)
	return b, nil
}

// Ping checks that the graph source answers.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.Source.Companies(ctx)
	return err
}

func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	b.closers = nil
	return errors.Join(errs...)
}

// SolverParamsFromEnv reads the SOLVER_* settings.
func SolverParamsFromEnv() (graph.NewSolverParams, error) {
	strategy, err := graph.ParseStrategy(util.GetEnv("SOLVER_STRATEGY"))
	if err != nil {
		return graph.NewSolverParams{}, err
	}
	return graph.NewSolverParams{
		Strategy:      strategy,
		Tolerance:     util.GetEnvNumeric("SOLVER_TOLERANCE", graph.DefaultTolerance),
		MaxIterations: util.GetEnvInt("SOLVER_MAX_ITERATIONS", graph.DefaultMaxIterations),
		MaxDepth:      util.GetEnvInt("SOLVER_MAX_DEPTH", graph.DefaultMaxDepth),
		MaxPaths:      util.GetEnvInt("SOLVER_MAX_PATHS", graph.DefaultMaxPaths),
		Parallelism:   util.GetEnvInt("SOLVER_PARALLELISM", runtime.GOMAXPROCS(0)),
	}, nil
}

// NetworkDepthFromEnv reads NETWORK_MAX_DEPTH, clamped to [1,64].
func NetworkDepthFromEnv() int {
	return ClampDepth(util.GetEnvInt("NETWORK_MAX_DEPTH", DefaultNetworkDepth), DefaultNetworkDepth)
}

// ClampDepth maps a requested depth into [1,64], using fallback for values
// below 1.
func ClampDepth(depth, fallback int) int {
	if depth < 1 {
		depth = fallback
	}
	return max(1, min(depth, MaxNetworkDepth))
}

// ObjectStoreFromEnv returns an S3 store when AWS_BUCKET is set, and nil
// otherwise.
func ObjectStoreFromEnv(ctx context.Context) (storage.ObjectStore, error) {
	if util.GetEnv("AWS_BUCKET") == "" {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	return storage.NewS3StoreFromEnv(client), nil
}
