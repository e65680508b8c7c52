package backend

import (
	"context"
	"runtime"
	"testing"

	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"
)

func TestClampDepth(t *testing.T) {
	tests := []struct {
		depth, fallback, want int
	}{
		{0, 8, 8},
		{-3, 8, 8},
		{5, 8, 5},
		{100, 8, 64},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if got := ClampDepth(tt.depth, tt.fallback); got != tt.want {
			t.Fatalf("ClampDepth(%d, %d) = %d, want %d", tt.depth, tt.fallback, got, tt.want)
		}
	}
}

func TestNetworkDepthFromEnv(t *testing.T) {
	t.Setenv("NETWORK_MAX_DEPTH", "12")
	if got := NetworkDepthFromEnv(); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv("NETWORK_MAX_DEPTH", "abc")
	if got := NetworkDepthFromEnv(); got != DefaultNetworkDepth {
		t.Fatalf("expected default, got %d", got)
	}
}

func TestSolverParamsFromEnv(t *testing.T) {
	t.Setenv("SOLVER_STRATEGY", "linear")
	t.Setenv("SOLVER_TOLERANCE", "1e-6")
	t.Setenv("SOLVER_MAX_ITERATIONS", "200")

	params, err := SolverParamsFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Strategy != graph.StrategyLinear || params.Tolerance != 1e-6 || params.MaxIterations != 200 {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.Parallelism != runtime.GOMAXPROCS(0) || params.MaxDepth != graph.DefaultMaxDepth {
		t.Fatalf("unexpected defaults %+v", params)
	}

	t.Setenv("SOLVER_STRATEGY", "monte_carlo")
	if _, err := SolverParamsFromEnv(); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestOpenMemory(t *testing.T) {
	t.Setenv("GRAPH_SOURCE", SourceMemory)
	t.Setenv("DATABASE_URL", "")
	ctx := context.Background()

	b, err := Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close(ctx)

	if b.Reports == nil || b.Writer == nil || b.Postgres != nil {
		t.Fatalf("unexpected backend %+v", b)
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := b.Source.Network(ctx, store.NordicWidgets, 8); err != nil {
		t.Fatalf("Network: %v", err)
	}
}

func TestOpenRejectsUnknownSource(t *testing.T) {
	t.Setenv("GRAPH_SOURCE", "sqlite")
	t.Setenv("DATABASE_URL", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error")
	}

	t.Setenv("GRAPH_SOURCE", SourcePostgres)
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestObjectStoreFromEnvWithoutBucket(t *testing.T) {
	t.Setenv("AWS_BUCKET", "")
	objects, err := ObjectStoreFromEnv(context.Background())
	if err != nil || objects != nil {
		t.Fatalf("expected no store, got %v (%v)", objects, err)
	}
}
