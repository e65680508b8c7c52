package pgx

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
}

// testSource connects to TEST_DATABASE_URL, migrates and seeds it. Tests
// using it are skipped without a database.
func testSource(t *testing.T) *Source {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := Migrate(url); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	s, err := NewSource(ctx, url, WithBatchSize(7))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Seed(ctx, store.Sample()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func edgeIDs(snapshot *common.Snapshot) []string {
	ids := make([]string, 0, len(snapshot.Edges))
	for _, e := range snapshot.Edges {
		ids = append(ids, e.ID)
	}
	slices.Sort(ids)
	return ids
}

func TestSourceOwnership(t *testing.T) {
	s := testSource(t)
	ctx := context.Background()

	companies, err := s.Companies(ctx)
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if len(companies) < 10 || companies[0].Name != "Aurora Consulting KB" {
		t.Fatalf("unexpected companies: %v", companies)
	}

	snap, err := s.Neighborhood(ctx, store.NordicWidgets, true, true)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	want := []string{
		"556000-1111->556990-2222",
		"556000-1111->FI-2999999-9",
		"559000-7777->556000-1111",
		"P-ANNA->556000-1111",
		"P-ERIK->556000-1111",
	}
	if got := edgeIDs(snap); !slices.Equal(got, want) {
		t.Fatalf("Neighborhood edges = %v, want %v", got, want)
	}

	snap, err = s.Network(ctx, store.NWResearch, 8)
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if len(snap.Edges) != 5 {
		t.Fatalf("Network edges = %v", edgeIDs(snap))
	}

	_, err = s.Neighborhood(ctx, "000000-0000", true, true)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSourceGovernance(t *testing.T) {
	s := testSource(t)

	snap, err := s.Governance(context.Background(), store.NordicWidgets, 50)
	if err != nil {
		t.Fatalf("Governance: %v", err)
	}
	// five mandates on the company and seven elsewhere
	if len(snap.Edges) != 12 {
		t.Fatalf("Governance edges = %v", edgeIDs(snap))
	}

	snap, err = s.Governance(context.Background(), store.NordicWidgets, 2)
	if err != nil {
		t.Fatalf("Governance: %v", err)
	}
	if len(snap.Edges) != 7 {
		t.Fatalf("capped Governance edges = %v", edgeIDs(snap))
	}
}

func TestSourceTransfers(t *testing.T) {
	s := testSource(t)
	ctx := context.Background()

	g, err := s.TransferSubgraph(ctx, "acct_A", 1, 300)
	if err != nil {
		t.Fatalf("TransferSubgraph: %v", err)
	}
	if len(g.Accounts) != 3 || len(g.Transfers) != 4 {
		t.Fatalf("unexpected subgraph: %+v", g)
	}

	d, err := s.TransferDegree(ctx, "acct_C")
	if err != nil {
		t.Fatalf("TransferDegree: %v", err)
	}
	if d.In != 2 || d.Out != 1 || d.Degree != 3 {
		t.Fatalf("unexpected degree: %+v", d)
	}

	if _, err := s.TransferSubgraph(ctx, "acct_missing", 2, 300); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSourceReports(t *testing.T) {
	s := testSource(t)
	ctx := context.Background()

	id, err := gonanoid.New()
	if err != nil {
		t.Fatal(err)
	}
	r := &store.Report{ID: id, CompanyID: store.NordicWidgets, Strategy: "fixed_point", Depth: 8}
	if err := s.CreateReport(ctx, r); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if err := s.MarkReportRunning(ctx, id); err != nil {
		t.Fatalf("MarkReportRunning: %v", err)
	}
	if err := s.CompleteReport(ctx, id, "reports/x.json"); err != nil {
		t.Fatalf("CompleteReport: %v", err)
	}

	got, err := s.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Status != store.ReportCompleted || got.ObjectKey != "reports/x.json" || got.CompletedAt == nil {
		t.Fatalf("unexpected report: %+v", got)
	}

	stale, err := s.StaleReports(ctx, time.Hour)
	if err != nil {
		t.Fatalf("StaleReports: %v", err)
	}
	for _, r := range stale {
		if r.ID == id {
			t.Fatal("completed report listed as stale")
		}
	}

	if _, err := s.GetReport(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
