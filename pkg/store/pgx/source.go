package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// Source implements store.GraphSource on the relational schema in
// migrations/. Ownership chains and transfer neighbourhoods are resolved with
// recursive CTEs.
type Source struct {
	conn      pgxIConn
	pool      *pgxpool.Pool
	batchSize int
}

var (
	_ store.GraphSource      = (*Source)(nil)
	_ store.GraphWriter      = (*Source)(nil)
	_ store.ReportRepository = (*Source)(nil)
)

type SourceOption func(*Source)

// WithBatchSize sets how many statements Seed sends per round trip.
func WithBatchSize(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewSourceWithConnection creates a Source on an existing connection or
// pool. Close does not close conn.
func NewSourceWithConnection(conn pgxIConn, opts ...SourceOption) *Source {
	s := &Source{conn: conn, batchSize: 500}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// NewSource opens a pool on databaseURL and verifies it answers.
func NewSource(ctx context.Context, databaseURL string, opts ...SourceOption) (*Source, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewSourceWithConnection(pool, opts...)
	s.pool = pool
	return s, nil
}

// Pool returns the pool opened by NewSource, or nil for a Source created on a
// caller's connection.
func (s *Source) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Source) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Source) Companies(ctx context.Context) ([]common.Company, error) {
	rows, err := s.conn.Query(ctx, listCompaniesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	companies, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Company, error) {
		var c common.Company
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan companies: %w", err)
	}
	return companies, nil
}

func (s *Source) company(ctx context.Context, id string) (common.Node, error) {
	n := common.Node{Kind: common.KindCompany}
	err := s.conn.QueryRow(ctx, getCompanySQL, id).Scan(&n.ID, &n.Name)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return n, fmt.Errorf("%w: company %s", store.ErrNotFound, id)
		}
		return n, fmt.Errorf("failed to get company %s: %w", id, err)
	}
	return n, nil
}

type stakeRow struct {
	ownerID, ownerName, ownerKind       string
	companyID, companyName, companyKind string
	percent                             float64
}

func (s *Source) queryStakes(ctx context.Context, sql string, args ...any) ([]stakeRow, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (stakeRow, error) {
		var r stakeRow
		err := row.Scan(
			&r.ownerID, &r.ownerName, &r.ownerKind,
			&r.companyID, &r.companyName, &r.companyKind,
			&r.percent,
		)
		return r, err
	})
}

func addStakes(b *store.SnapshotBuilder, stakes []stakeRow) {
	for _, r := range stakes {
		b.AddNode(r.ownerID, r.ownerName, common.NodeKind(r.ownerKind))
		b.AddNode(r.companyID, r.companyName, common.NodeKind(r.companyKind))
		b.AddEdge(store.OwnershipEdgeID(r.ownerID, r.companyID), r.ownerID, r.companyID, common.FormatPercent(r.percent))
	}
}

func (s *Source) Neighborhood(ctx context.Context, companyID string, includeHolders, includeSubs bool) (*common.Snapshot, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}

	b := store.NewSnapshotBuilder()
	b.AddNode(c.ID, c.Name, c.Kind)

	if includeHolders {
		holders, err := s.queryStakes(ctx, holdersSQL, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get holders of %s: %w", companyID, err)
		}
		addStakes(b, holders)
	}
	if includeSubs {
		subs, err := s.queryStakes(ctx, subsidiariesSQL, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get subsidiaries of %s: %w", companyID, err)
		}
		addStakes(b, subs)
	}

	return b.Snapshot(), nil
}

func (s *Source) Network(ctx context.Context, companyID string, maxDepth int) (*common.Snapshot, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}

	stakes, err := s.queryStakes(ctx, networkSQL, companyID, max(maxDepth, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to get ownership network of %s: %w", companyID, err)
	}

	b := store.NewSnapshotBuilder()
	b.AddNode(c.ID, c.Name, c.Kind)
	addStakes(b, stakes)
	return b.Snapshot(), nil
}

func (s *Source) Governance(ctx context.Context, companyID string, maxOtherCompanies int) (*common.Snapshot, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}

	b := store.NewSnapshotBuilder()
	b.AddNode(c.ID, c.Name, c.Kind)

	rows, err := s.conn.Query(ctx, boardSQL, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles on %s: %w", companyID, err)
	}
	type mandate struct {
		personID, personName, companyID, companyName, role string
	}
	board, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (mandate, error) {
		var m mandate
		err := row.Scan(&m.personID, &m.personName, &m.role)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan roles on %s: %w", companyID, err)
	}

	personIDs := make([]string, 0, len(board))
	for _, m := range board {
		b.AddNode(m.personID, m.personName, common.KindPerson)
		b.AddEdge(store.RoleEdgeID(m.personID, c.ID, m.role), m.personID, c.ID, m.role)
		personIDs = append(personIDs, m.personID)
	}
	personIDs = store.DedupeStrings(personIDs)
	if len(personIDs) == 0 || maxOtherCompanies <= 0 {
		return b.Snapshot(), nil
	}

	rows, err = s.conn.Query(ctx, otherMandatesSQL, personIDs, companyID, maxOtherCompanies)
	if err != nil {
		return nil, fmt.Errorf("failed to get other mandates: %w", err)
	}
	others, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (mandate, error) {
		var m mandate
		err := row.Scan(&m.personID, &m.companyID, &m.companyName, &m.role)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan other mandates: %w", err)
	}
	for _, m := range others {
		b.AddNode(m.companyID, m.companyName, common.KindCompany)
		b.AddEdge(store.RoleEdgeID(m.personID, m.companyID, m.role), m.personID, m.companyID, m.role)
	}

	return b.Snapshot(), nil
}
