package pgx

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// Seed upserts the data set in one transaction. Running it twice leaves the
// database unchanged.
func (s *Source) Seed(ctx context.Context, data store.SampleData) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var stmts []func(*pgxv5.Batch)
	for _, c := range data.Companies {
		stmts = append(stmts, func(b *pgxv5.Batch) {
			b.Queue(upsertEntitySQL, c.ID, util.SanitizePostgresText(c.Name), string(common.KindCompany))
		})
	}
	for _, p := range data.Persons {
		stmts = append(stmts, func(b *pgxv5.Batch) {
			b.Queue(upsertEntitySQL, p.ID, util.SanitizePostgresText(p.Name), string(common.KindPerson))
		})
	}
	for _, o := range data.Ownerships {
		stmts = append(stmts, func(b *pgxv5.Batch) {
			b.Queue(upsertOwnershipSQL, o.OwnerID, o.CompanyID, o.Percent)
		})
	}
	for _, r := range data.Roles {
		stmts = append(stmts, func(b *pgxv5.Batch) {
			var since any
			if r.Since != "" {
				since = r.Since
			}
			b.Queue(upsertRoleSQL, r.PersonID, r.CompanyID, r.Role, since)
		})
	}
	for _, t := range data.Transfers {
		stmts = append(stmts, func(b *pgxv5.Batch) {
			b.Queue(upsertAccountSQL, t.Source)
			b.Queue(upsertAccountSQL, t.Target)
			b.Queue(upsertTransferSQL, t.TxID, t.Source, t.Target, t.Amount)
		})
	}

	err = store.ChunkRange(len(stmts), s.batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, queue := range stmts[start:end] {
			queue(batch)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to seed rows %d-%d: %w", start, end, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const upsertEntitySQL = `
INSERT INTO entities (id, name, kind) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind;
`

const upsertOwnershipSQL = `
INSERT INTO ownerships (owner_id, company_id, percent) VALUES ($1, $2, $3)
ON CONFLICT (owner_id, company_id) DO UPDATE SET percent = EXCLUDED.percent;
`

const upsertRoleSQL = `
INSERT INTO roles (person_id, company_id, role, since) VALUES ($1, $2, $3, $4::date)
ON CONFLICT (person_id, company_id, role) DO UPDATE SET since = EXCLUDED.since;
`

const upsertAccountSQL = `
INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING;
`

const upsertTransferSQL = `
INSERT INTO transfers (tx_id, src, dst, amount) VALUES ($1, $2, $3, $4)
ON CONFLICT (tx_id) DO UPDATE SET src = EXCLUDED.src, dst = EXCLUDED.dst, amount = EXCLUDED.amount;
`
