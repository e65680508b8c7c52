package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	neo4jv4 "github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// Source implements store.GraphSource on a property graph with Company,
// Person and Account nodes linked by OWNS {percent}, ROLE {type, since} and
// SENT_TO {tx_id, amount} relationships.
//
// Every call opens its own session; a Source is safe for concurrent use.
type Source struct {
	driver   neo4jv4.Driver
	database string
	timeout  time.Duration
}

var (
	_ store.GraphSource = (*Source)(nil)
	_ store.GraphWriter = (*Source)(nil)
)

// NewSourceParams configures a Source. Database selects a named database
// (empty for the server default); Timeout bounds every transaction.
type NewSourceParams struct {
	URL      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

func NewSource(params NewSourceParams) (*Source, error) {
	auth := neo4jv4.BasicAuth(params.User, params.Password, "")
	driver, err := neo4jv4.NewDriver(params.URL, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{driver: driver, database: params.Database, timeout: timeout}, nil
}

// Ping checks that the server is reachable.
func (s *Source) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.driver.VerifyConnectivity()
}

func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close()
}

func (s *Source) session(mode neo4jv4.AccessMode) neo4jv4.Session {
	return s.driver.NewSession(neo4jv4.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// read runs work in a managed read transaction. The v4 driver takes no
// context, so ctx is only checked before the transaction starts.
func (s *Source) read(ctx context.Context, work func(tx neo4jv4.Transaction) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session := s.session(neo4jv4.AccessModeRead)
	defer session.Close()
	return session.ReadTransaction(work, neo4jv4.WithTxTimeout(s.timeout))
}

func (s *Source) write(ctx context.Context, work func(tx neo4jv4.Transaction) (any, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session := s.session(neo4jv4.AccessModeWrite)
	defer session.Close()
	_, err := session.WriteTransaction(work, neo4jv4.WithTxTimeout(s.timeout))
	return err
}

func collect(tx neo4jv4.Transaction, cypher string, params map[string]any) ([]*neo4jv4.Record, error) {
	result, err := tx.Run(cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect()
}

func (s *Source) Companies(ctx context.Context) ([]common.Company, error) {
	out, err := s.read(ctx, func(tx neo4jv4.Transaction) (any, error) {
		records, err := collect(tx, listCompaniesCypher, nil)
		if err != nil {
			return nil, err
		}
		companies := make([]common.Company, 0, len(records))
		for _, rec := range records {
			companies = append(companies, common.Company{
				ID:   str(rec, "id"),
				Name: str(rec, "name"),
			})
		}
		return companies, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return out.([]common.Company), nil
}

// company loads the company node. ok is false when it does not exist.
func company(tx neo4jv4.Transaction, id string) (n common.Node, ok bool, err error) {
	records, err := collect(tx, getCompanyCypher, map[string]any{"cid": id})
	if err != nil || len(records) == 0 {
		return n, false, err
	}
	return common.Node{
		ID:   str(records[0], "id"),
		Name: str(records[0], "name"),
		Kind: common.KindCompany,
	}, true, nil
}

// Errors returned from a managed transaction come back through the driver's
// retry logic, so a missing node is signalled by a nil result instead.
func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
}

func addStakes(b *store.SnapshotBuilder, records []*neo4jv4.Record) {
	for _, rec := range records {
		src, dst := str(rec, "src"), str(rec, "dst")
		b.AddNode(src, str(rec, "src_name"), common.NodeKind(str(rec, "src_kind")))
		b.AddNode(dst, str(rec, "dst_name"), common.NodeKind(str(rec, "dst_kind")))
		b.AddEdge(store.OwnershipEdgeID(src, dst), src, dst, common.FormatPercent(num(rec, "percent")))
	}
}

func (s *Source) Neighborhood(ctx context.Context, companyID string, includeHolders, includeSubs bool) (*common.Snapshot, error) {
	out, err := s.read(ctx, func(tx neo4jv4.Transaction) (any, error) {
		c, ok, err := company(tx, companyID)
		if err != nil || !ok {
			return nil, err
		}
		b := store.NewSnapshotBuilder()
		b.AddNode(c.ID, c.Name, c.Kind)

		params := map[string]any{"cid": companyID}
		if includeHolders {
			records, err := collect(tx, holdersCypher, params)
			if err != nil {
				return nil, fmt.Errorf("holders: %w", err)
			}
			addStakes(b, records)
		}
		if includeSubs {
			records, err := collect(tx, subsidiariesCypher, params)
			if err != nil {
				return nil, fmt.Errorf("subsidiaries: %w", err)
			}
			addStakes(b, records)
		}
		return b.Snapshot(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get neighborhood of %s: %w", companyID, err)
	}
	if out == nil {
		return nil, notFound("company", companyID)
	}
	return out.(*common.Snapshot), nil
}

func (s *Source) Network(ctx context.Context, companyID string, maxDepth int) (*common.Snapshot, error) {
	out, err := s.read(ctx, func(tx neo4jv4.Transaction) (any, error) {
		c, ok, err := company(tx, companyID)
		if err != nil || !ok {
			return nil, err
		}
		b := store.NewSnapshotBuilder()
		b.AddNode(c.ID, c.Name, c.Kind)

		records, err := collect(tx, networkCypher(max(maxDepth, 1)), map[string]any{"cid": companyID})
		if err != nil {
			return nil, err
		}
		addStakes(b, records)
		return b.Snapshot(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ownership network of %s: %w", companyID, err)
	}
	if out == nil {
		return nil, notFound("company", companyID)
	}
	return out.(*common.Snapshot), nil
}

func (s *Source) Governance(ctx context.Context, companyID string, maxOtherCompanies int) (*common.Snapshot, error) {
	out, err := s.read(ctx, func(tx neo4jv4.Transaction) (any, error) {
		c, ok, err := company(tx, companyID)
		if err != nil || !ok {
			return nil, err
		}
		b := store.NewSnapshotBuilder()
		b.AddNode(c.ID, c.Name, c.Kind)

		board, err := collect(tx, boardCypher, map[string]any{"cid": companyID})
		if err != nil {
			return nil, fmt.Errorf("roles: %w", err)
		}
		var personIDs []string
		for _, rec := range board {
			pid, role := str(rec, "pid"), str(rec, "role")
			b.AddNode(pid, str(rec, "pname"), common.KindPerson)
			b.AddEdge(store.RoleEdgeID(pid, c.ID, role), pid, c.ID, role)
			personIDs = append(personIDs, pid)
		}
		personIDs = store.DedupeStrings(personIDs)
		if len(personIDs) == 0 || maxOtherCompanies <= 0 {
			return b.Snapshot(), nil
		}

		pids := make([]any, len(personIDs))
		for i, id := range personIDs {
			pids[i] = id
		}
		others, err := collect(tx, otherMandatesCypher, map[string]any{
			"cid":   companyID,
			"pids":  pids,
			"limit": int64(maxOtherCompanies),
		})
		if err != nil {
			return nil, fmt.Errorf("other mandates: %w", err)
		}
		for _, rec := range others {
			pid, oid, role := str(rec, "pid"), str(rec, "oid"), str(rec, "role")
			b.AddNode(oid, str(rec, "oname"), common.KindCompany)
			b.AddEdge(store.RoleEdgeID(pid, oid, role), pid, oid, role)
		}
		return b.Snapshot(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get governance graph of %s: %w", companyID, err)
	}
	if out == nil {
		return nil, notFound("company", companyID)
	}
	return out.(*common.Snapshot), nil
}

func (s *Source) TransferSubgraph(ctx context.Context, seed string, hops, limit int) (*common.TransferGraph, error) {
	out, err := s.read(ctx, func(tx neo4jv4.Transaction) (any, error) {
		params := map[string]any{"seed": seed}
		found, err := collect(tx, getAccountCypher, params)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}

		records, err := collect(tx, transferSubgraphCypher(store.ClampHops(hops)), params)
		if err != nil {
			return nil, err
		}
		transfers := make([]common.Transfer, 0, len(records))
		for _, rec := range records {
			transfers = append(transfers, common.Transfer{
				TxID:   str(rec, "tx_id"),
				Source: str(rec, "src"),
				Target: str(rec, "dst"),
				Amount: num(rec, "amount"),
			})
		}
		return store.BuildTransferGraph(seed, transfers, limit), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers around %s: %w", seed, err)
	}
	if out == nil {
		return nil, notFound("account", seed)
	}
	return out.(*common.TransferGraph), nil
}

func (s *Source) TransferDegree(ctx context.Context, accountID string) (*common.Degree, error) {
	out, err := s.read(ctx, func(tx neo4jv4.Transaction) (any, error) {
		records, err := collect(tx, transferDegreeCypher, map[string]any{"seed": accountID})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		d := &common.Degree{
			In:  int(num(records[0], "in_deg")),
			Out: int(num(records[0], "out_deg")),
		}
		d.Degree = d.In + d.Out
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count transfers of %s: %w", accountID, err)
	}
	if out == nil {
		return nil, notFound("account", accountID)
	}
	return out.(*common.Degree), nil
}
