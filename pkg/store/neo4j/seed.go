package neo4j

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	neo4jv4 "github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// Seed merges the data set into the graph. Running it twice leaves the graph
// unchanged.
func (s *Source) Seed(ctx context.Context, data store.SampleData) error {
	companies := make([]any, 0, len(data.Companies))
	for _, c := range data.Companies {
		companies = append(companies, map[string]any{"id": c.ID, "name": c.Name})
	}
	persons := make([]any, 0, len(data.Persons))
	for _, p := range data.Persons {
		persons = append(persons, map[string]any{"id": p.ID, "name": p.Name})
	}
	owns := make([]any, 0, len(data.Ownerships))
	for _, o := range data.Ownerships {
		owns = append(owns, map[string]any{"owner": o.OwnerID, "company": o.CompanyID, "percent": o.Percent})
	}
	roles := make([]any, 0, len(data.Roles))
	for _, r := range data.Roles {
		roles = append(roles, map[string]any{"person": r.PersonID, "company": r.CompanyID, "role": r.Role, "since": r.Since})
	}
	transfers := make([]any, 0, len(data.Transfers))
	for _, t := range data.Transfers {
		transfers = append(transfers, map[string]any{"tx_id": t.TxID, "src": t.Source, "dst": t.Target, "amount": t.Amount})
	}

	steps := []struct {
		name   string
		cypher string
		params map[string]any
	}{
		{"companies", mergeCompaniesCypher, map[string]any{"rows": companies}},
		{"persons", mergePersonsCypher, map[string]any{"rows": persons}},
		{"ownership", mergeOwnershipCypher, map[string]any{"rows": owns}},
		{"roles", mergeRolesCypher, map[string]any{"rows": roles}},
		{"transfers", mergeTransfersCypher, map[string]any{"rows": transfers}},
	}

	return s.write(ctx, func(tx neo4jv4.Transaction) (any, error) {
		for _, step := range steps {
			result, err := tx.Run(step.cypher, step.params)
			if err != nil {
				return nil, fmt.Errorf("failed to seed %s: %w", step.name, err)
			}
			if _, err := result.Consume(); err != nil {
				return nil, fmt.Errorf("failed to seed %s: %w", step.name, err)
			}
		}
		return nil, nil
	})
}

const mergeCompaniesCypher = `
UNWIND $rows AS row
MERGE (c:Company {id: row.id})
SET c.name = row.name
`

const mergePersonsCypher = `
UNWIND $rows AS row
MERGE (p:Person {id: row.id})
SET p.name = row.name
`

const mergeOwnershipCypher = `
UNWIND $rows AS row
MATCH (o {id: row.owner})
WHERE o:Person OR o:Company
MATCH (c:Company {id: row.company})
MERGE (o)-[r:OWNS]->(c)
SET r.percent = row.percent
`

const mergeRolesCypher = `
UNWIND $rows AS row
MATCH (p:Person {id: row.person})
MATCH (c:Company {id: row.company})
MERGE (p)-[r:ROLE {type: row.role}]->(c)
SET r.since = CASE WHEN row.since = '' THEN null ELSE date(row.since) END
`

const mergeTransfersCypher = `
UNWIND $rows AS row
MERGE (a:Account {id: row.src})
MERGE (b:Account {id: row.dst})
MERGE (a)-[r:SENT_TO {tx_id: row.tx_id}]->(b)
SET r.amount = row.amount, r.ts = timestamp()
`
