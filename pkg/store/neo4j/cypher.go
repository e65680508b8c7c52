package neo4j

import "fmt"

const listCompaniesCypher = `
MATCH (c:Company)
RETURN c.id AS id, coalesce(c.name, c.id) AS name
ORDER BY name, id
`

const getCompanyCypher = `
MATCH (c:Company {id: $cid})
RETURN c.id AS id, coalesce(c.name, c.id) AS name
`

// stakeColumns projects an OWNS relationship r between a and b.
const stakeColumns = `
RETURN a.id AS src, coalesce(a.name, a.id) AS src_name,
       CASE WHEN a:Person THEN 'person' ELSE 'company' END AS src_kind,
       b.id AS dst, coalesce(b.name, b.id) AS dst_name,
       CASE WHEN b:Person THEN 'person' ELSE 'company' END AS dst_kind,
       coalesce(r.percent, 0) AS percent
`

const holdersCypher = `
MATCH (a)-[r:OWNS]->(b:Company {id: $cid})
WHERE a:Person OR a:Company
` + stakeColumns + `
ORDER BY src
`

const subsidiariesCypher = `
MATCH (a:Company {id: $cid})-[r:OWNS]->(b:Company)
` + stakeColumns + `
ORDER BY dst
`

// networkCypher inlines the depth because variable length bounds cannot be
// parameters.
func networkCypher(maxDepth int) string {
	return fmt.Sprintf(`
MATCH p = (o)-[:OWNS*1..%d]->(:Company {id: $cid})
WHERE o:Person OR o:Company
UNWIND relationships(p) AS r
WITH DISTINCT r
WITH r, startNode(r) AS a, endNode(r) AS b
%s
ORDER BY dst, src
`, maxDepth, stakeColumns)
}

const boardCypher = `
MATCH (p:Person)-[r:ROLE]->(:Company {id: $cid})
RETURN p.id AS pid, coalesce(p.name, p.id) AS pname, coalesce(r.type, 'ROLE') AS role
ORDER BY pid, role
`

const otherMandatesCypher = `
UNWIND $pids AS pid
MATCH (p:Person {id: pid})-[r:ROLE]->(o:Company)
WHERE o.id <> $cid
RETURN p.id AS pid, o.id AS oid, coalesce(o.name, o.id) AS oname, coalesce(r.type, 'ROLE') AS role
ORDER BY pid, oid, role
LIMIT $limit
`

const getAccountCypher = `
MATCH (a:Account {id: $seed})
RETURN a.id AS id
`

func transferSubgraphCypher(hops int) string {
	return fmt.Sprintf(`
MATCH (s:Account {id: $seed})
OPTIONAL MATCH (s)-[:SENT_TO*1..%d]->(m:Account)
WITH s, collect(DISTINCT m) + [s] AS ns
MATCH (a:Account)-[r:SENT_TO]->(b:Account)
WHERE a IN ns OR b IN ns
WITH DISTINCT r, a, b
RETURN coalesce(r.tx_id, '') AS tx_id, a.id AS src, b.id AS dst, coalesce(r.amount, 0) AS amount
ORDER BY tx_id
`, hops)
}

const transferDegreeCypher = `
MATCH (a:Account {id: $seed})
RETURN size([(a)<-[:SENT_TO]-() | 1]) AS in_deg,
       size([(a)-[:SENT_TO]->() | 1]) AS out_deg
`
