package pgx

const listCompaniesSQL = `
SELECT id, COALESCE(NULLIF(name, ''), id) AS name
FROM entities
WHERE kind = 'company'
ORDER BY 2, 1;
`

const getCompanySQL = `
SELECT id, COALESCE(NULLIF(name, ''), id)
FROM entities
WHERE id = $1 AND kind = 'company';
`

const holdersSQL = `
SELECT o.owner_id, COALESCE(NULLIF(ow.name, ''), ow.id), ow.kind,
       o.company_id, COALESCE(NULLIF(co.name, ''), co.id), co.kind,
       o.percent
FROM ownerships o
JOIN entities ow ON ow.id = o.owner_id
JOIN entities co ON co.id = o.company_id
WHERE o.company_id = $1
ORDER BY o.owner_id;
`

const subsidiariesSQL = `
SELECT o.owner_id, COALESCE(NULLIF(ow.name, ''), ow.id), ow.kind,
       o.company_id, COALESCE(NULLIF(co.name, ''), co.id), co.kind,
       o.percent
FROM ownerships o
JOIN entities ow ON ow.id = o.owner_id
JOIN entities co ON co.id = o.company_id
WHERE o.owner_id = $1 AND co.kind = 'company'
ORDER BY o.company_id;
`

// networkSQL walks ownership edges backwards from the company. UNION drops
// repeated (edge, depth) pairs so cycles stop at the depth bound.
const networkSQL = `
WITH RECURSIVE chain (owner_id, company_id, depth) AS (
    SELECT o.owner_id, o.company_id, 1
    FROM ownerships o
    WHERE o.company_id = $1
  UNION
    SELECT o.owner_id, o.company_id, c.depth + 1
    FROM ownerships o
    JOIN chain c ON o.company_id = c.owner_id
    WHERE c.depth < $2
)
SELECT o.owner_id, COALESCE(NULLIF(ow.name, ''), ow.id), ow.kind,
       o.company_id, COALESCE(NULLIF(co.name, ''), co.id), co.kind,
       o.percent
FROM ownerships o
JOIN (SELECT DISTINCT owner_id, company_id FROM chain) e
  ON e.owner_id = o.owner_id AND e.company_id = o.company_id
JOIN entities ow ON ow.id = o.owner_id
JOIN entities co ON co.id = o.company_id
ORDER BY o.company_id, o.owner_id;
`

const boardSQL = `
SELECT p.id, COALESCE(NULLIF(p.name, ''), p.id), r.role
FROM roles r
JOIN entities p ON p.id = r.person_id
WHERE r.company_id = $1
ORDER BY p.id, r.role;
`

const otherMandatesSQL = `
SELECT r.person_id, c.id, COALESCE(NULLIF(c.name, ''), c.id), r.role
FROM roles r
JOIN entities c ON c.id = r.company_id
WHERE r.person_id = ANY($1) AND r.company_id <> $2
ORDER BY r.person_id, c.id, r.role
LIMIT $3;
`

const getAccountSQL = `
SELECT id FROM accounts WHERE id = $1;
`

const transferSubgraphSQL = `
WITH RECURSIVE reach (id, depth) AS (
    SELECT $1::text, 0
  UNION
    SELECT t.dst, r.depth + 1
    FROM transfers t
    JOIN reach r ON t.src = r.id
    WHERE r.depth < $2
),
ns AS (SELECT DISTINCT id FROM reach)
SELECT t.tx_id, t.src, t.dst, t.amount
FROM transfers t
WHERE t.src IN (SELECT id FROM ns) OR t.dst IN (SELECT id FROM ns)
ORDER BY t.tx_id;
`

const transferDegreeSQL = `
SELECT count(*) FILTER (WHERE dst = $1) AS in_deg,
       count(*) FILTER (WHERE src = $1) AS out_deg
FROM transfers
WHERE src = $1 OR dst = $1;
`
