package neo4j

import (
	neo4jv4 "github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// str reads a string column. Missing and null values read as "".
func str(rec *neo4jv4.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// num reads a numeric column. Neo4j integers arrive as int64, floats as
// float64; anything else reads as 0.
func num(rec *neo4jv4.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
