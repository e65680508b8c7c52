package common

import "strconv"

// NodeKind distinguishes the two kinds of parties in an ownership graph.
type NodeKind string

const (
	KindCompany NodeKind = "company"
	KindPerson  NodeKind = "person"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	return k == KindCompany || k == KindPerson
}

// Node is a party in an ownership graph. Identity is the ID; Name is carried
// for presentation only and is never read by the solver.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Kind NodeKind `json:"kind" yaml:"kind"`
}

// DisplayName returns the name of the node, falling back to its ID.
func (n Node) DisplayName() string {
	if n.Name == "" {
		return n.ID
	}
	return n.Name
}

// Edge is a labelled relationship as delivered by a graph source. The label
// is free text: ownership edges carry a percentage such as "60%", governance
// edges carry a role such as "Chair".
type Edge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label" yaml:"label"`
}

// Snapshot is the node and edge list returned by a graph source for a single
// query. Edge order is preserved.
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Company is a company listing entry.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OwnershipRow is one line of a ranked effective ownership result. Percent is
// in [0,100] and rounded to two decimals.
type OwnershipRow struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Percent float64 `json:"percent"`
}

// Transfer is a money transfer between two accounts.
type Transfer struct {
	TxID   string  `json:"tx_id"`
	Source string  `json:"src"`
	Target string  `json:"dst"`
	Amount float64 `json:"amount"`
}

// TransferGraph is an account neighbourhood in the transfer graph.
type TransferGraph struct {
	Accounts  []string   `json:"accounts"`
	Transfers []Transfer `json:"transfers"`
}

// Degree counts the transfers touching an account.
type Degree struct {
	In     int `json:"inDeg"`
	Out    int `json:"outDeg"`
	Degree int `json:"degree"`
}

// FormatPercent renders a percentage value as an ownership edge label, e.g.
// 12.5 becomes "12.5%".
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}
