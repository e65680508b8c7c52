package store

import (
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
)

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SnapshotBuilder collects nodes and edges from query rows. Nodes and edges
// are deduplicated by id and keep their first-seen order.
type SnapshotBuilder struct {
	nodes     []common.Node
	edges     []common.Edge
	nodeIndex map[string]struct{}
	edgeIndex map[string]struct{}
}

func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{
		nodeIndex: make(map[string]struct{}),
		edgeIndex: make(map[string]struct{}),
	}
}

func (b *SnapshotBuilder) AddNode(id, name string, kind common.NodeKind) {
	if id == "" {
		return
	}
	if _, ok := b.nodeIndex[id]; ok {
		return
	}
	b.nodeIndex[id] = struct{}{}
	b.nodes = append(b.nodes, common.Node{ID: id, Name: name, Kind: kind})
}

// AddEdge adds an edge between two already added nodes. Edges with an
// unknown endpoint are dropped so the snapshot never dangles.
func (b *SnapshotBuilder) AddEdge(id, source, target, label string) {
	if _, ok := b.nodeIndex[source]; !ok {
		return
	}
	if _, ok := b.nodeIndex[target]; !ok {
		return
	}
	if id == "" {
		id = source + "->" + target
	}
	if _, ok := b.edgeIndex[id]; ok {
		return
	}
	b.edgeIndex[id] = struct{}{}
	b.edges = append(b.edges, common.Edge{ID: id, Source: source, Target: target, Label: label})
}

func (b *SnapshotBuilder) Len() int {
	return len(b.nodes)
}

func (b *SnapshotBuilder) Snapshot() *common.Snapshot {
	return &common.Snapshot{
		Nodes: append([]common.Node{}, b.nodes...),
		Edges: append([]common.Edge{}, b.edges...),
	}
}

// OwnershipEdgeID and RoleEdgeID build the stable edge ids used by every
// source.
func OwnershipEdgeID(ownerID, companyID string) string {
	return ownerID + "->" + companyID
}

func RoleEdgeID(personID, companyID, role string) string {
	return fmt.Sprintf("%s->%s#%s", personID, companyID, role)
}

const (
	MinTransferHops = 1
	MaxTransferHops = 3
)

// ClampHops bounds a requested transfer neighbourhood radius to [1,3].
func ClampHops(hops int) int {
	return max(MinTransferHops, min(hops, MaxTransferHops))
}

// BuildTransferGraph assembles a transfer neighbourhood from the transfers
// touching it. The seed account comes first. Accounts and transfers are each
// capped at limit, and transfers whose endpoints fell off the account list are
// dropped. A limit <= 0 means no cap.
func BuildTransferGraph(seed string, transfers []common.Transfer, limit int) *common.TransferGraph {
	accounts := DedupeStrings(append([]string{seed}, transferEndpoints(transfers)...))
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}

	kept := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		kept[a] = struct{}{}
	}
	out := make([]common.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if limit > 0 && len(out) == limit {
			break
		}
		_, src := kept[t.Source]
		_, dst := kept[t.Target]
		if src && dst {
			out = append(out, t)
		}
	}

	return &common.TransferGraph{Accounts: accounts, Transfers: out}
}

func transferEndpoints(transfers []common.Transfer) []string {
	out := make([]string, 0, 2*len(transfers))
	for _, t := range transfers {
		out = append(out, t.Source, t.Target)
	}
	return out
}
