// Package memory is a GraphSource held entirely in process memory. It backs
// GRAPH_SOURCE=memory for local runs and the handler tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"
)

var (
	_ store.GraphSource      = (*Source)(nil)
	_ store.GraphWriter      = (*Source)(nil)
	_ store.ReportRepository = (*Source)(nil)
)

type roleKey struct {
	person, company, role string
}

type stakeKey struct {
	owner, company string
}

type Source struct {
	mu         sync.RWMutex
	companies  map[string]string
	persons    map[string]string
	ownerships map[stakeKey]float64
	roles      map[roleKey]string
	transfers  map[string]common.Transfer

	reports *reportBook
}

func NewSource() *Source {
	return &Source{
		companies:  map[string]string{},
		persons:    map[string]string{},
		ownerships: map[stakeKey]float64{},
		roles:      map[roleKey]string{},
		transfers:  map[string]common.Transfer{},
		reports:    newReportBook(),
	}
}

// NewSeededSource returns a source already holding data. It fails when data
// references parties it does not define.
func NewSeededSource(data store.SampleData) (*Source, error) {
	s := NewSource()
	if err := s.Seed(context.Background(), data); err != nil {
		return nil, fmt.Errorf("failed to seed memory source: %w", err)
	}
	return s, nil
}

// Seed upserts data. Seeding the same data twice leaves the source unchanged.
func (s *Source) Seed(ctx context.Context, data store.SampleData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range data.Companies {
		s.companies[c.ID] = c.Name
	}
	for _, p := range data.Persons {
		s.persons[p.ID] = p.Name
	}
	for _, o := range data.Ownerships {
		if !s.isParty(o.OwnerID) || !s.isCompany(o.CompanyID) {
			return fmt.Errorf("ownership %s -> %s references an unknown party", o.OwnerID, o.CompanyID)
		}
		s.ownerships[stakeKey{o.OwnerID, o.CompanyID}] = o.Percent
	}
	for _, r := range data.Roles {
		if _, ok := s.persons[r.PersonID]; !ok || !s.isCompany(r.CompanyID) {
			return fmt.Errorf("role %s on %s references an unknown party", r.PersonID, r.CompanyID)
		}
		s.roles[roleKey{r.PersonID, r.CompanyID, r.Role}] = r.Since
	}
	for _, t := range data.Transfers {
		s.transfers[t.TxID] = t
	}
	return nil
}

func (s *Source) Close(context.Context) error {
	return nil
}

func (s *Source) isCompany(id string) bool {
	_, ok := s.companies[id]
	return ok
}

func (s *Source) isParty(id string) bool {
	_, ok := s.persons[id]
	return ok || s.isCompany(id)
}

func (s *Source) node(id string) (string, common.NodeKind) {
	if name, ok := s.companies[id]; ok {
		return name, common.KindCompany
	}
	return s.persons[id], common.KindPerson
}

func (s *Source) addNode(b *store.SnapshotBuilder, id string) {
	name, kind := s.node(id)
	b.AddNode(id, name, kind)
}

func (s *Source) addStake(b *store.SnapshotBuilder, k stakeKey) {
	s.addNode(b, k.owner)
	s.addNode(b, k.company)
	b.AddEdge(store.OwnershipEdgeID(k.owner, k.company), k.owner, k.company, common.FormatPercent(s.ownerships[k]))
}

func (s *Source) begin(ctx context.Context, companyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.isCompany(companyID) {
		return fmt.Errorf("%w: company %s", store.ErrNotFound, companyID)
	}
	return nil
}

// stakes returns the ownership keys matching keep, ordered by company then
// owner.
func (s *Source) stakes(keep func(stakeKey) bool) []stakeKey {
	var out []stakeKey
	for k := range s.ownerships {
		if keep(k) {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, func(a, b stakeKey) int {
		return cmp.Or(cmp.Compare(a.company, b.company), cmp.Compare(a.owner, b.owner))
	})
	return out
}

func (s *Source) Companies(ctx context.Context) ([]common.Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Company, 0, len(s.companies))
	for id, name := range s.companies {
		out = append(out, common.Company{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b common.Company) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Source) Neighborhood(ctx context.Context, companyID string, includeHolders, includeSubs bool) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin(ctx, companyID); err != nil {
		return nil, err
	}

	b := store.NewSnapshotBuilder()
	s.addNode(b, companyID)
	if includeHolders {
		for _, k := range s.stakes(func(k stakeKey) bool { return k.company == companyID }) {
			s.addStake(b, k)
		}
	}
	if includeSubs {
		for _, k := range s.stakes(func(k stakeKey) bool { return k.owner == companyID }) {
			s.addStake(b, k)
		}
	}
	return b.Snapshot(), nil
}

// Network keeps every stake whose company lies at most maxDepth-1 ownership
// hops above the target, which is the set of edges on chains of at most
// maxDepth edges.
func (s *Source) Network(ctx context.Context, companyID string, maxDepth int) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin(ctx, companyID); err != nil {
		return nil, err
	}
	maxDepth = max(maxDepth, 1)

	dist := map[string]int{companyID: 0}
	frontier := []string{companyID}
	for d := 1; d < maxDepth && len(frontier) > 0; d++ {
		var next []string
		for _, k := range s.stakes(func(k stakeKey) bool { return slices.Contains(frontier, k.company) }) {
			if _, seen := dist[k.owner]; !seen {
				dist[k.owner] = d
				next = append(next, k.owner)
			}
		}
		frontier = next
	}

	b := store.NewSnapshotBuilder()
	s.addNode(b, companyID)
	for _, k := range s.stakes(func(k stakeKey) bool { _, ok := dist[k.company]; return ok }) {
		s.addStake(b, k)
	}
	return b.Snapshot(), nil
}

func (s *Source) Governance(ctx context.Context, companyID string, maxOtherCompanies int) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin(ctx, companyID); err != nil {
		return nil, err
	}

	keys := make([]roleKey, 0, len(s.roles))
	for k := range s.roles {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b roleKey) int {
		return cmp.Or(cmp.Compare(a.person, b.person), cmp.Compare(a.company, b.company), cmp.Compare(a.role, b.role))
	})

	b := store.NewSnapshotBuilder()
	s.addNode(b, companyID)
	board := map[string]bool{}
	for _, k := range keys {
		if k.company != companyID {
			continue
		}
		s.addNode(b, k.person)
		b.AddEdge(store.RoleEdgeID(k.person, k.company, k.role), k.person, k.company, k.role)
		board[k.person] = true
	}

	taken := 0
	for _, k := range keys {
		if taken >= maxOtherCompanies {
			break
		}
		if !board[k.person] || k.company == companyID {
			continue
		}
		s.addNode(b, k.company)
		b.AddEdge(store.RoleEdgeID(k.person, k.company, k.role), k.person, k.company, k.role)
		taken++
	}
	return b.Snapshot(), nil
}

func (s *Source) hasAccount(id string) bool {
	for _, t := range s.transfers {
		if t.Source == id || t.Target == id {
			return true
		}
	}
	return false
}

func (s *Source) sortedTransfers() []common.Transfer {
	out := make([]common.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b common.Transfer) int { return cmp.Compare(a.TxID, b.TxID) })
	return out
}

func (s *Source) TransferSubgraph(ctx context.Context, seed string, hops, limit int) (*common.TransferGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAccount(seed) {
		return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, seed)
	}

	all := s.sortedTransfers()
	reach := map[string]bool{seed: true}
	frontier := []string{seed}
	for range store.ClampHops(hops) {
		var next []string
		for _, t := range all {
			if slices.Contains(frontier, t.Source) && !reach[t.Target] {
				reach[t.Target] = true
				next = append(next, t.Target)
			}
		}
		frontier = next
	}

	var touching []common.Transfer
	for _, t := range all {
		if reach[t.Source] || reach[t.Target] {
			touching = append(touching, t)
		}
	}
	return store.BuildTransferGraph(seed, touching, limit), nil
}

func (s *Source) TransferDegree(ctx context.Context, accountID string) (*common.Degree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAccount(accountID) {
		return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, accountID)
	}

	d := &common.Degree{}
	for _, t := range s.transfers {
		if t.Target == accountID {
			d.In++
		}
		if t.Source == accountID {
			d.Out++
		}
	}
	d.Degree = d.In + d.Out
	return d, nil
}
