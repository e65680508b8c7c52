package store

import "github.com/OFFIS-RIT/stakegraph/pkg/common"

type Person struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Ownership is a direct stake of OwnerID (a person or company) in CompanyID.
// Percent is in [0,100].
type Ownership struct {
	OwnerID   string  `json:"owner_id" yaml:"owner_id"`
	CompanyID string  `json:"company_id" yaml:"company_id"`
	Percent   float64 `json:"percent" yaml:"percent"`
}

// Role is a governance mandate of a person in a company.
type Role struct {
	PersonID  string `json:"person_id" yaml:"person_id"`
	CompanyID string `json:"company_id" yaml:"company_id"`
	Role      string `json:"role" yaml:"role"`
	Since     string `json:"since,omitempty" yaml:"since,omitempty"`
}

// SampleData is everything a source can be seeded with.
type SampleData struct {
	Companies  []common.Company  `json:"companies" yaml:"companies"`
	Persons    []Person          `json:"persons" yaml:"persons"`
	Ownerships []Ownership       `json:"ownerships" yaml:"ownerships"`
	Roles      []Role            `json:"roles" yaml:"roles"`
	Transfers  []common.Transfer `json:"transfers" yaml:"transfers"`
}

// Snapshot renders the ownership and governance data as a single snapshot
// with percentage labels on stakes and role names on mandates.
func (d SampleData) Snapshot() common.Snapshot {
	b := NewSnapshotBuilder()
	for _, c := range d.Companies {
		b.AddNode(c.ID, c.Name, common.KindCompany)
	}
	for _, p := range d.Persons {
		b.AddNode(p.ID, p.Name, common.KindPerson)
	}
	for _, o := range d.Ownerships {
		b.AddEdge(OwnershipEdgeID(o.OwnerID, o.CompanyID), o.OwnerID, o.CompanyID, common.FormatPercent(o.Percent))
	}
	for _, r := range d.Roles {
		b.AddEdge(RoleEdgeID(r.PersonID, r.CompanyID, r.Role), r.PersonID, r.CompanyID, r.Role)
	}
	return *b.Snapshot()
}

const (
	NordicWidgets  = "556000-1111"
	BorealHolding  = "559000-7777"
	NWLogistics    = "556990-2222"
	NWResearch     = "FI-2999999-9"
	SkandiFoods    = "556222-3333"
	TasteGroup     = "559123-8888"
	SkandiNorge    = "NO-812345678"
	AuroraConsult  = "969700-4444"
	DeltaMarine    = "556300-2222"
	HaparandaPlast = "559500-9090"
)

// Sample returns the demo data set: two ownership chains, one holding
// company, a partnership, board mandates across companies and a small
// transfer cycle between three accounts.
func Sample() SampleData {
	return SampleData{
		Companies: []common.Company{
			{ID: NordicWidgets, Name: "Nordic Widgets AB"},
			{ID: BorealHolding, Name: "Boreal Holding AB"},
			{ID: NWLogistics, Name: "Nordic Widgets Logistics AB"},
			{ID: NWResearch, Name: "NW Research Oy"},
			{ID: SkandiFoods, Name: "Skandi Foods AB"},
			{ID: TasteGroup, Name: "Taste Group AB"},
			{ID: SkandiNorge, Name: "Skandi Foods Norge AS"},
			{ID: AuroraConsult, Name: "Aurora Consulting KB"},
			{ID: DeltaMarine, Name: "Delta Marine AB"},
			{ID: HaparandaPlast, Name: "Haparanda Plast AB"},
		},
		Persons: []Person{
			{ID: "P-ANNA", Name: "Anna Berg"},
			{ID: "P-ERIK", Name: "Erik Lind"},
			{ID: "P-LARS", Name: "Lars Nyström"},
			{ID: "P-KARIN", Name: "Karin Persson"},
			{ID: "P-SOFIA", Name: "Sofia Karlsson"},
			{ID: "P-OMAR", Name: "Omar Ali"},
			{ID: "P-PETER", Name: "Peter Holm"},
			{ID: "P-NINA", Name: "Nina Aalto"},
			{ID: "P-MATS", Name: "Mats Grön"},
			{ID: "P-EVA", Name: "Eva Lund"},
		},
		Ownerships: []Ownership{
			{OwnerID: "P-ANNA", CompanyID: NordicWidgets, Percent: 60},
			{OwnerID: "P-ERIK", CompanyID: NordicWidgets, Percent: 25},
			{OwnerID: BorealHolding, CompanyID: NordicWidgets, Percent: 15},
			{OwnerID: "P-LARS", CompanyID: BorealHolding, Percent: 100},
			{OwnerID: NordicWidgets, CompanyID: NWLogistics, Percent: 100},
			{OwnerID: NordicWidgets, CompanyID: NWResearch, Percent: 70},
			{OwnerID: TasteGroup, CompanyID: SkandiFoods, Percent: 80},
			{OwnerID: "P-KARIN", CompanyID: SkandiFoods, Percent: 20},
			{OwnerID: SkandiFoods, CompanyID: SkandiNorge, Percent: 100},
			{OwnerID: "P-SOFIA", CompanyID: TasteGroup, Percent: 55},
			{OwnerID: "P-OMAR", CompanyID: TasteGroup, Percent: 45},
			{OwnerID: "P-PETER", CompanyID: AuroraConsult, Percent: 50},
			{OwnerID: "P-NINA", CompanyID: AuroraConsult, Percent: 50},
		},
		Roles: []Role{
			{PersonID: "P-ANNA", CompanyID: NordicWidgets, Role: "Chair", Since: "2023-03-01"},
			{PersonID: "P-ERIK", CompanyID: NordicWidgets, Role: "BoardMember", Since: "2022-05-15"},
			{PersonID: "P-MATS", CompanyID: NordicWidgets, Role: "BoardMember", Since: "2024-02-01"},
			{PersonID: "P-EVA", CompanyID: NordicWidgets, Role: "CEO", Since: "2024-09-01"},
			{PersonID: "P-PETER", CompanyID: NordicWidgets, Role: "Auditor", Since: "2023-01-01"},
			{PersonID: "P-ANNA", CompanyID: TasteGroup, Role: "BoardMember", Since: "2021-06-01"},
			{PersonID: "P-ANNA", CompanyID: DeltaMarine, Role: "BoardMember", Since: "2022-10-01"},
			{PersonID: "P-ERIK", CompanyID: SkandiFoods, Role: "BoardMember", Since: "2020-01-01"},
			{PersonID: "P-MATS", CompanyID: HaparandaPlast, Role: "BoardMember", Since: "2023-11-01"},
			{PersonID: "P-EVA", CompanyID: NWResearch, Role: "BoardMember", Since: "2021-04-01"},
			{PersonID: "P-PETER", CompanyID: SkandiFoods, Role: "Auditor", Since: "2022-01-01"},
			{PersonID: "P-PETER", CompanyID: TasteGroup, Role: "Auditor", Since: "2022-01-01"},
		},
		Transfers: []common.Transfer{
			{TxID: "tx_1", Source: "acct_A", Target: "acct_B", Amount: 2500},
			{TxID: "tx_2", Source: "acct_B", Target: "acct_C", Amount: 3000},
			{TxID: "tx_3", Source: "acct_A", Target: "acct_C", Amount: 1200},
			{TxID: "tx_4", Source: "acct_C", Target: "acct_A", Amount: 500},
		},
	}
}
