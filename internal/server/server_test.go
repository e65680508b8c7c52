package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	mid "github.com/OFFIS-RIT/stakegraph/internal/server/middleware"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"
	"github.com/OFFIS-RIT/stakegraph/pkg/store/memory"

	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp091.Publishing
	keys      []string
	fail      bool
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp091.Table) error {
	return nil
}

func (f *fakeChannel) Publish(_, key string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

type fakeObjects struct{}

func (fakeObjects) PutJSON(context.Context, string, any) error { return nil }

func (fakeObjects) GetFile(context.Context, string) ([]byte, error) { return nil, nil }

func (fakeObjects) GenerateDownloadLink(_ context.Context, key string) (string, error) {
	return "https://objects.example/" + key, nil
}

type testEnv struct {
	e      *echo.Echo
	source *memory.Source
	queue  *fakeChannel
}

func newTestEnv(t *testing.T, withQueue bool) *testEnv {
	t.Helper()
	source, err := memory.NewSeededSource(store.Sample())
	if err != nil {
		t.Fatalf("NewSeededSource: %v", err)
	}
	params := graph.NewSolverParams{Strategy: graph.StrategyFixedPoint}
	solver, err := graph.NewSolver(params)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}

	env := &testEnv{source: source}
	app := &mid.App{
		Source:       source,
		Reports:      source,
		Objects:      fakeObjects{},
		Solver:       solver,
		SolverParams: params,
		NetworkDepth: 8,
	}
	if withQueue {
		env.queue = &fakeChannel{}
		app.Queue = env.queue
	}
	env.e = NewServer(app, []string{"http://localhost:3000"})
	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type ownerRow struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCompanies(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/ownership/companies", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	companies := decode[[]map[string]string](t, rec)
	if len(companies) != 10 || companies[0]["name"] != "Aurora Consulting KB" {
		t.Fatalf("unexpected companies: %v", companies)
	}
}

func TestOwnershipGraph(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/ownership/graph?company_id="+store.NordicWidgets, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	doc := decode[struct {
		Nodes []struct {
			Data struct{ ID, Label, Type string }
		}
		Edges []struct {
			Data struct{ Source, Target, Label string }
		}
	}](t, rec)

	labels := map[string]string{}
	for _, n := range doc.Nodes {
		labels[n.Data.ID] = n.Data.Label
	}
	if labels[store.NordicWidgets] != "Nordic Widgets AB\n(556000-1111)" {
		t.Errorf("company label = %q", labels[store.NordicWidgets])
	}
	for _, id := range []string{"P-ANNA", "P-ERIK", store.BorealHolding, store.NWLogistics, store.NWResearch} {
		if _, ok := labels[id]; !ok {
			t.Errorf("missing node %s", id)
		}
	}
	if len(doc.Edges) != 5 {
		t.Errorf("edges = %d, want 5", len(doc.Edges))
	}

	rec = env.do(t, http.MethodGet, "/api/ownership/graph?company_id="+store.NordicWidgets+"&include_subs=false", "")
	doc2 := decode[struct {
		Edges []json.RawMessage
	}](t, rec)
	if len(doc2.Edges) != 3 {
		t.Errorf("holders only: edges = %d, want 3", len(doc2.Edges))
	}
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"missing company", http.MethodGet, "/api/ownership/graph", "", http.StatusBadRequest},
		{"unknown company", http.MethodGet, "/api/ownership/graph?company_id=nope", "", http.StatusNotFound},
		{"unknown cap table", http.MethodGet, "/api/ownership/cap-table?company_id=nope", "", http.StatusNotFound},
		{"unknown effective", http.MethodGet, "/api/ownership/effective?company_id=nope", "", http.StatusNotFound},
		{"bad strategy", http.MethodGet, "/api/ownership/effective?company_id=" + store.NordicWidgets + "&strategy=magic", "", http.StatusBadRequest},
		{"depth too large", http.MethodGet, "/api/ownership/effective?company_id=" + store.NordicWidgets + "&depth=65", "", http.StatusBadRequest},
		{"governance unknown", http.MethodGet, "/api/governance/full-graph?company_id=nope", "", http.StatusNotFound},
		{"subgraph unknown", http.MethodGet, "/api/graph/subgraph?seed=acct_Z", "", http.StatusNotFound},
		{"subgraph limit", http.MethodGet, "/api/graph/subgraph?seed=acct_A&limit=0", "", http.StatusBadRequest},
		{"degree unknown", http.MethodGet, "/api/graph/degree/acct_Z", "", http.StatusNotFound},
		{"report unknown", http.MethodGet, "/api/ownership/reports/none", "", http.StatusNotFound},
		{"reports without queue", http.MethodPost, "/api/ownership/reports", `{"company_id":"` + store.NordicWidgets + `"}`, http.StatusServiceUnavailable},
		{"post malformed", http.MethodPost, "/api/ownership/effective", `{"target":"T","nodes":[{"id":"T","kind":"company"}],"edges":[{"source":"X","target":"T","label":"10%"}]}`, http.StatusUnprocessableEntity},
		{"post unknown target", http.MethodPost, "/api/ownership/effective", `{"target":"Q","nodes":[{"id":"T","kind":"company"}]}`, http.StatusNotFound},
		{"post without nodes", http.MethodPost, "/api/ownership/effective", `{"target":"T"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			body := decode[map[string]string](t, rec)
			if body["error"] == "" {
				t.Errorf("expected an error message, got %s", rec.Body.String())
			}
		})
	}
}

func TestCapTable(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/ownership/cap-table?company_id="+store.NordicWidgets, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[struct {
		Owners       []ownerRow
		Subsidiaries []ownerRow
		Total        float64
	}](t, rec)

	if res.Total != 100 {
		t.Errorf("total = %v, want 100", res.Total)
	}
	wantOwners := []string{"P-ANNA", "P-ERIK", store.BorealHolding}
	if len(res.Owners) != len(wantOwners) {
		t.Fatalf("owners = %+v", res.Owners)
	}
	for i, id := range wantOwners {
		if res.Owners[i].ID != id {
			t.Errorf("owner %d = %s, want %s", i, res.Owners[i].ID, id)
		}
	}
	if len(res.Subsidiaries) != 2 || res.Subsidiaries[0].ID != store.NWLogistics || res.Subsidiaries[1].Percent != 70 {
		t.Errorf("subsidiaries = %+v", res.Subsidiaries)
	}
}

func TestEffectiveOwnership(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		company string
		want    []ownerRow
	}{
		{store.NordicWidgets, []ownerRow{{ID: "P-ANNA", Percent: 60}, {ID: "P-ERIK", Percent: 25}, {ID: "P-LARS", Percent: 15}}},
		{store.SkandiNorge, []ownerRow{{ID: "P-SOFIA", Percent: 44}, {ID: "P-OMAR", Percent: 36}, {ID: "P-KARIN", Percent: 20}}},
		{store.NWResearch, []ownerRow{{ID: "P-ANNA", Percent: 42}, {ID: "P-ERIK", Percent: 17.5}, {ID: "P-LARS", Percent: 10.5}}},
	}
	for _, strategy := range []string{"", "fixed_point", "paths", "linear"} {
		for _, tt := range tests {
			t.Run(strategy+"/"+tt.company, func(t *testing.T) {
				q := url.Values{"company_id": {tt.company}}
				if strategy != "" {
					q.Set("strategy", strategy)
				}
				rec := env.do(t, http.MethodGet, "/api/ownership/effective?"+q.Encode(), "")
				if rec.Code != http.StatusOK {
					t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
				}
				res := decode[struct {
					Strategy string
					Owners   []ownerRow
				}](t, rec)

				wantStrategy := strategy
				if wantStrategy == "" {
					wantStrategy = "fixed_point"
				}
				if res.Strategy != wantStrategy {
					t.Errorf("strategy = %q, want %q", res.Strategy, wantStrategy)
				}
				if len(res.Owners) != len(tt.want) {
					t.Fatalf("owners = %+v, want %+v", res.Owners, tt.want)
				}
				for i, w := range tt.want {
					if res.Owners[i].ID != w.ID || res.Owners[i].Percent != w.Percent {
						t.Errorf("row %d = %+v, want %+v", i, res.Owners[i], w)
					}
					if res.Owners[i].Name == "" {
						t.Errorf("row %d has no name", i)
					}
				}
			})
		}
	}
}

func TestPostEffectiveOwnership(t *testing.T) {
	env := newTestEnv(t, false)

	body := `{
		"target": "T",
		"strategy": "paths",
		"nodes": [
			{"id": "T", "kind": "company"},
			{"id": "A", "kind": "company"},
			{"id": "B", "kind": "company"},
			{"id": "P", "name": "Pia", "kind": "person"}
		],
		"edges": [
			{"source": "P", "target": "A", "label": "100%"},
			{"source": "A", "target": "B", "label": "50%"},
			{"source": "B", "target": "T", "label": "40%"},
			{"source": "A", "target": "T", "label": "10%"},
			{"source": "P", "target": "T", "label": "Chair"}
		]
	}`
	rec := env.do(t, http.MethodPost, "/api/ownership/effective", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[struct {
		Owners  []ownerRow
		Paths   int
		Skipped []struct{ Label string }
	}](t, rec)

	if len(res.Owners) != 1 || res.Owners[0].ID != "P" || res.Owners[0].Percent != 30 || res.Owners[0].Name != "Pia" {
		t.Errorf("owners = %+v, want Pia with 30%%", res.Owners)
	}
	if res.Paths != 2 {
		t.Errorf("paths = %d, want 2", res.Paths)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Label != "Chair" {
		t.Errorf("skipped = %+v", res.Skipped)
	}
}

func TestGovernance(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/governance/full-graph?company_id="+store.NordicWidgets, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	doc := decode[struct {
		Nodes []struct{ Data struct{ ID string } }
		Edges []struct{ Data struct{ Source, Target, Label string } }
	}](t, rec)

	ids := map[string]bool{}
	for _, n := range doc.Nodes {
		ids[n.Data.ID] = true
	}
	for _, id := range []string{store.NordicWidgets, "P-ANNA", "P-EVA", store.TasteGroup, store.DeltaMarine} {
		if !ids[id] {
			t.Errorf("missing node %s", id)
		}
	}
	for _, e := range doc.Edges {
		if strings.HasSuffix(e.Data.Label, "%") {
			t.Errorf("governance graph carries an ownership edge %+v", e.Data)
		}
	}

	rec = env.do(t, http.MethodGet, "/api/governance/full-graph?company_id="+store.NordicWidgets+"&max_other_companies=0", "")
	capped := decode[struct {
		Edges []json.RawMessage
	}](t, rec)
	if len(capped.Edges) != 5 {
		t.Errorf("edges without other mandates = %d, want 5", len(capped.Edges))
	}
}

func TestTransfers(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/graph/subgraph?seed=acct_A&hops=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	sub := decode[struct {
		Nodes []struct{ ID string }
		Edges []struct {
			TxID string `json:"tx_id"`
		}
	}](t, rec)
	if len(sub.Nodes) != 3 || len(sub.Edges) != 4 {
		t.Errorf("subgraph = %d nodes, %d edges, want 3 and 4", len(sub.Nodes), len(sub.Edges))
	}

	rec = env.do(t, http.MethodGet, "/api/graph/degree/acct_A", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	deg := decode[map[string]int](t, rec)
	if deg["inDeg"] != 1 || deg["outDeg"] != 2 || deg["degree"] != 3 {
		t.Errorf("degree = %v", deg)
	}
}

func TestReports(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/ownership/reports", `{"company_id":"`+store.NordicWidgets+`","strategy":"linear"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]string](t, rec)
	jobID := created["job_id"]
	if jobID == "" || created["status"] != "pending" {
		t.Fatalf("unexpected response %v", created)
	}

	if len(env.queue.keys) != 1 || env.queue.keys[0] != queue.ReportQueue {
		t.Fatalf("published to %v, want one message on %s", env.queue.keys, queue.ReportQueue)
	}
	var msg queue.QueueReportMsg
	if err := json.Unmarshal(env.queue.published[0].Body, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.JobID != jobID || msg.CompanyID != store.NordicWidgets || msg.Strategy != "linear" || msg.Depth != 8 {
		t.Errorf("message = %+v", msg)
	}

	rec = env.do(t, http.MethodGet, "/api/ownership/reports/"+jobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]any](t, rec); got["status"] != "pending" || got["download_url"] != nil {
		t.Errorf("pending report = %v", got)
	}

	key := "reports/" + store.NordicWidgets + "/" + jobID + ".json"
	if err := env.source.CompleteReport(context.Background(), jobID, key); err != nil {
		t.Fatalf("CompleteReport: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/ownership/reports/"+jobID, "")
	got := decode[map[string]any](t, rec)
	if got["status"] != "completed" || got["download_url"] != "https://objects.example/"+key {
		t.Errorf("completed report = %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/ownership/reports", `{"company_id":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown company: status = %d", rec.Code)
	}
	if len(env.queue.keys) != 1 {
		t.Errorf("unknown company was enqueued")
	}
}

func TestReportPublishFailure(t *testing.T) {
	env := newTestEnv(t, true)
	env.queue.fail = true

	rec := env.do(t, http.MethodPost, "/api/ownership/reports", `{"company_id":"`+store.NordicWidgets+`"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)
	env.do(t, http.MethodGet, "/api/ownership/companies", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `stakegraph_http_requests_total{method="GET",path="/api/ownership/companies",status="200"}`) {
		t.Errorf("request counter missing from exposition")
	}
}
