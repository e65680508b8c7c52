package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const snapshotJSON = `{
  "nodes": [
    {"id": "T", "name": "Target AB", "kind": "company"},
    {"id": "H", "name": "Holding AB", "kind": "company"},
    {"id": "P1", "name": "Anna", "kind": "person"},
    {"id": "P2", "name": "Bo", "kind": "person"}
  ],
  "edges": [
    {"source": "P1", "target": "H", "label": "60%"},
    {"source": "H", "target": "T", "label": "50%"},
    {"source": "P2", "target": "T", "label": "50%"},
    {"source": "P2", "target": "H", "label": "Chair"}
  ]
}`

const snapshotYAML = `nodes:
  - {id: T, name: Target AB, kind: company}
  - {id: P1, name: Anna, kind: person}
  - {id: P2, name: Bo, kind: person}
edges:
  - {source: P1, target: T, label: "70%"}
  - {source: P2, target: T, label: "45%"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSolveJSON(t *testing.T) {
	path := writeFile(t, "snapshot.json", snapshotJSON)

	for _, strategy := range []string{"fixed_point", "paths", "linear"} {
		t.Run(strategy, func(t *testing.T) {
			out, stderr, err := run(t, "solve", "--file", path, "--target", "T", "--strategy", strategy, "--json")
			if err != nil {
				t.Fatalf("solve: %v", err)
			}
			if !strings.Contains(stderr, "P2 -> H") {
				t.Errorf("expected skipped role label on stderr, got %q", stderr)
			}

			var got solveOutput
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("decode output: %v\n%s", err, out)
			}
			if got.Strategy != strategy {
				t.Errorf("strategy = %q, want %q", got.Strategy, strategy)
			}
			if len(got.Owners) != 2 {
				t.Fatalf("owners = %+v, want 2 rows", got.Owners)
			}
			if got.Owners[0].ID != "P2" || got.Owners[0].Percent != 50 {
				t.Errorf("first row = %+v, want P2 50%%", got.Owners[0])
			}
			if got.Owners[1].ID != "P1" || got.Owners[1].Percent != 30 || got.Owners[1].Name != "Anna" {
				t.Errorf("second row = %+v, want Anna 30%%", got.Owners[1])
			}
			if len(got.Skipped) != 1 || got.Skipped[0].Label != "Chair" {
				t.Errorf("skipped = %+v, want the Chair edge", got.Skipped)
			}
		})
	}
}

func TestSolveTable(t *testing.T) {
	path := writeFile(t, "snapshot.yaml", snapshotYAML)

	out, _, err := run(t, "solve", "-f", path, "-t", "T")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	for _, want := range []string{"Target AB (T)", "ID", "PERCENT", "P1", "70.00%", "45.00%", "strategy=fixed_point", "converged=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "P1") > strings.Index(out, "P2") {
		t.Errorf("rows not ranked by percent:\n%s", out)
	}
}

func TestSolveErrors(t *testing.T) {
	path := writeFile(t, "snapshot.json", snapshotJSON)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown target", []string{"solve", "-f", path, "-t", "nope"}, "unknown target"},
		{"unknown strategy", []string{"solve", "-f", path, "-t", "T", "--strategy", "magic"}, "unknown solver strategy"},
		{"missing file", []string{"solve", "-f", filepath.Join(t.TempDir(), "none.json"), "-t", "T"}, "reading snapshot"},
		{"missing target flag", []string{"solve", "-f", path}, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSolveMalformedSnapshot(t *testing.T) {
	path := writeFile(t, "bad.json", `{"nodes":[{"id":"T","kind":"company"}],"edges":[{"source":"X","target":"T","label":"10%"}]}`)

	_, _, err := run(t, "solve", "-f", path, "-t", "T")
	if err == nil {
		t.Fatal("expected an error for a dangling edge")
	}
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "snapshot.yaml", snapshotYAML)

	out, _, err := run(t, "validate", "-f", path, "--json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var got validateOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Nodes != 3 {
		t.Errorf("nodes = %d, want 3", got.Nodes)
	}
	if len(got.Anomalies) != 1 || got.Anomalies[0].NodeID != "T" || got.Anomalies[0].Owners != 2 {
		t.Errorf("anomalies = %+v, want T held 115%% by 2 owners", got.Anomalies)
	}

	text, _, err := run(t, "validate", "-f", writeFile(t, "s.json", snapshotJSON))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(text, "1 skipped labels, 0 cap table anomalies") || !strings.Contains(text, `"Chair"`) {
		t.Errorf("unexpected validate output:\n%s", text)
	}
}
