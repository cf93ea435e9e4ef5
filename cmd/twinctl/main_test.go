package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIngestFromStdin(t *testing.T) {
	out, err := run(t, `{"global_metrics":{"hydration_index":80},"regions":{"forehead":{"metrics":{"texture_score":40}}}}`, "ingest", "-", "--json")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	var got struct {
		Vector   map[string]float64 `json:"vector"`
		Regions  []json.RawMessage  `json:"regions"`
		Warnings []string           `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Vector["hydration_index"] != 80 || got.Vector["oiliness_level"] != 50 {
		t.Fatalf("unexpected vector: %v", got.Vector)
	}
	if len(got.Regions) != 1 || len(got.Warnings) != 7 {
		t.Fatalf("regions=%d warnings=%d", len(got.Regions), len(got.Warnings))
	}
}

func TestIngestMalformedFails(t *testing.T) {
	if _, err := run(t, `{"regions":{}}`, "ingest", "-"); err == nil {
		t.Fatalf("expected malformed analysis error")
	}
}

func TestAdjustmentsValidate(t *testing.T) {
	good := writeFile(t, "good.yaml", "version: \"1\"\nentries:\n  - kind: routine\n    key: add_moisturizer\n    shift:\n      hydration_index: 5\n")
	out, err := run(t, "", "adjustments", "validate", good)
	if err != nil || !strings.Contains(out, "version 1, 1 entries") {
		t.Fatalf("validate good: err=%v out=%q", err, out)
	}

	bad := writeFile(t, "bad.yaml", "version: \"1\"\nentries:\n  - kind: diet\n    key: sugar\n")
	if _, err := run(t, "", "adjustments", "validate", bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSimulateCommand(t *testing.T) {
	table := writeFile(t, "adj.yaml", "version: \"t1\"\nentries:\n  - kind: routine\n    key: add_moisturizer\n    shift:\n      hydration_index: 5\n    slope_per_day:\n      hydration_index: 0.5\n")
	out, err := run(t, "", "simulate", "--table", table, "--set", "hydration_index=30",
		"--change", "routine:add_moisturizer", "--change", "routine:retinol", "--horizon", "10", "--json")
	if err != nil {
		t.Fatalf("simulate: %v\n%s", err, out)
	}
	var got struct {
		Version  string             `json:"adjustment_version"`
		Expected map[string]float64 `json:"expected_vector"`
		Warnings []string           `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Version != "t1" || got.Expected["hydration_index"] != 40 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "unknown_change:retinol" {
		t.Fatalf("warnings: %v", got.Warnings)
	}

	if _, err := run(t, "", "simulate", "--horizon", "0"); err == nil {
		t.Fatalf("expected invalid horizon")
	}
	if _, err := run(t, "", "simulate", "--change", "diet:sugar"); err == nil {
		t.Fatalf("expected bad change kind")
	}
	if _, err := run(t, "", "simulate", "--set", "glow=3"); err == nil {
		t.Fatalf("expected unknown dimension")
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "", "token", "7f1c2b7e-3a4d-4c9e-9b1a-2f6f0d8e5c11", "--secret", "s3cret")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("expected a JWT, got %q", out)
	}
	if _, err := run(t, "", "token", "not-a-uuid", "--secret", "x"); err == nil {
		t.Fatalf("expected bad user id error")
	}
}
