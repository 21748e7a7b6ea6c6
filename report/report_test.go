package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dylanxu/specgo/roundtrip"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestHashArtifactsStableForIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.h", "same content")
	writeTempFile(t, dir, "b.h", "same content")

	hashes, err := HashArtifacts(dir, []string{"a.h", "b.h"})
	if err != nil {
		t.Fatalf("HashArtifacts: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("expected 2 hashes, got %d", len(hashes))
	}
	if hashes[0].SHA256 != hashes[1].SHA256 {
		t.Fatal("identical file contents should hash identically")
	}
}

func TestHashArtifactsMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := HashArtifacts(dir, []string{"missing.h"}); err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
}

func TestBuildSummaryAllPassed(t *testing.T) {
	result := roundtrip.Result{
		LoopSeeds: []uint64{1, 2},
		LoopSummaries: []roundtrip.LoopSummary{
			{LoopIndex: 0, Seed: 1, CasesRun: 16, FailureCount: 0},
			{LoopIndex: 1, Seed: 2, CasesRun: 16, FailureCount: 0},
		},
		CasesRun: 32,
	}

	summary := BuildSummary("spec.ir.yaml", "deadbeef", "/gen", nil, 42, result, []string{"status"})
	if summary.Status != "PASSED" {
		t.Fatalf("expected PASSED, got %s", summary.Status)
	}
	if summary.TotalCasesRun != 32 {
		t.Fatalf("expected 32 cases run, got %d", summary.TotalCasesRun)
	}
	if len(summary.Loops) != 2 {
		t.Fatalf("expected 2 loop results, got %d", len(summary.Loops))
	}
	if summary.TotalFailures != 0 {
		t.Fatalf("expected 0 failures, got %d", summary.TotalFailures)
	}
}

func TestBuildSummaryWithFailuresMarksLoopMessageFailed(t *testing.T) {
	result := roundtrip.Result{
		LoopSeeds: []uint64{1},
		LoopSummaries: []roundtrip.LoopSummary{
			{LoopIndex: 0, Seed: 1, CasesRun: 8, FailureCount: 1},
		},
		Failures: []roundtrip.Failure{
			{LoopIndex: 0, LoopSeed: 1, MessageName: "status", Property: "raw_encode_decode_roundtrip", Detail: "mismatch"},
		},
		CasesRun: 8,
	}

	summary := BuildSummary("spec.ir.yaml", "deadbeef", "/gen", nil, 42, result, []string{"status"})
	if summary.Status != "FAILED" {
		t.Fatalf("expected FAILED, got %s", summary.Status)
	}
	if len(summary.Loops) != 1 || len(summary.Loops[0].Messages) != 1 {
		t.Fatalf("expected one failing message recorded in loop 0: %+v", summary.Loops)
	}
	if summary.Loops[0].Messages[0].Passed {
		t.Fatal("expected the status message to be marked failed")
	}
}

func TestBuildErrorReportSkippedWhenNoFailures(t *testing.T) {
	result := roundtrip.Result{}
	_, ok := BuildErrorReport("spec.ir.yaml", "deadbeef", "/gen", 42, result)
	if ok {
		t.Fatal("expected BuildErrorReport to report ok=false with no failures")
	}
}

func TestBuildErrorReportCarriesEveryFailure(t *testing.T) {
	result := roundtrip.Result{
		Failures: []roundtrip.Failure{
			{LoopIndex: 0, LoopSeed: 7, MessageName: "status", Property: "raw_encode_decode_roundtrip", Detail: "boom"},
			{LoopIndex: 1, LoopSeed: 9, MessageName: "status", Property: "raw_decode_encode_masked_roundtrip", Detail: "bam"},
		},
	}
	errReport, ok := BuildErrorReport("spec.ir.yaml", "deadbeef", "/gen", 42, result)
	if !ok {
		t.Fatal("expected ok=true when failures are present")
	}
	if errReport.TotalFailures != 2 || len(errReport.Errors) != 2 {
		t.Fatalf("expected 2 errors recorded, got %+v", errReport)
	}
}

func TestWriteSummaryRoundTripsAsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.report.yaml")

	summary := Summary{ToolVersion: ToolVersion, IRPath: "spec.ir.yaml", Status: "PASSED", MasterSeed: 1}
	if err := WriteSummary(path, summary); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Summary
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != "PASSED" || got.IRPath != "spec.ir.yaml" {
		t.Fatalf("round-tripped summary mismatch: %+v", got)
	}
	if got.GeneratedAtUTC == "" {
		t.Fatal("expected WriteSummary to stamp generated_at_utc")
	}
}

func TestShortFormJSONReflectsSummary(t *testing.T) {
	summary := Summary{
		Status:        "FAILED",
		MasterSeed:    123,
		TotalFailures: 2,
		Loops:         []LoopResult{{LoopIndex: 0}, {LoopIndex: 1}, {LoopIndex: 2}},
	}
	out, err := ShortFormJSON(summary)
	if err != nil {
		t.Fatalf("ShortFormJSON: %v", err)
	}
	want := `"status":"FAILED"`
	if !strings.Contains(out, want) {
		t.Fatalf("expected %s to contain %s", out, want)
	}
	if !strings.Contains(out, `"total_loops":3`) {
		t.Fatalf("expected total_loops=3 in %s", out)
	}
}
