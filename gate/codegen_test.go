package gate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dylanxu/specgo/codegen"
	"github.com/dylanxu/specgo/ir"
)

func sampleSpec() *ir.Spec {
	return &ir.Spec{
		IRVersion: "0.1",
		Meta:      ir.Meta{Name: "gatefix", Version: "1", Source: "test"},
		Messages: []ir.Message{
			{
				ID: 1, Name: "status", DLC: 1,
				Signals: []ir.Signal{
					{Name: "flag", StartBit: 0, BitLength: 1, ByteOrder: ir.LittleEndian},
				},
			},
		},
	}
}

func writeGenerated(t *testing.T, dir string, spec *ir.Spec) {
	t.Helper()
	artifacts, err := codegen.Generate(spec)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, artifacts.HeaderName), artifacts.HeaderText, 0o644); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, artifacts.SourceName), artifacts.SourceText, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
}

func TestGatePassesOnFreshlyGeneratedOutput(t *testing.T) {
	spec := sampleSpec()
	dir := t.TempDir()
	writeGenerated(t, dir, spec)

	opts := DefaultOptions()
	opts.CompileCheck = false

	result, err := Run(context.Background(), spec, "spec.ir.yaml", dir, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Passed() {
		t.Fatalf("expected gate to pass, failed checks: %+v", result.FailedChecks())
	}
}

func TestGateFailsOnMissingArtifact(t *testing.T) {
	spec := sampleSpec()
	dir := t.TempDir()

	opts := DefaultOptions()
	opts.CompileCheck = false

	result, err := Run(context.Background(), spec, "spec.ir.yaml", dir, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Passed() {
		t.Fatal("expected gate to fail on missing artifacts")
	}
	found := false
	for _, c := range result.FailedChecks() {
		if c.Name == "files_exist" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected files_exist to be among the failed checks")
	}
}

func TestGateFailsOnTamperedArtifact(t *testing.T) {
	spec := sampleSpec()
	dir := t.TempDir()
	writeGenerated(t, dir, spec)

	headerName, _ := codegen.OutputFilenames(spec.Meta.Name)
	headerPath := filepath.Join(dir, headerName)
	data, err := os.ReadFile(headerPath)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	data = append(data, []byte("\n/* tampered */\n")...)
	if err := os.WriteFile(headerPath, data, 0o644); err != nil {
		t.Fatalf("write tampered header: %v", err)
	}

	opts := DefaultOptions()
	opts.CompileCheck = false

	result, err := Run(context.Background(), spec, "spec.ir.yaml", dir, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Passed() {
		t.Fatal("expected gate to fail on a tampered artifact")
	}
}

func TestGateDisabledCompileCheckAlwaysPasses(t *testing.T) {
	spec := sampleSpec()
	dir := t.TempDir()
	writeGenerated(t, dir, spec)

	opts := DefaultOptions()
	opts.CompileCheck = false

	result, err := Run(context.Background(), spec, "spec.ir.yaml", dir, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range result.Checks {
		if c.Name == "compile_syntax" && !c.Passed {
			t.Fatal("expected compile_syntax to pass when disabled")
		}
	}
}
