// Package report renders the canonical summary and error YAML
// documents a roundtrip campaign produces, per spec.md §4.H.
package report

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dylanxu/specgo/roundtrip"
)

// ToolVersion is the embedded build identity stamped into every
// report, a fixed version tag rather than one derived at runtime.
const ToolVersion = "specgo/0.1"

// ArtifactHash names one generated file and its content hash.
type ArtifactHash struct {
	Name   string `yaml:"name"`
	SHA256 string `yaml:"sha256"`
}

// MessageLoopResult is one message's outcome within one loop.
type MessageLoopResult struct {
	Message string `yaml:"message"`
	Passed  bool   `yaml:"passed"`
	Cases   int    `yaml:"cases"`
}

// LoopResult is one campaign loop's totally-ordered outcome.
type LoopResult struct {
	LoopIndex int                 `yaml:"loop_index"`
	LoopSeed  uint64              `yaml:"loop_seed"`
	Passed    bool                `yaml:"passed"`
	CasesRun  int                 `yaml:"cases_run"`
	Failures  int                 `yaml:"failures"`
	Messages  []MessageLoopResult `yaml:"messages,omitempty"`
}

// Summary is the always-written report for one campaign.
type Summary struct {
	GeneratedAtUTC  string         `yaml:"generated_at_utc"`
	ToolVersion     string         `yaml:"tool_version"`
	IRPath          string         `yaml:"ir_path"`
	IRContentSHA256 string         `yaml:"ir_content_sha256"`
	ArtifactDir     string         `yaml:"artifact_dir"`
	ArtifactHashes  []ArtifactHash `yaml:"artifact_hashes"`
	MasterSeed      uint64         `yaml:"master_seed"`
	LoopSeeds       []uint64       `yaml:"loop_seeds"`
	Loops           []LoopResult   `yaml:"loops"`
	TotalCasesRun   int            `yaml:"total_cases_run"`
	TotalFailures   int            `yaml:"total_failures"`
	Status          string         `yaml:"status"`
}

// ErrorEntry is one failed property check, carrying everything needed
// to reproduce it from (master_seed, loop_index) alone.
type ErrorEntry struct {
	LoopIndex int               `yaml:"loop_index"`
	LoopSeed  uint64            `yaml:"loop_seed"`
	Message   string            `yaml:"message"`
	Property  string            `yaml:"property"`
	CaseIndex int               `yaml:"case_index"`
	Input     map[string]uint64 `yaml:"input,omitempty"`
	Encoded   []byte            `yaml:"encoded,omitempty"`
	Decoded   map[string]uint64 `yaml:"decoded,omitempty"`
	Detail    string            `yaml:"detail"`
}

// ErrorReport is written only when a campaign produced failures.
type ErrorReport struct {
	GeneratedAtUTC  string       `yaml:"generated_at_utc"`
	ToolVersion     string       `yaml:"tool_version"`
	IRPath          string       `yaml:"ir_path"`
	IRContentSHA256 string       `yaml:"ir_content_sha256"`
	ArtifactDir     string       `yaml:"artifact_dir"`
	MasterSeed      uint64       `yaml:"master_seed"`
	TotalFailures   int          `yaml:"total_failures"`
	Errors          []ErrorEntry `yaml:"errors"`
}

func sha256OfFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}

// HashArtifacts hashes every named file under dir, in the given
// (deterministic) name order.
func HashArtifacts(dir string, names []string) ([]ArtifactHash, error) {
	hashes := make([]ArtifactHash, 0, len(names))
	for _, name := range names {
		sum, err := sha256OfFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("report: hash %s: %w", name, err)
		}
		hashes = append(hashes, ArtifactHash{Name: name, SHA256: sum})
	}
	return hashes, nil
}

// BuildSummary assembles a Summary from a completed roundtrip.Result.
// messageOrder must list every message name in the same order the
// campaign bound its messages, so per-loop message breakdowns are
// stable across runs.
func BuildSummary(irPath, irContentSHA256, artifactDir string, artifactHashes []ArtifactHash, masterSeed uint64, result roundtrip.Result, messageOrder []string) Summary {
	perLoopByIndex := map[int]map[string]*MessageLoopResult{}
	for _, f := range result.Failures {
		byMsg, ok := perLoopByIndex[f.LoopIndex]
		if !ok {
			byMsg = map[string]*MessageLoopResult{}
			perLoopByIndex[f.LoopIndex] = byMsg
		}
		mr, ok := byMsg[f.MessageName]
		if !ok {
			mr = &MessageLoopResult{Message: f.MessageName, Passed: true}
			byMsg[f.MessageName] = mr
		}
		mr.Passed = false
	}

	loops := make([]LoopResult, 0, len(result.LoopSummaries))
	for _, ls := range result.LoopSummaries {
		var messages []MessageLoopResult
		if byMsg, ok := perLoopByIndex[ls.LoopIndex]; ok {
			for _, name := range messageOrder {
				if mr, ok := byMsg[name]; ok {
					messages = append(messages, *mr)
				}
			}
		}
		loops = append(loops, LoopResult{
			LoopIndex: ls.LoopIndex,
			LoopSeed:  ls.Seed,
			Passed:    ls.Passed(),
			CasesRun:  ls.CasesRun,
			Failures:  ls.FailureCount,
			Messages:  messages,
		})
	}

	status := "PASSED"
	if len(result.Failures) > 0 {
		status = "FAILED"
	}

	return Summary{
		ToolVersion:     ToolVersion,
		IRPath:          irPath,
		IRContentSHA256: irContentSHA256,
		ArtifactDir:     artifactDir,
		ArtifactHashes:  artifactHashes,
		MasterSeed:      masterSeed,
		LoopSeeds:       result.LoopSeeds,
		Loops:           loops,
		TotalCasesRun:   result.CasesRun,
		TotalFailures:   len(result.Failures),
		Status:          status,
	}
}

// BuildErrorReport assembles an ErrorReport, or reports ok=false if
// result had no failures (callers should skip writing in that case).
func BuildErrorReport(irPath, irContentSHA256, artifactDir string, masterSeed uint64, result roundtrip.Result) (ErrorReport, bool) {
	if len(result.Failures) == 0 {
		return ErrorReport{}, false
	}

	entries := make([]ErrorEntry, 0, len(result.Failures))
	for _, f := range result.Failures {
		entries = append(entries, ErrorEntry{
			LoopIndex: f.LoopIndex,
			LoopSeed:  f.LoopSeed,
			Message:   f.MessageName,
			Property:  f.Property,
			CaseIndex: f.CaseIndex,
			Input:     f.Input,
			Encoded:   f.Encoded,
			Decoded:   f.Decoded,
			Detail:    f.Detail,
		})
	}

	return ErrorReport{
		ToolVersion:     ToolVersion,
		IRPath:          irPath,
		IRContentSHA256: irContentSHA256,
		ArtifactDir:     artifactDir,
		MasterSeed:      masterSeed,
		TotalFailures:   len(result.Failures),
		Errors:          entries,
	}, true
}

// Stamp sets GeneratedAtUTC on a Summary/ErrorReport-shaped value at
// write time, kept separate from Build* so the pure assembly functions
// above stay clock-free and deterministically testable.
func utcTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// WriteSummary stamps and writes s to path as canonical YAML.
func WriteSummary(path string, s Summary) error {
	s.GeneratedAtUTC = utcTimestamp()
	return writeYAML(path, s)
}

// WriteError stamps and writes e to path as canonical YAML.
func WriteError(path string, e ErrorReport) error {
	e.GeneratedAtUTC = utcTimestamp()
	return writeYAML(path, e)
}

func writeYAML(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: mkdir %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("report: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// TimestampSlug returns a filesystem-safe UTC timestamp for report
// filenames, per spec.md §6's `<out>/raw_reports/<ts>-raw.*.yaml`
// layout.
func TimestampSlug() string {
	return time.Now().UTC().Format("20060102T150405Z")
}
