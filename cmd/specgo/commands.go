package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dylanxu/specgo/codegen"
	"github.com/dylanxu/specgo/config"
	"github.com/dylanxu/specgo/gate"
	"github.com/dylanxu/specgo/ir"
	"github.com/dylanxu/specgo/ir/validate"
	"github.com/dylanxu/specgo/logging"
	"github.com/dylanxu/specgo/report"
	"github.com/dylanxu/specgo/roundtrip"
)

func loadAndValidate(path string) (*ir.Spec, error) {
	spec, err := ir.Load(path)
	if err != nil {
		return nil, fmt.Errorf("ir: %w", err)
	}
	issues := validate.Validate(spec)
	if len(issues) > 0 {
		if issues.HasCategory(validate.CategorySchema) {
			return nil, fmt.Errorf("%s", issues.Error())
		}
		return nil, &validate.SemanticError{Issues: issues}
	}
	return spec, nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	in := fs.String("in", "", "path to an IR YAML document")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("validate: --in is required")
	}

	spec, err := ir.Load(*in)
	if err != nil {
		return err
	}
	issues := validate.Validate(spec)
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, issue.String())
		}
		return fmt.Errorf("validate: %d issue(s)", len(issues))
	}

	name, _ := spec.Identity()
	logging.Log.Infof("validate: %s OK (%d messages)", name, len(spec.Messages))
	return nil
}

func runCodegen(args []string) error {
	fs := flag.NewFlagSet("codegen", flag.ExitOnError)
	in := fs.String("in", "", "path to an IR YAML document")
	out := fs.String("out", "", "directory to write generated sources into")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("codegen: --in is required")
	}

	spec, err := loadAndValidate(*in)
	if err != nil {
		return err
	}

	genDir := *out
	if genDir == "" {
		genDir = filepath.Join(config.Default().OutputRoot, "gen")
	}

	artifacts, err := codegen.Generate(spec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return fmt.Errorf("codegen: mkdir %s: %w", genDir, err)
	}
	if err := os.WriteFile(filepath.Join(genDir, artifacts.HeaderName), artifacts.HeaderText, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(genDir, artifacts.SourceName), artifacts.SourceText, 0o644); err != nil {
		return err
	}

	logging.Log.Infof("codegen: wrote %s and %s to %s", artifacts.HeaderName, artifacts.SourceName, genDir)
	return nil
}

func runGate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gate", flag.ExitOnError)
	in := fs.String("in", "", "path to an IR YAML document")
	genDir := fs.String("gen", "", "directory containing generated sources")
	compiler := fs.String("compiler", "cc", "native compiler to invoke")
	noCompile := fs.Bool("no-compile-check", false, "skip the native compile-syntax check")
	fs.Parse(args)
	if *in == "" || *genDir == "" {
		return fmt.Errorf("gate: --in and --gen are required")
	}

	spec, err := loadAndValidate(*in)
	if err != nil {
		return err
	}

	opts := gate.DefaultOptions()
	opts.Compiler = *compiler
	opts.CompileCheck = !*noCompile

	result, err := gate.Run(ctx, spec, *in, *genDir, opts)
	if err != nil {
		return err
	}
	for _, c := range result.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		logging.Log.Infof("gate: [%s] %s (%s)", status, c.Name, c.Detail)
	}
	if !result.Passed() {
		return fmt.Errorf("gate: failed (%d check(s) failed)", len(result.FailedChecks()))
	}
	return nil
}

// runGateBatch gates every spec named in a manifest file concurrently.
// Each non-blank, non-comment line is "<ir-path>,<gen-dir>".
func runGateBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gate-batch", flag.ExitOnError)
	manifest := fs.String("manifest", "", "path to a manifest of \"<ir-path>,<gen-dir>\" lines")
	compiler := fs.String("compiler", "cc", "native compiler to invoke")
	noCompile := fs.Bool("no-compile-check", false, "skip the native compile-syntax check")
	fs.Parse(args)
	if *manifest == "" {
		return fmt.Errorf("gate-batch: --manifest is required")
	}

	data, err := os.ReadFile(*manifest)
	if err != nil {
		return fmt.Errorf("gate-batch: %w", err)
	}

	var jobs []gate.Job
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return fmt.Errorf("gate-batch: malformed manifest line %q", line)
		}
		irPath, genDir := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		spec, err := loadAndValidate(irPath)
		if err != nil {
			return fmt.Errorf("gate-batch: %s: %w", irPath, err)
		}
		jobs = append(jobs, gate.Job{Spec: spec, IRPath: irPath, GenDir: genDir})
	}

	opts := gate.DefaultOptions()
	opts.Compiler = *compiler
	opts.CompileCheck = !*noCompile

	results, err := gate.RunMany(ctx, jobs, opts)
	if err != nil {
		return err
	}

	failed := 0
	for name, result := range results {
		status := "PASS"
		if !result.Passed() {
			status = "FAIL"
			failed++
		}
		logging.Log.Infof("gate-batch: [%s] %s (%d check(s))", status, name, len(result.Checks))
	}
	if failed > 0 {
		return fmt.Errorf("gate-batch: %d of %d spec(s) failed", failed, len(results))
	}
	return nil
}

type roundtripFlags struct {
	in           string
	genDir       string
	compiler     string
	loops        int
	masterSeed   uint64
	casesPerSeed int
	failPolicy   string
	reportDir    string
	mqttBroker   string
	mqttTopic    string
	messageNames string
}

func parseRoundtripFlags(fs *flag.FlagSet, args []string) (*roundtripFlags, error) {
	f := &roundtripFlags{}
	fs.StringVar(&f.in, "in", "", "path to an IR YAML document")
	fs.StringVar(&f.genDir, "gen", "", "directory for generated/compiled sources")
	fs.StringVar(&f.compiler, "compiler", "cc", "native compiler to invoke")
	fs.IntVar(&f.loops, "loops", 0, "campaign loop count (0 = config default)")
	fs.Uint64Var(&f.masterSeed, "master-seed", 0, "master seed (0 = derive from current time)")
	fs.IntVar(&f.casesPerSeed, "cases-per-seed", 4, "sampled cases per property per loop")
	fs.StringVar(&f.failPolicy, "fail-policy", string(config.ContinueOnFail), "continue-on-fail or stop-on-fail")
	fs.StringVar(&f.reportDir, "report-dir", "", "directory for campaign reports")
	fs.StringVar(&f.mqttBroker, "notify-mqtt", "", "MQTT broker address to notify on completion")
	fs.StringVar(&f.mqttTopic, "mqtt-topic", "specgo/roundtrip", "MQTT topic for the completion notice")
	fs.StringVar(&f.messageNames, "only-messages", "", "comma-separated message names to restrict the campaign to (default: all)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.in == "" {
		return nil, fmt.Errorf("--in is required")
	}
	return f, nil
}

func runRoundtripCampaign(ctx context.Context, f *roundtripFlags, spec *ir.Spec) (*report.Summary, *report.ErrorReport, error) {
	cfg := config.Default()
	loops := f.loops
	if loops <= 0 {
		loops = cfg.DefaultLoops
	}
	masterSeed := f.masterSeed
	if masterSeed == 0 {
		masterSeed = roundtrip.DeriveSeed(uint64(os.Getpid()), len(spec.Messages))
	}
	failPolicy := config.FailPolicy(f.failPolicy)

	genDir := f.genDir
	if genDir == "" {
		genDir = filepath.Join(cfg.OutputRoot, "gen")
	}

	headerName, sourceName := codegen.OutputFilenames(spec.Meta.Name)
	sourcePath := filepath.Join(genDir, sourceName)
	if _, err := os.Stat(sourcePath); err != nil {
		artifacts, err := codegen.Generate(spec)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(genDir, 0o755); err != nil {
			return nil, nil, err
		}
		if err := os.WriteFile(filepath.Join(genDir, headerName), artifacts.HeaderText, 0o644); err != nil {
			return nil, nil, err
		}
		if err := os.WriteFile(sourcePath, artifacts.SourceText, 0o644); err != nil {
			return nil, nil, err
		}
	}

	projectCName := codegen.Identifier(spec.Meta.Name)
	libPath := roundtrip.LibraryPath(genDir, projectCName)
	if err := roundtrip.CompileSharedLibrary(ctx, f.compiler, sourcePath, genDir, libPath); err != nil {
		return nil, nil, err
	}

	lib, err := roundtrip.OpenLibrary(libPath)
	if err != nil {
		return nil, nil, err
	}
	defer lib.Close()

	bindings, err := roundtrip.BindSpec(lib, spec)
	if err != nil {
		return nil, nil, err
	}

	messageOrder := make([]string, 0, len(bindings))
	for _, b := range bindings {
		messageOrder = append(messageOrder, b.Message.Name)
	}

	campaign := roundtrip.Campaign{
		ProjectName:  spec.Meta.Name,
		Bindings:     bindings,
		Loops:        loops,
		MasterSeed:   masterSeed,
		CasesPerSeed: f.casesPerSeed,
		FailPolicy:   failPolicy,
		Filter:       messageFilter(f.messageNames, spec),
	}
	result := campaign.Run(ctx)

	irHash, err := report.HashArtifacts(filepath.Dir(f.in), []string{filepath.Base(f.in)})
	if err != nil {
		return nil, nil, err
	}

	artifactHashes, err := report.HashArtifacts(genDir, []string{headerName, sourceName})
	if err != nil {
		return nil, nil, err
	}

	summary := report.BuildSummary(f.in, irHash[0].SHA256, genDir, artifactHashes, masterSeed, result, messageOrder)

	reportDir := f.reportDir
	if reportDir == "" {
		reportDir = filepath.Join(filepath.Dir(genDir), "raw_reports")
	}
	stamp := report.TimestampSlug()
	if err := report.WriteSummary(filepath.Join(reportDir, stamp+"-raw.report.yaml"), summary); err != nil {
		return nil, nil, err
	}

	errReport, hasErrors := report.BuildErrorReport(f.in, irHash[0].SHA256, genDir, masterSeed, result)
	if hasErrors {
		if err := report.WriteError(filepath.Join(reportDir, stamp+"-raw.error.report.yaml"), errReport); err != nil {
			return nil, nil, err
		}
		return &summary, &errReport, nil
	}
	return &summary, nil, nil
}

// messageFilter builds an enabled roundtrip.Filter from a
// comma-separated --only-messages list, or returns nil (meaning: run
// every message) when the flag is unset.
func messageFilter(names string, spec *ir.Spec) *roundtrip.Filter {
	if names == "" {
		return nil
	}
	wanted := map[string]bool{}
	for _, n := range strings.Split(names, ",") {
		n = strings.TrimSpace(n)
		if n != "" {
			wanted[n] = true
		}
	}

	filter := roundtrip.NewFilter()
	filter.SetEnabled(true)
	for _, msg := range spec.Messages {
		if wanted[msg.Name] {
			filter.Allow(msg.ID, nil)
		}
	}
	return filter
}

func runRoundtrip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	f, err := parseRoundtripFlags(fs, args)
	if err != nil {
		return err
	}

	spec, err := loadAndValidate(f.in)
	if err != nil {
		return err
	}

	summary, _, err := runRoundtripCampaign(ctx, f, spec)
	if err != nil {
		return err
	}

	short, err := report.ShortFormJSON(*summary)
	if err != nil {
		return err
	}
	logging.Log.Info("roundtrip: " + short)

	if f.mqttBroker != "" {
		n, err := connectNotifier(f.mqttBroker, "specgo-cli", f.mqttTopic, 1)
		if err != nil {
			logging.Log.Error(err)
		} else {
			defer n.close()
			if err := n.publish([]byte(short)); err != nil {
				logging.Log.Error(err)
			}
		}
	}

	if summary.Status != "PASSED" {
		return fmt.Errorf("roundtrip: campaign status=%s (%d failures)", summary.Status, summary.TotalFailures)
	}
	return nil
}

func runPipeline(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	f, err := parseRoundtripFlags(fs, args)
	if err != nil {
		return err
	}

	spec, err := loadAndValidate(f.in)
	if err != nil {
		return err
	}
	logging.Log.Infof("run: validated %s", f.in)

	genDir := f.genDir
	if genDir == "" {
		genDir = filepath.Join(config.Default().OutputRoot, "gen")
	}
	if err := runCodegen([]string{"--in", f.in, "--out", genDir}); err != nil {
		return err
	}

	if err := runGate(ctx, []string{"--in", f.in, "--gen", genDir, "--compiler", f.compiler}); err != nil {
		return err
	}
	logging.Log.Info("run: gate passed")

	summary, _, err := runRoundtripCampaign(ctx, f, spec)
	if err != nil {
		return err
	}

	short, err := report.ShortFormJSON(*summary)
	if err != nil {
		return err
	}
	logging.Log.Info("run: " + short)

	if summary.Status != "PASSED" {
		return fmt.Errorf("run: campaign status=%s (%d failures)", summary.Status, summary.TotalFailures)
	}
	return nil
}

func runConfigCmd(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	write := fs.String("write", "", "write the default configuration to this path")
	fs.Parse(args)

	cfg := defaultConfigOrDie()
	if *write != "" {
		return cfg.Save(*write)
	}
	fmt.Printf("%+v\n", cfg)
	return nil
}
