// Command oasis trains the triage classifier and triages single records from
// the command line.
//
//	oasis train -data data/heat_cases.csv -out model.json
//	oasis triage -model model.json -temperature 46 -hydration 2 -skin 2 -dizzy
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linnemanlabs/go-core/log"
	v "github.com/linnemanlabs/go-core/version"

	"github.com/linnemanlabs/oasis/internal/advisory"
	vc "github.com/linnemanlabs/oasis/internal/cfg"
	"github.com/linnemanlabs/oasis/internal/classifier"
	"github.com/linnemanlabs/oasis/internal/dataset"
	"github.com/linnemanlabs/oasis/internal/llm/claude"
	"github.com/linnemanlabs/oasis/internal/locale"
	"github.com/linnemanlabs/oasis/internal/training"
	"github.com/linnemanlabs/oasis/internal/triage"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

const (
	appName                = "oasis"
	defaultAdvisoryTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.AppName = appName
	v.Component = "cli"

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: oasis <train|triage|version> [flags]")

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:], out)
	case "triage":
		return runTriage(ctx, args[1:], out)
	case "version":
		vi := v.Get()
		_, err := fmt.Fprintf(out, "%s %s (commit=%s, go=%s)\n", vi.AppName, vi.Version, vi.Commit, vi.GoVersion)
		return err
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func newLogger(c *log.Config) (log.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("log config: %w", err)
	}
	lg, err := log.New(c.ToOptions(appName))
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	return lg.With("component", "cli"), nil
}

func runTrain(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	var (
		logCfg log.Config
		data   string
		dest   string
	)
	d := classifier.DefaultOptions()
	opts := d
	fs.StringVar(&data, "data", "data/heat_cases.csv", "labelled CSV to train on")
	fs.StringVar(&dest, "out", "", "write the model bundle here (empty = report only)")
	fs.IntVar(&opts.MaxDepth, "max-depth", d.MaxDepth, "decision tree max depth")
	fs.IntVar(&opts.MinSamplesSplit, "min-samples-split", d.MinSamplesSplit, "minimum samples to split a node")
	fs.Float64Var(&opts.HoldoutRatio, "holdout-ratio", d.HoldoutRatio, "fraction held out for evaluation")
	fs.Uint64Var(&opts.Seed, "seed", d.Seed, "shuffle seed")
	logCfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	L, err := newLogger(&logCfg)
	if err != nil {
		return err
	}

	examples, err := dataset.ReadFile(data)
	if err != nil {
		return err
	}
	b, err := training.Train(examples, opts)
	if err != nil {
		return err
	}
	L.Info(ctx, "trained classifier", "examples", b.Examples, "depth", b.Model.Depth(), "leaves", b.Model.Leaves())

	if dest != "" {
		f, err := os.Create(dest) //nolint:gosec // G304: path is an operator flag
		if err != nil {
			return fmt.Errorf("create bundle: %w", err)
		}
		if err := b.Save(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write bundle: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close bundle: %w", err)
		}
		L.Info(ctx, "saved model bundle", "path", dest)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(b.Report)
}

func runTriage(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("triage", flag.ContinueOnError)
	var (
		logCfg    log.Config
		modelPath string
		data      string
		rec       vitals.Record
		apiKey    string
		cfg       advisory.Config
		lang      string
	)
	fs.StringVar(&modelPath, "model", "", "model bundle to load (empty = train from -data)")
	fs.StringVar(&data, "data", "data/heat_cases.csv", "labelled CSV used when -model is empty")
	fs.Float64Var(&rec.Temperature, "temperature", 0, "body or ambient temperature in °C")
	fs.IntVar(&rec.HydrationLevel, "hydration", 0, "hydration level 1..5")
	fs.IntVar(&rec.SkinCondition, "skin", 0, "skin condition 1=normal 2=sunburn 3=blisters")
	fs.BoolVar(&rec.Dizziness, "dizzy", false, "patient reports dizziness")
	fs.StringVar(&lang, "lang", "en", "first-aid language (en|es)")
	fs.StringVar(&apiKey, "claude-api-key", os.Getenv("OASIS_CLAUDE_API_KEY"), "request advice from Claude with this key (empty = no advice)")
	fs.StringVar(&cfg.ModelName, "advisory-model", "claude-sonnet-4-20250514", "advisory model name")
	fs.Float64Var(&cfg.Temperature, "advisory-temperature", vc.DefaultAdvisoryTemperature, "sampling temperature")
	fs.IntVar(&cfg.MaxTokens, "advisory-max-tokens", vc.DefaultAdvisoryMaxTokens, "maximum advice tokens")
	fs.DurationVar(&cfg.Timeout, "advisory-timeout", 0, "advisory deadline (0 = 30s)")
	logCfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultAdvisoryTimeout
	}

	L, err := newLogger(&logCfg)
	if err != nil {
		return err
	}

	b, err := bundleFor(modelPath, data)
	if err != nil {
		return err
	}

	var advisor triage.Advisor
	if apiKey != "" {
		advisor = advisory.New(claude.New(apiKey), L, advisory.Hooks{})
	}
	engine := triage.NewEngine(b.Model, b.Codec, advisor, cfg, L, triage.EngineHooks{})

	outcome, err := engine.Triage(ctx, rec)
	if err != nil {
		return err
	}

	localized := outcome.In(locale.Match(lang, ""))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(localized)
}

func bundleFor(modelPath, data string) (*training.Bundle, error) {
	if modelPath != "" {
		f, err := os.Open(modelPath) //nolint:gosec // G304: path is an operator flag
		if err != nil {
			return nil, fmt.Errorf("open bundle: %w", err)
		}
		defer func() { _ = f.Close() }()
		return training.Load(f)
	}
	examples, err := dataset.ReadFile(data)
	if err != nil {
		return nil, err
	}
	return training.Train(examples, classifier.DefaultOptions())
}
