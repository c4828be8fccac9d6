// Command rulec analyzes a YAML rule file, reports every diagnostic and
// dumps the lowered rules.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/rewrite-abi/internal/config"
	"github.com/wippyai/rewrite-abi/ir"
	"github.com/wippyai/rewrite-abi/sema"
	"github.com/wippyai/rewrite-abi/sema/ast"
)

// errDiagnostics marks a run that reported analysis errors.
var errDiagnostics = errors.New("analysis failed")

func main() {
	var (
		configFile  = flag.String("config", "", "Path to rulec.toml (default: search upwards from the working directory)")
		dump        = flag.String("dump", "", "IR output format: text, cbor or none")
		output      = flag.String("o", "", "Write the IR to this file instead of stdout")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		logFormat   = flag.String("log-format", "", "Log format: console or json")
		noExpand    = flag.Bool("no-expand", false, "Keep internal extractor macros as terms")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if flag.NArg() > 0 {
		cfg.Input = flag.Arg(0)
	}
	if *dump != "" {
		cfg.Output.Format = *dump
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *noExpand {
		cfg.Analysis.ExpandInternalExtractors = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: rulec [flags] <rules.yaml>")
		fmt.Fprintln(os.Stderr, "       rulec -i <rules.yaml>  (interactive mode)")
		flag.PrintDefaults()
		os.Exit(2)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()
	sema.SetLogger(log.Named("sema"))

	if *interactive {
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	color := term.IsTerminal(int(os.Stderr.Fd()))
	if err := run(cfg, log, os.Stdout, newReporter(os.Stderr, color)); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(".")
}

// analyze decodes and analyzes cfg.Input, reporting diagnostics to r.
func analyze(cfg *config.Config, r *reporter) (*ir.Program, error) {
	defs, err := ast.DecodeFile(cfg.Input)
	if err != nil {
		var se *ast.SyntaxError
		if errors.As(err, &se) {
			r.report(se.Pos, se.Msg)
			r.summary(1)
			return nil, errDiagnostics
		}
		return nil, err
	}

	opts := sema.Options{ExpandInternalExtractors: cfg.Analysis.ExpandInternalExtractors}
	tyenv, termenv, err := sema.Analyze(defs, opts)
	if err != nil {
		var errs sema.Errors
		if !errors.As(err, &errs) {
			return nil, err
		}
		for _, e := range errs {
			r.report(e.Pos, e.Msg)
		}
		r.summary(len(errs))
		return nil, errDiagnostics
	}
	return ir.Lower(tyenv, termenv), nil
}

func run(cfg *config.Config, log *zap.Logger, stdout io.Writer, r *reporter) error {
	prog, err := analyze(cfg, r)
	if err != nil {
		return err
	}
	log.Info("analysis complete",
		zap.String("input", cfg.Input),
		zap.Int("types", len(prog.Types)),
		zap.Int("terms", len(prog.Terms)),
		zap.Int("rules", len(prog.Rules)))

	if cfg.Output.Format == "none" {
		return nil
	}

	w := stdout
	if cfg.Output.Path != "" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch cfg.Output.Format {
	case "cbor":
		data, err := ir.Marshal(prog)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	default:
		if err := prog.WriteText(w); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
