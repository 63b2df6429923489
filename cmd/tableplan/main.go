package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/internal/config"
	"github.com/spektr-org/tableplan/internal/logging"
	"github.com/spektr-org/tableplan/table"
	"github.com/spektr-org/tableplan/translator"
)

// ============================================================================
// TABLEPLAN CLI: Run analysis plans against CSV or JSON tables
// ============================================================================

const version = "0.1.0"

func main() {
	// ── Flags ─────────────────────────────────────────────────────────────
	filePath := flag.String("file", "", "Path to CSV or JSON records file (required)")
	planPath := flag.String("plan", "", "Path to a plan JSON file to execute")
	queryStr := flag.String("query", "", "Question to plan with the AI translator")
	repl := flag.Bool("repl", false, "Start an interactive session")
	configPath := flag.String("config", "", "Path to YAML config file")
	model := flag.String("model", "", "Gemini model name (overrides config)")
	format := flag.String("format", "json", "Output format: json, pretty, csv, text")
	outFile := flag.String("out", "", "Write output to file instead of stdout")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `tableplan - run analysis plans against a table

Usage:
  tableplan --file sales.csv --plan plan.json --format pretty
  tableplan --file sales.csv --query "revenue by region" --format text
  tableplan --file sales.csv --repl

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  GEMINI_API_KEY    Required for --query and for AI answers in --format text
  TABLEPLAN_*       Overrides any config key, e.g. TABLEPLAN_ENGINE_MAX_COLUMNS=20

Formats:
  json      Result table, provenance log and skipped operations as JSON (default)
  pretty    Pretty-printed JSON
  csv       Result table as CSV (ready for Sheets/Excel)
  text      Aligned table plus a short answer when an API key is set
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("tableplan %s\n", version)
		os.Exit(0)
	}

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		flag.Usage()
		os.Exit(1)
	}
	if !*repl && *planPath == "" && *queryStr == "" {
		fmt.Fprintln(os.Stderr, "Error: one of --plan, --query or --repl is required")
		flag.Usage()
		os.Exit(1)
	}
	switch *format {
	case "json", "pretty", "csv", "text":
	default:
		fatalf("Unknown format %q", *format)
	}

	// ── Config + logging ──────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if *model != "" {
		cfg.Translator.Model = *model
	}
	logger, closeLog := logging.Setup(cfg.Log, os.Stderr)
	defer closeLog()
	slog.SetDefault(logger)

	// ── Read data ─────────────────────────────────────────────────────────
	tbl, err := loadTable(*filePath)
	if err != nil {
		closeLog()
		fatalf("Failed to load %s: %v", *filePath, err)
	}
	logger.Info("📊 loaded table",
		slog.String("file", *filePath),
		slog.Int("rows", tbl.NumRows()),
		slog.Int("columns", tbl.NumColumns()))

	s := newSession(tbl, filepath.Base(*filePath), cfg, logger)
	ctx := context.Background()

	if *repl {
		if err := runREPL(ctx, s, os.Stdout); err != nil {
			closeLog()
			fatalf("REPL failed: %v", err)
		}
		return
	}

	// ── Output writer ─────────────────────────────────────────────────────
	var writer io.Writer = os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			closeLog()
			fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		writer = f
	}

	// ── Plan ──────────────────────────────────────────────────────────────
	var plan *engine.Plan
	if *planPath != "" {
		data, err := os.ReadFile(*planPath)
		if err != nil {
			closeLog()
			fatalf("Failed to read plan file: %v", err)
		}
		plan, err = engine.DecodePlan(data)
		if err != nil {
			closeLog()
			fatalf("Failed to parse plan: %v", err)
		}
	} else {
		plan, err = s.requestPlan(ctx, *queryStr)
		if err != nil {
			closeLog()
			fatalf("Planning failed: %v", err)
		}
	}

	// ── Execute ───────────────────────────────────────────────────────────
	res, err := s.execute(plan)
	if errors.Is(err, engine.ErrEmptyPlan) {
		closeLog()
		fatalf("Could not complete analysis: no usable plan for this question")
	}
	if err != nil {
		closeLog()
		fatalf("Execution failed: %v", err)
	}

	// ── Render output ─────────────────────────────────────────────────────
	switch *format {
	case "csv":
		if err := helpers.WriteCSV(writer, res.Table); err != nil {
			closeLog()
			fatalf("Failed to write CSV: %v", err)
		}
	case "text":
		preview := helpers.BuildPreview(res.Table, cfg.Preview.Rows)
		writeText(writer, preview, res)
		if answer := s.summarize(ctx, *queryStr, preview, res.Log); answer != "" {
			fmt.Fprintf(writer, "\n%s\n", answer)
		}
	default:
		out := newCLIOutput(*queryStr, plan, res, cfg.Preview.Rows)
		if err := writeJSON(writer, out, *format == "pretty"); err != nil {
			closeLog()
			fatalf("Failed to marshal output: %v", err)
		}
	}
	if *outFile != "" {
		logger.Info("📄 output written", slog.String("file", *outFile))
	}
}

// loadTable reads CSV, or JSON records when the file is .json or starts with '['.
func loadTable(path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.EqualFold(filepath.Ext(path), ".json") || strings.HasPrefix(trimmed, "[") {
		return helpers.ReadJSONRecords(data)
	}
	return helpers.ReadCSV(data)
}

// newGemini builds the translator from config, or returns nil without an API key.
func newGemini(cfg *config.Config, logger *slog.Logger) *translator.Gemini {
	if cfg.Translator.APIKey == "" {
		return nil
	}
	return translator.NewGemini(translator.Config{
		APIKey:   cfg.Translator.APIKey,
		Model:    cfg.Translator.Model,
		Endpoint: cfg.Translator.Endpoint,
		Timeout:  cfg.Translator.Timeout,
	}, logger)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
