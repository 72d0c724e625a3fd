package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/travel-receipt/internal/extraction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// run parses one receipt from in and writes the result to out
func run(in io.Reader, out io.Writer, fragments bool, notes bool, opts ...extraction.Option) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var result extraction.Result
	if fragments {
		var frags []extraction.Fragment
		if err := json.Unmarshal(data, &frags); err != nil {
			return fmt.Errorf("decoding fragments: %w", err)
		}
		result = extraction.Parse(frags, opts...)
	} else {
		result = extraction.ParseText(string(data), opts...)
	}

	if notes {
		if items := extraction.ItemsToText(result.Items, result.CurrencyCode); items != "" {
			fmt.Fprintln(out, items)
		}
		if meta := extraction.InvoiceToText(extraction.MetaOf(result)); meta != "" {
			fmt.Fprintln(out, meta)
		}
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

func main() {
	fs := ff.NewFlagSet("receipt-parse")
	var (
		fragments   = fs.BoolLong("fragments", "Input is a JSON array of {\"text\",\"y\"} fragments instead of plain text")
		notes       = fs.BoolLong("notes", "Print the expense notes instead of the JSON result")
		currency    = fs.StringLong("currency", extraction.DefaultCurrency, "Currency code used when the receipt names none")
		receiptKind = fs.StringLong("receipt-kind", "general", "Unlabeled total policy: 'general' or 'itemized'")
		debug       = fs.BoolLong("debug", "Log rejected candidates")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TRAVEL_RECEIPT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	kind, err := extraction.ParseKind(*receiptKind)
	if err != nil {
		slog.Error("Invalid receipt kind", "error", err)
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if args := fs.GetArgs(); len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			slog.Error("Failed to open input", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := run(in, os.Stdout, *fragments, *notes, extraction.WithCurrency(*currency), extraction.WithKind(kind)); err != nil {
		slog.Error("Failed to parse receipt", "error", err)
		os.Exit(1)
	}
}
