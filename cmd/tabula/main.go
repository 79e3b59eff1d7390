package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/tabula/chain"
	"github.com/vegasq/tabula/output"
	"github.com/vegasq/tabula/reader"
	"github.com/vegasq/tabula/table"
)

var (
	outputFlag   = flag.String("o", "table", "Output format: table, csv, tsv, jsonl")
	typeFlag     = flag.String("t", "", "Input type: csv, tsv, parquet (default: from file extension, else csv)")
	noHeaderFlag = flag.Bool("no-header", false, "Treat the first row as data and name columns column_1..N")
	validateFlag = flag.Bool("check", false, "Validate the expression and exit without reading input")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <expression> [file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A tool to transform tabular data with chain expressions.\n")
		fmt.Fprintf(os.Stderr, "Reads from stdin when no file is given.\n\n")
		fmt.Fprintf(os.Stderr, "IMPORTANT: All flags must come BEFORE the expression.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s \"select(name,age).sortby(age).head(5)\" data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s \"where(age>30 & city=='Berlin').count()\" data.tsv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -t parquet -o jsonl \"groupby(city, mean)\" data.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat data.csv | %s \"groupby(city)\"\n", os.Args[0])
	}

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: missing chain expression\n\n")
		flag.Usage()
		os.Exit(1)
	}
	expr := flag.Arg(0)

	if *validateFlag {
		if err := chain.ValidateChain(expr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var filename string
	if flag.NArg() >= 2 {
		filename = flag.Arg(1)
	}

	inputType := resolveInputType(*typeFlag, filename)
	switch inputType {
	case "csv", "tsv", "parquet":
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported input type '%s'\n", inputType)
		fmt.Fprintf(os.Stderr, "Supported types: csv, tsv, parquet\n")
		os.Exit(1)
	}

	tbl, err := readTable(filename, inputType, *noHeaderFlag)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: file '%s' not found\n", filename)
			fmt.Fprintf(os.Stderr, "Please check the file path and try again.\n")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	result, err := chain.Evaluate(expr, tbl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		// List available columns to help the user
		if cols := tbl.Columns(); len(cols) > 0 {
			fmt.Fprintf(os.Stderr, "\nAvailable columns: %s\n", strings.Join(cols, ", "))
		}
		os.Exit(1)
	}

	if result.Terminal && result.Table == nil {
		fmt.Println(chain.FormatTerminal(result.Value))
		return
	}
	writeTable(result.Table, *outputFlag)
}

// resolveInputType picks the input type from the flag, then the file
// extension, then falls back to csv
func resolveInputType(flagValue, filename string) string {
	if flagValue != "" {
		return flagValue
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tsv":
		return "tsv"
	case ".parquet":
		return "parquet"
	default:
		return "csv"
	}
}

func readTable(filename, inputType string, noHeader bool) (*table.Table, error) {
	if inputType == "parquet" {
		if filename == "" {
			return nil, fmt.Errorf("parquet input requires a file argument")
		}
		return reader.ReadParquet(filename)
	}

	var in io.Reader = os.Stdin
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		in = file
	}

	opts := reader.Options{NoHeader: noHeader}
	if inputType == "tsv" {
		opts.Delimiter = '\t'
	}
	return reader.ReadDelimited(in, opts)
}

func writeTable(t *table.Table, format string) {
	switch format {
	case "table", "csv", "tsv", "jsonl":
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported format '%s'\n", format)
		fmt.Fprintf(os.Stderr, "Supported formats: table, csv, tsv, jsonl\n")
		os.Exit(1)
	}

	formatter := output.New(format, os.Stdout)
	if err := formatter.Format(t); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
}
