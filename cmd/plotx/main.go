package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/tabula/plot"
	"github.com/vegasq/tabula/reader"
	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

var (
	programFlag  = flag.String("p", "", "Chart program (e.g., \"plot:scatter,x:age,y:income\")")
	outputFlag   = flag.String("o", "plot.png", "Output image path (extension selects the format)")
	typeFlag     = flag.String("t", "", "Input type: csv, tsv, parquet (default: from file extension, else csv)")
	noHeaderFlag = flag.Bool("no-header", false, "Treat the first row as data and name columns column_1..N")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -p <program> [options] [file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A tool to draw charts from tabular data.\n")
		fmt.Fprintf(os.Stderr, "Reads from stdin when no file is given.\n\n")
		fmt.Fprintf(os.Stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nPlot kinds:\n")
		fmt.Fprintf(os.Stderr, "  scatter  plot:scatter,x:age,y:income\n")
		fmt.Fprintf(os.Stderr, "  line     plot:line,x:day,y:visits\n")
		fmt.Fprintf(os.Stderr, "  hist     plot:hist,x:age[,bins:20]\n")
		fmt.Fprintf(os.Stderr, "  bar      plot:bar,x:city,y:population\n")
		fmt.Fprintf(os.Stderr, "  box      plot:box,x:cohort,y:score\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -p \"plot:scatter,x:age,y:income\" -o income.png data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat data.csv | %s -p \"plot:hist,x:age,bins:20,title:Ages\"\n", os.Args[0])
	}

	flag.Parse()

	if *programFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: missing chart program (-p)\n\n")
		flag.Usage()
		os.Exit(1)
	}

	program, err := script.ParseProgram(*programFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing program: %v\n", err)
		os.Exit(1)
	}

	var filename string
	if flag.NArg() >= 1 {
		filename = flag.Arg(0)
	}

	tbl, err := loadTable(filename, *typeFlag, *noHeaderFlag)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: file '%s' not found\n", filename)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if err := plot.Render(program, tbl, *outputFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cols := tbl.Columns(); len(cols) > 0 {
			fmt.Fprintf(os.Stderr, "\nAvailable columns: %s\n", strings.Join(cols, ", "))
		}
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", *outputFlag)
}

// loadTable reads tabular input the same way the tabula command does
func loadTable(filename, inputType string, noHeader bool) (*table.Table, error) {
	if inputType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".tsv":
			inputType = "tsv"
		case ".parquet":
			inputType = "parquet"
		default:
			inputType = "csv"
		}
	}

	switch inputType {
	case "parquet":
		if filename == "" {
			return nil, fmt.Errorf("parquet input requires a file argument")
		}
		return reader.ReadParquet(filename)
	case "csv", "tsv":
	default:
		return nil, fmt.Errorf("unsupported input type %q", inputType)
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
