package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/vegasq/tabula/reader"
	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/stats"
	"github.com/vegasq/tabula/table"
)

var (
	programFlag     = flag.String("p", "", "Model program (e.g., \"test:ols,dependent:y,independent:x+z\")")
	programFileFlag = flag.String("f", "", "Read the model program from a file instead of -p")
	outputFlag      = flag.String("o", "", "Write the summary to a file instead of stdout")
	separatorFlag   = flag.String("s", "", "Field separator for delimited input (single character)")
	columnsFlag     = flag.String("c", "", "Comma-separated list of columns to keep before fitting")
	typeFlag        = flag.String("t", "", "Input type: csv, tsv, parquet (default: from file extension, else csv)")
	noHeaderFlag    = flag.Bool("no-header", false, "Treat the first row as data and name columns column_1..N")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -p <program> [options] [file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A tool to fit statistical models against tabular data.\n")
		fmt.Fprintf(os.Stderr, "Reads from stdin when no file is given.\n\n")
		fmt.Fprintf(os.Stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nTests:\n")
		fmt.Fprintf(os.Stderr, "  ols    test:ols,dependent:y,independent:x+z\n")
		fmt.Fprintf(os.Stderr, "  logit  test:logit,dependent:outcome,independent:age+dose\n")
		fmt.Fprintf(os.Stderr, "  ttest  test:ttest,value:income,group:city[,alternative:larger]\n")
		fmt.Fprintf(os.Stderr, "         test:ttest,sample1:before,sample2:after\n")
		fmt.Fprintf(os.Stderr, "  anova  test:anova,value:yield,group:treatment\n")
		fmt.Fprintf(os.Stderr, "         test:anova,formula:yield ~ C(treatment)\n")
		fmt.Fprintf(os.Stderr, "  glm    test:glm,family:poisson,dependent:count,independent:exposure\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -p \"test:ols,dependent:income,independent:age+education\" data.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat data.csv | %s -p \"test:ttest,value:score,group:cohort\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f model.txt -o summary.txt data.csv\n", os.Args[0])
	}

	flag.Parse()

	programText, err := resolveProgram(*programFlag, *programFileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	program, err := script.ParseProgram(programText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing program: %v\n", err)
		os.Exit(1)
	}

	separator, err := parseSeparator(*separatorFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var filename string
	if flag.NArg() >= 1 {
		filename = flag.Arg(0)
	}

	tbl, err := loadTable(filename, *typeFlag, *noHeaderFlag, separator)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: file '%s' not found\n", filename)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if *columnsFlag != "" {
		tbl, err = keepColumns(tbl, strings.Split(*columnsFlag, ","))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	summary, err := stats.Run(program, tbl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cols := tbl.Columns(); len(cols) > 0 {
			fmt.Fprintf(os.Stderr, "\nAvailable columns: %s\n", strings.Join(cols, ", "))
		}
		os.Exit(1)
	}

	if err := writeSummary(*outputFlag, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveProgram picks between the -p flag and a program file
func resolveProgram(inline, file string) (string, error) {
	switch {
	case inline != "" && file != "":
		return "", fmt.Errorf("use either -p or -f, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	case inline != "":
		return inline, nil
	default:
		return "", fmt.Errorf("missing model program (-p or -f)")
	}
}

// parseSeparator validates the -s flag as a single character
func parseSeparator(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("separator must be a single character, got %q", s)
	}
	return r, nil
}

// keepColumns projects the table onto the named columns
func keepColumns(t *table.Table, names []string) (*table.Table, error) {
	trimmed := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("no column %q (available: %s)", name, strings.Join(t.Columns(), ", "))
		}
		trimmed = append(trimmed, name)
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no columns selected")
	}

	rows := make([]map[string]interface{}, t.NumRows())
	for i := range rows {
		row := t.Row(i)
		kept := make(map[string]interface{}, len(trimmed))
		for _, name := range trimmed {
			kept[name] = row[name]
		}
		rows[i] = kept
	}
	return table.New(trimmed, rows)
}

// writeSummary sends the summary to stdout or the -o file
func writeSummary(path, summary string) error {
	if path == "" {
		fmt.Print(summary)
		return nil
	}
	return os.WriteFile(path, []byte(summary), 0o644)
}

// loadTable reads tabular input the same way the tabula command does
func loadTable(filename, inputType string, noHeader bool, separator rune) (*table.Table, error) {
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
		if separator != 0 {
			return nil, fmt.Errorf("separator does not apply to parquet input")
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
	if separator != 0 {
		opts.Delimiter = separator
	}
	return reader.ReadDelimited(in, opts)
}
