package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/schollz/progressbar/v3"

	"plistutil/pkg"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Decode, validate and convert Apple XML property lists.\n\n")
		fmt.Fprintf(os.Stderr, "With a single input file (or stdin) the decoded document is written in the chosen output format. With several input files they are validated concurrently and every failure is reported.\n\n")
		flag.PrintDefaults()
	}

	format := flag.String("format", "json", "Output format for a single input (plist, json or none)")
	outputFile := flag.String("out", "", "Output file path (default: stdout)")
	workers := flag.Int("workers", runtime.NumCPU(), "Worker count for multi-file validation")
	include := flag.String("include", "", "Comma-separated key-path globs to keep")
	exclude := flag.String("exclude", "", "Comma-separated key-path globs to drop")
	flag.Parse()

	files := flag.Args()
	if len(files) > 1 {
		os.Exit(validateAll(files, *workers))
	}

	app, err := pkg.NewApp(*format, splitPatterns(*include), splitPatterns(*exclude))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	inputFile := ""
	if len(files) == 1 {
		inputFile = files[0]
	}
	if err := app.Run(inputFile, *outputFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *outputFile != "" && *format != "none" {
		fmt.Printf("Successfully decoded input and saved to %s\n", *outputFile)
	}
}

// validateAll parses every file concurrently and reports failures.
func validateAll(files []string, workers int) int {
	bar := progressbar.Default(int64(len(files)), "validating")
	results := pkg.ParseAll(files, workers, func() {
		_ = bar.Add(1)
	})

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Path, res.Err)
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failed, len(files))
		return 1
	}
	fmt.Printf("Successfully validated %d files\n", len(files))
	return 0
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
