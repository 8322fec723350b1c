package pkg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// App wires the decoder to file or stream I/O for the CLI.
type App struct {
	In      io.Reader
	Out     io.Writer
	format  string
	include []string
	exclude []string
}

// NewApp validates format ("plist", "json" or "none") and returns an
// app reading stdin and writing stdout by default.
func NewApp(format string, include, exclude []string) (*App, error) {
	switch format {
	case "plist", "json", "none":
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &App{
		In:      os.Stdin,
		Out:     os.Stdout,
		format:  format,
		include: include,
		exclude: exclude,
	}, nil
}

// Run decodes inputFile (stdin when empty), applies the key filters
// and writes the rendered result to outputFile (stdout when empty).
// Writes to a named output file are atomic: a uniquely named temp file
// is renamed into place only after rendering succeeded.
func (a *App) Run(inputFile, outputFile string) error {
	reader := a.In
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("error opening input file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	root, err := Parse(reader)
	if err != nil {
		return fmt.Errorf("error: input is not a valid plist: %w", err)
	}

	if len(a.include) > 0 || len(a.exclude) > 0 {
		root = Filter(root, a.include, a.exclude)
	}

	var buf bytes.Buffer
	switch a.format {
	case "plist":
		err = Encode(&buf, root)
	case "json":
		err = EncodeJSON(&buf, root)
	case "none":
		return nil
	}
	if err != nil {
		return fmt.Errorf("error rendering output: %w", err)
	}

	if outputFile == "" {
		_, err = a.Out.Write(buf.Bytes())
		return err
	}

	tmp := outputFile + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := os.Rename(tmp, outputFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error creating output file: %w", err)
	}
	return nil
}
