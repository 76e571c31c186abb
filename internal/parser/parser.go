package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Table is a raw tabular payload: a header row and the data rows beneath it.
// Cells are untouched strings; type coercion happens in the dataset package.
type Table struct {
	Header   []string
	Rows     [][]string
	Warnings []string
}

// Options controls raw table parsing.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the file name (".tsv" -> tab, otherwise comma).
	Delimiter rune
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
}

// Parser defines a tabular format implementation.
type Parser interface {
	CanParse(filename string) bool
	Parse(r io.Reader, opt Options) (*Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ForFile returns the first registered parser accepting filename.
func ForFile(filename string) (Parser, error) {
	for _, p := range registry {
		if p.CanParse(filename) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
}

// Parse selects a parser based on filename and reads r into a Table.
func Parse(filename string, r io.Reader, opt Options) (*Table, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(filename)
	}
	return p.Parse(r, opt)
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported dataset format")
