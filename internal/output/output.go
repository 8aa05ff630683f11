package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"linotpadm/types"
)

// ErrUnknownDelimiter is returned for a csv_format value that names no delimiter
var ErrUnknownDelimiter = errors.New("unknown csv delimiter")

// Format selects how records are rendered
type Format int

const (
	Table Format = iota
	CSV
)

// Option configures a Formatter
type Option func(*Formatter)

// WithDelimiter sets the CSV field delimiter
func WithDelimiter(r rune) Option {
	return func(f *Formatter) {
		f.delimiter = r
	}
}

// Formatter renders records to a writer
type Formatter struct {
	w         io.Writer
	format    Format
	delimiter rune
}

func New(w io.Writer, format Format, opts ...Option) *Formatter {
	f := &Formatter{w: w, format: format, delimiter: ','}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DelimiterFor maps a csv_format value to a delimiter. Empty means comma.
func DelimiterFor(csvFormat string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(csvFormat)) {
	case "", ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "tab", `\t`:
		return '\t', nil
	default:
		return 0, fmt.Errorf("%w: %q (use ',', ';' or tab)", ErrUnknownDelimiter, csvFormat)
	}
}

// Header returns the union of field names in first-seen order
func Header(records []types.Record) []string {
	seen := make(map[string]bool)
	var header []string
	for _, rec := range records {
		for _, name := range rec.Names() {
			if !seen[name] {
				seen[name] = true
				header = append(header, name)
			}
		}
	}
	return header
}

func rows(header []string, records []types.Record) [][]string {
	out := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(header))
		for j, name := range header {
			row[j], _ = rec.Get(name)
		}
		out[i] = row
	}
	return out
}

// Write renders records. Nothing is written for an empty slice in table format.
func (f *Formatter) Write(records []types.Record) error {
	switch f.format {
	case CSV:
		return f.writeCSV(records)
	default:
		return f.writeTable(records)
	}
}

func (f *Formatter) writeTable(records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	header := Header(records)
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		Rows(rows(header, records)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(f.w, t.Render())
	return err
}

func (f *Formatter) writeCSV(records []types.Record) error {
	w := csv.NewWriter(f.w)
	w.Comma = f.delimiter

	header := Header(records)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	if err := w.WriteAll(rows(header, records)); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// ParseCSV reads CSV written by a CSV Formatter back into records. Empty
// cells are treated as absent fields.
func ParseCSV(r io.Reader, delimiter rune) ([]types.Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header := lines[0]
	out := make([]types.Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		var rec types.Record
		for i, value := range line {
			if value != "" {
				rec.Add(header[i], value)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
