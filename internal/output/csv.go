package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"a11yminer/internal/catalog"
)

// ErrSchemaMismatch is returned when an existing CSV file carries a different
// header than the sink's schema.
var ErrSchemaMismatch = errors.New("csv header does not match schema")

// Record is one accepted repository.
type Record struct {
	Repo     string
	Stars    int
	PushedAt time.Time
	Language string
	Tools    map[catalog.Tool]bool
}

// Schema is a fixed column layout.
type Schema struct {
	Name   string
	Header []string
	Row    func(Record) []string
}

// ToolUsageSchema: repository, stars, last commit, then one boolean column per
// catalog tool in catalog order.
var ToolUsageSchema = Schema{
	Name:   "tools",
	Header: append([]string{"Repository", "Stars", "LastCommit"}, catalog.Names()...),
	Row: func(r Record) []string {
		row := []string{r.Repo, strconv.Itoa(r.Stars), formatTime(r.PushedAt)}
		for _, t := range catalog.All() {
			row = append(row, strconv.FormatBool(r.Tools[t]))
		}
		return row
	},
}

// NoToolSchema lists popular repositories with no detected tool.
var NoToolSchema = Schema{
	Name:   "no-tools",
	Header: []string{"Repository", "Stars", "LastCommit", "PrimaryLanguage"},
	Row: func(r Record) []string {
		lang := r.Language
		if lang == "" {
			lang = "N/A"
		}
		return []string{r.Repo, strconv.Itoa(r.Stars), formatTime(r.PushedAt), lang}
	},
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// CSVSink appends records to a CSV file. The header is written once, when the
// file is new or empty.
type CSVSink struct {
	path   string
	schema Schema
}

func NewCSVSink(path string, schema Schema) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path required")
	}
	if len(schema.Header) == 0 || schema.Row == nil {
		return nil, fmt.Errorf("csv schema %q is incomplete", schema.Name)
	}
	return &CSVSink{path: path, schema: schema}, nil
}

func (s *CSVSink) Path() string {
	return s.path
}

// Append writes records in order. Zero records leaves the file untouched.
// Duplicates are written as given.
func (s *CSVSink) Append(records []Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, s.schema.Row(r))
	}
	return AppendCSV(s.path, s.schema.Name, s.schema.Header, rows)
}

// AppendCSV appends rows to path, writing header first when the file is new
// or empty. An existing file must start with the same header. Zero rows
// leaves the file untouched.
func AppendCSV(path, schema string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	} else if err := checkHeader(f, path, schema, header); err != nil {
		return err
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Sync()
}

func checkHeader(f *os.File, path, schema string, want []string) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}
	if strings.Join(header, ",") != strings.Join(want, ",") {
		return fmt.Errorf("%s: %w (schema %s)", path, ErrSchemaMismatch, schema)
	}
	return nil
}
