package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"vizora/domain/dataset"
	"vizora/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Options controls how uploads are turned into tables.
type Options struct {
	MaxRows int   // larger tables are sampled down to this many rows
	Seed    int64 // sampling seed
}

// DefaultOptions matches the pipeline defaults.
func DefaultOptions() Options {
	return Options{MaxRows: 4500, Seed: 42}
}

// Loader reads CSV, TSV, JSON, Excel and Parquet uploads.
type Loader struct {
	opts Options
}

func NewLoader(opts Options) *Loader {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultOptions().MaxRows
	}
	return &Loader{opts: opts}
}

var supportedExt = map[string]bool{
	".csv": true, ".tsv": true, ".json": true, ".xlsx": true, ".xls": true, ".parquet": true,
}

// Supported reports whether a filename has a loadable extension.
func Supported(filename string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(filename))]
}

// LoadFile opens path and loads it.
func (l *Loader) LoadFile(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return l.Load(filepath.Base(path), f)
}

// Load parses r according to the extension of filename, sanitizes column
// names and samples oversized tables.
func (l *Loader) Load(filename string, r io.Reader) (*dataset.Table, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		table *dataset.Table
		err   error
	)
	switch ext {
	case ".csv":
		table, err = readDelimited(r, ',')
	case ".tsv":
		table, err = readDelimited(r, '\t')
	case ".json":
		table, err = readJSON(r)
	case ".xlsx", ".xls":
		table, err = readExcel(r)
	case ".parquet":
		table, err = readParquet(r)
	default:
		return nil, errors.UnsupportedFileType(ext)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read %s: %w", filename, err))
	}

	table.Columns = SanitizeColumns(table.Columns)
	table = l.sample(table)

	log.Printf("[Loader] Loaded %s: %d rows x %d columns in %.2fms",
		filename, table.NumRows(), len(table.Columns), float64(time.Since(start).Nanoseconds())/1e6)
	return table, nil
}

// Columns reads only as much of the upload as needed to name its columns.
func (l *Loader) Columns(filename string, r io.Reader) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".csv" || ext == ".tsv" {
		reader := csv.NewReader(r)
		if ext == ".tsv" {
			reader.Comma = '\t'
		}
		reader.FieldsPerRecord = -1
		header, err := reader.Read()
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read header of %s: %w", filename, err))
		}
		return SanitizeColumns(header), nil
	}
	table, err := l.Load(filename, r)
	if err != nil {
		return nil, err
	}
	return table.Columns, nil
}

func (l *Loader) sample(t *dataset.Table) *dataset.Table {
	n := t.NumRows()
	if n <= l.opts.MaxRows {
		return t
	}
	rng := rand.New(rand.NewSource(l.opts.Seed))
	idx := rng.Perm(n)[:l.opts.MaxRows]
	sort.Ints(idx)

	rows := make([][]any, len(idx))
	for i, j := range idx {
		rows[i] = t.Rows[j]
	}
	log.Printf("[Loader] Sampled %d of %d rows (seed %d)", len(rows), n, l.opts.Seed)
	return &dataset.Table{Columns: t.Columns, Rows: rows}
}

var invalidColumnChars = regexp.MustCompile(`[^0-9a-zA-Z_]`)

// SanitizeColumns restricts names to [0-9A-Za-z_], names blank headers and
// suffixes duplicates with _1, _2, ...
func SanitizeColumns(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		name := invalidColumnChars.ReplaceAllString(strings.TrimSpace(c), "_")
		if name == "" {
			name = fmt.Sprintf("Unnamed__%d", i)
		}
		base := name
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func readDelimited(r io.Reader, comma rune) (*dataset.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return fromStringRows(rows)
}

func readExcel(r io.Reader) (*dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	return fromStringRows(rows)
}

func fromStringRows(rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}
	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	columns := make([]string, width)
	copy(columns, header)

	cells := make([][]string, width)
	for c := range cells {
		cells[c] = make([]string, len(rows)-1)
	}
	for r, row := range rows[1:] {
		for c := 0; c < width && c < len(row); c++ {
			cells[c][r] = row[c]
		}
	}

	table := &dataset.Table{Columns: columns, Rows: make([][]any, len(rows)-1)}
	for r := range table.Rows {
		table.Rows[r] = make([]any, width)
	}
	for c := range cells {
		values := inferColumn(cells[c])
		for r, v := range values {
			table.Rows[r][c] = v
		}
	}
	return table, nil
}

var nullTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "#n/a": true, "-nan": true,
}

func isNullToken(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// inferColumn picks one type for a whole column of raw strings: number,
// then boolean, then date, falling back to text.
func inferColumn(raw []string) []any {
	out := make([]any, len(raw))
	numeric, boolean, date := true, true, true
	nonNull := 0
	for _, s := range raw {
		if isNullToken(s) {
			continue
		}
		nonNull++
		t := strings.TrimSpace(s)
		if numeric {
			if _, err := strconv.ParseFloat(t, 64); err != nil {
				numeric = false
			}
		}
		if boolean {
			if _, ok := parseBool(t); !ok {
				boolean = false
			}
		}
		if date {
			if _, ok := parseDate(t); !ok {
				date = false
			}
		}
	}
	if nonNull == 0 {
		return out
	}

	for i, s := range raw {
		if isNullToken(s) {
			continue
		}
		t := strings.TrimSpace(s)
		switch {
		case numeric:
			// inf and nan parse as floats but have no JSON form
			if f, _ := strconv.ParseFloat(t, 64); !math.IsNaN(f) && !math.IsInf(f, 0) {
				out[i] = f
			}
		case boolean:
			out[i], _ = parseBool(t)
		case date:
			out[i], _ = parseDate(t)
		default:
			out[i] = s
		}
	}
	return out
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func readAllBytes(r io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
