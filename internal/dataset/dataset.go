// Package dataset loads labeled reviews and splits them for training.
package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/crimson-sun/reviewclf/internal/model"
)

// Column names every source must provide.
const (
	TextColumn   = "review_text"
	RatingColumn = "rating"
)

var (
	// ErrMissingColumn is returned when a source lacks a required column.
	ErrMissingColumn = errors.New("dataset: missing required column")
	// ErrUnsupported is returned for file extensions no reader handles.
	ErrUnsupported = errors.New("dataset: unsupported source")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dataset is the cleaned content of one source.
type Dataset struct {
	Source  string
	Records []model.Review
	Dropped int // rows removed for missing text or rating
}

// Load reads path and drops rows with a missing text or rating. CSV files
// need a header row; SQLite files are read from table.
func Load(ctx context.Context, path, table string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(ctx, path, table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

func loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingColumn, path)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header of %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	textCol, ratingCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case TextColumn:
			textCol = i
		case RatingColumn:
			ratingCol = i
		}
	}
	if textCol < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, TextColumn, path)
	}
	if ratingCol < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, RatingColumn, path)
	}

	ds := &Dataset{Source: path}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %s: %w", path, err)
		}
		var text, rating string
		if textCol < len(row) {
			text = row[textCol]
		}
		if ratingCol < len(row) {
			rating = row[ratingCol]
		}
		if err := ds.add(text, !isNA(text), rating); err != nil {
			return nil, fmt.Errorf("dataset: %s line %d: %w", path, line, err)
		}
	}
	return ds, nil
}

func loadSQLite(ctx context.Context, path, table string) (*Dataset, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("dataset: invalid table name %q", table)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer db.Close()

	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	for _, want := range []string{TextColumn, RatingColumn} {
		if !cols[want] {
			return nil, fmt.Errorf("%w: %q in %s table %s", ErrMissingColumn, want, path, table)
		}
	}

	query := fmt.Sprintf(`SELECT %s, CAST(%s AS TEXT) FROM "%s" ORDER BY rowid`, TextColumn, RatingColumn, table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dataset: query %s: %w", path, err)
	}
	defer rows.Close()

	ds := &Dataset{Source: path}
	for row := 1; rows.Next(); row++ {
		var text, rating sql.NullString
		if err := rows.Scan(&text, &rating); err != nil {
			return nil, fmt.Errorf("dataset: scan %s row %d: %w", path, row, err)
		}
		if err := ds.add(text.String, text.Valid, rating.String); err != nil {
			return nil, fmt.Errorf("dataset: %s row %d: %w", path, row, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return ds, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT 0`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}

// naValues are the cell strings pandas read_csv treats as missing by
// default. Matching is exact, so " NA" or "na" stays text.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

func isNA(cell string) bool { return naValues[cell] }

// add appends one row, counting it as dropped when a field is missing.
// Whitespace-only text is kept.
func (d *Dataset) add(text string, hasText bool, rating string) error {
	r, ok := parseRating(rating)
	if !hasText || !ok {
		d.Dropped++
		return nil
	}
	if err := model.CheckRating(r); err != nil {
		return err
	}
	d.Records = append(d.Records, model.Review{Text: text, Rating: r})
	return nil
}

// parseRating accepts integers and integral floats such as "4.0", which
// is how a numeric column with gaps is often exported.
func parseRating(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Texts returns the text column of records.
func Texts(records []model.Review) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

// Classes returns the zero-based class of every record.
func Classes(records []model.Review) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Class()
	}
	return out
}
