package dataset

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/reviewclf/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "reviews.csv", "\ufeffid,review_text,rating,semester\n"+
		"1,교수님 설명이 좋아요,5,2023-1\n"+
		"2,,4,2023-1\n"+
		"3,과제가 너무 많음,,2023-2\n"+
		"4,\"쉼표, 포함\",2.0,2023-2\n"+
		"5,   ,3,2023-2\n"+
		"6,점수 없음,nan,2023-2\n")

	ds, err := Load(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, []model.Review{
		{Text: "교수님 설명이 좋아요", Rating: 5},
		{Text: "쉼표, 포함", Rating: 2},
		{Text: "   ", Rating: 3},
	}, ds.Records)
	assert.Equal(t, 3, ds.Dropped)
	assert.Equal(t, path, ds.Source)
}

func TestLoadCSV_PandasNAText(t *testing.T) {
	path := writeFile(t, "reviews.csv", "review_text,rating\n"+
		"NA,5\n"+
		"N/A,4\n"+
		"null,3\n"+
		"NaN,2\n"+
		"None,1\n"+
		"na,4\n"+
		" NA,3\n"+
		"좋음,5\n")

	ds, err := Load(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, []model.Review{
		{Text: "na", Rating: 4},
		{Text: " NA", Rating: 3},
		{Text: "좋음", Rating: 5},
	}, ds.Records)
	assert.Equal(t, 5, ds.Dropped)
}

func TestLoadCSV_MissingColumn(t *testing.T) {
	path := writeFile(t, "reviews.csv", "review_text,score\n좋음,5\n")
	_, err := Load(context.Background(), path, "")
	assert.ErrorIs(t, err, ErrMissingColumn)

	empty := writeFile(t, "empty.csv", "")
	_, err = Load(context.Background(), empty, "")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadCSV_RatingOutOfRange(t *testing.T) {
	path := writeFile(t, "reviews.csv", "review_text,rating\n좋음,5\n이상함,7\n")
	_, err := Load(context.Background(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	_, err = Load(context.Background(), "reviews.parquet", "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.db"), "reviews")
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func createSQLite(t *testing.T, schema string, rows ...[]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO reviews (review_text, rating) VALUES (?, ?)`, r...)
		require.NoError(t, err)
	}
	return path
}

func TestLoadSQLite(t *testing.T) {
	path := createSQLite(t, `CREATE TABLE reviews (id INTEGER PRIMARY KEY, review_text TEXT, rating REAL)`,
		[]any{"최고의 강의", 5},
		[]any{nil, 3},
		[]any{"보통", nil},
		[]any{"시험이 어려움", 2.0},
	)

	ds, err := Load(context.Background(), path, "reviews")
	require.NoError(t, err)
	assert.Equal(t, []model.Review{
		{Text: "최고의 강의", Rating: 5},
		{Text: "시험이 어려움", Rating: 2},
	}, ds.Records)
	assert.Equal(t, 2, ds.Dropped)
}

func TestLoadSQLite_Errors(t *testing.T) {
	path := createSQLite(t, `CREATE TABLE reviews (id INTEGER PRIMARY KEY, review_text TEXT, rating INTEGER, note TEXT)`)

	_, err := Load(context.Background(), path, "reviews; DROP TABLE reviews")
	assert.Error(t, err)

	_, err = Load(context.Background(), path, "other")
	assert.Error(t, err)

	noRating := createSQLite(t, `CREATE TABLE reviews (review_text TEXT, stars INTEGER, rating_old INTEGER)`)
	_, err = Load(context.Background(), noRating, "reviews")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"5", 5, true},
		{" 3 ", 3, true},
		{"4.0", 4, true},
		{"4.5", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"five", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRating(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTextsAndClasses(t *testing.T) {
	records := []model.Review{{Text: "a", Rating: 1}, {Text: "b", Rating: 5}}
	assert.Equal(t, []string{"a", "b"}, Texts(records))
	assert.Equal(t, []int{0, 4}, Classes(records))
}
