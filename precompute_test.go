package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

const testReport = `driver: sqlite
dsn: %s
output_dir: %s
documents:
  - name: catering
    categories:
      - name: Finance
        datasets:
          - key: revenue_bar
            query: SELECT month, SUM(amount) AS revenue FROM orders GROUP BY month ORDER BY month
          - key: nothing_table
            query: SELECT * FROM orders WHERE 1 = 0
      - name: Menu
        datasets:
          - key: dishes_table
            query: SELECT dish, price FROM orders ORDER BY dish
  - name: broken
    categories:
      - name: Finance
        datasets:
          - key: missing_bar
            query: SELECT * FROM no_such_table
`

func seedReportDB(t *testing.T, path string) {
	t.Helper()

	db, err := openReportDB("sqlite", path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, db.Exec(`CREATE TABLE orders (month TEXT, dish TEXT, amount INTEGER, price REAL)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO orders VALUES
		('2024-01', 'Soup', 10, 4.5),
		('2024-01', 'Salad', 5, 6.25),
		('2024-02', 'Stew', 7, 9)`).Error)
}

func TestPrecomputerRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "analysis.db")
	seedReportDB(t, dbPath)

	out := filepath.Join(dir, "static")
	reportPath := filepath.Join(dir, "report.yaml")
	require.NoError(t, os.WriteFile(reportPath, []byte(fmt.Sprintf(testReport, dbPath, out)), 0o644))

	report, err := loadReport(reportPath)
	require.NoError(t, err)

	db, err := openReportDB(report.Driver, report.DSN)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	written, err := NewPrecomputer(db, zap.NewNop()).Run(context.Background(), report)
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
	require.Equal(t, []string{filepath.Join(out, "catering.json")}, written)
	require.NoFileExists(t, filepath.Join(out, "broken.json"))
	require.NoFileExists(t, filepath.Join(out, "catering.json.tmp"))

	raw, err := os.ReadFile(written[0])
	require.NoError(t, err)
	require.Contains(t, string(raw), "\n    \"Finance\": {")

	doc, err := dashboard.ReadFile(written[0])
	require.NoError(t, err)
	require.Len(t, doc.Categories, 2)

	finance := doc.Categories[0]
	require.Len(t, finance.Datasets, 1, "empty query results are dropped")
	revenue := finance.Datasets[0]
	require.Equal(t, []string{"month", "revenue"}, revenue.Columns)
	month, _ := revenue.Rows[0].Get("month")
	require.Equal(t, "2024-01", month)
	total, _ := revenue.Rows[0].Get("revenue")
	require.Equal(t, json.Number("15"), total)

	dishes, ok := doc.Dataset("Menu", "dishes_table")
	require.True(t, ok)
	require.Equal(t, dashboard.KindTableOnly, dishes.Kind)
	price, _ := dishes.Rows[0].Get("price")
	require.Equal(t, json.Number("6.25"), price)
}

func TestLoadReportValidation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := loadReport(write("empty.yaml", "driver: sqlite\n"))
	require.ErrorIs(t, err, errNoDocuments)

	_, err = loadReport(write("bad.yaml", "documents:\n  - name: ../escape\n"))
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = loadReport(write("invalid.yaml", "documents: [\n"))
	require.Error(t, err)

	r, err := loadReport(write("ok.yaml", "documents:\n  - name: ok\n"))
	require.NoError(t, err)
	require.Equal(t, ".", r.OutputDir)

	_, err = openReportDB("postgres", "")
	require.Error(t, err)
}

func TestSQLValue(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{[]byte("text"), "text"},
		{"s", "s"},
		{int64(42), json.Number("42")},
		{int32(-7), json.Number("-7")},
		{2.5, json.Number("2.5")},
		{float32(0.5), json.Number("0.5")},
		{math.NaN(), nil},
		{math.Inf(1), nil},
		{true, true},
		{ts, "2024-03-01 12:30:00"},
		{uint8(3), "3"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, sqlValue(tt.in), "%#v", tt.in)
	}
}
