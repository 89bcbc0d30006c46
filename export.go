package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

const (
	contentsSheet = "Contents"
	maxSheetName  = 31
)

var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

// BuildWorkbook writes one sheet per non-empty dataset plus a contents sheet
// mapping sheets back to categories and keys.
func BuildWorkbook(doc *dashboard.Document) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", contentsSheet); err != nil {
		f.Close()
		return nil, err
	}
	header := []any{"Category", "Dataset", "Kind", "Rows", "Sheet"}
	if err := f.SetSheetRow(contentsSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	used := map[string]bool{strings.ToLower(contentsSheet): true}
	line := 2
	for _, cat := range doc.Categories {
		for _, ds := range cat.Datasets {
			name := uniqueSheetName(ds.Title, used)
			if _, err := f.NewSheet(name); err != nil {
				f.Close()
				return nil, fmt.Errorf("sheet %q: %w", name, err)
			}
			if err := writeDatasetSheet(f, name, ds); err != nil {
				f.Close()
				return nil, fmt.Errorf("sheet %q: %w", name, err)
			}
			cell, _ := excelize.CoordinatesToCellName(1, line)
			entry := []any{cat.Name, ds.Key, ds.Kind.String(), len(ds.Rows), name}
			if err := f.SetSheetRow(contentsSheet, cell, &entry); err != nil {
				f.Close()
				return nil, err
			}
			line++
		}
	}
	return f, nil
}

// WriteWorkbook encodes the workbook for doc to w.
func WriteWorkbook(w io.Writer, doc *dashboard.Document) error {
	f, err := BuildWorkbook(doc)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func writeDatasetSheet(f *excelize.File, sheet string, ds dashboard.Dataset) error {
	header := make([]any, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for r, row := range ds.Rows {
		values := make([]any, len(ds.Columns))
		for i, col := range ds.Columns {
			v, _ := row.Get(col)
			values[i] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// cellValue keeps numbers numeric so spreadsheet formulas work on them.
func cellValue(v any) any {
	if f, ok := dashboard.NumericValue(v); ok {
		if _, isString := v.(string); !isString {
			return f
		}
	}
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return t
	default:
		return dashboard.FormatLabel(v)
	}
}

// uniqueSheetName sanitizes title into a valid sheet name not yet in used.
// Excel compares sheet names case-insensitively.
func uniqueSheetName(title string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(title))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Sheet"
	}
	name := truncateRunes(base, maxSheetName)
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
