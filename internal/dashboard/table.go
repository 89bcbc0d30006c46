package dashboard

// Table is the rendered form of a dataset: one header cell per column of the
// first row and one body row per input row.
type Table struct {
	Headers []string
	Rows    [][]string
}

// BuildTable formats ds for display. Body cells are aligned to the header
// columns; a row missing a column yields an empty cell and extra keys are dropped.
func BuildTable(ds Dataset) Table {
	t := Table{
		Headers: append([]string(nil), ds.Columns...),
		Rows:    make([][]string, 0, len(ds.Rows)),
	}
	for _, row := range ds.Rows {
		cells := make([]string, len(t.Headers))
		for i, col := range t.Headers {
			if v, ok := row.Get(col); ok {
				cells[i] = FormatCell(v)
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}
