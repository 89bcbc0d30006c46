package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Document is a parsed dataset document: category name -> dataset key -> rows.
// Source key order is preserved at every level.
type Document struct {
	Categories []Category
}

// Category groups the datasets shown on one tab.
type Category struct {
	Name     string
	Datasets []Dataset
}

// Dataset is a named array of rows. Kind and Title are derived from Key once,
// when the document is parsed.
type Dataset struct {
	Key     string
	Kind    Kind
	Title   string
	Columns []string
	Rows    []Row
}

// Row is one record; the first cell is the category-axis label.
type Row []Cell

// Cell is a single column value. Value holds a json.Number, string, bool, nil,
// or for nested input a []any / map[string]any.
type Cell struct {
	Column string
	Value  any
}

// NewDataset classifies key and derives the column list from the first row.
func NewDataset(key string, rows []Row) Dataset {
	kind, title := Classify(key)
	ds := Dataset{Key: key, Kind: kind, Title: title, Rows: rows}
	if len(rows) > 0 {
		ds.Columns = make([]string, 0, len(rows[0]))
		for _, c := range rows[0] {
			ds.Columns = append(ds.Columns, c.Column)
		}
	}
	return ds
}

// Get returns the value stored under column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Dataset looks up a dataset by category name and key.
func (d *Document) Dataset(category, key string) (Dataset, bool) {
	for _, c := range d.Categories {
		if c.Name != category {
			continue
		}
		for _, ds := range c.Datasets {
			if ds.Key == key {
				return ds, true
			}
		}
	}
	return Dataset{}, false
}

// CountByKind tallies datasets per kind across all categories.
func (d *Document) CountByKind() map[Kind]int {
	out := make(map[Kind]int)
	for _, c := range d.Categories {
		for _, ds := range c.Datasets {
			out[ds.Kind]++
		}
	}
	return out
}

// ReadFile parses the document stored at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument decodes a dataset document preserving key order.
// Category and dataset values of the wrong shape are skipped, as are datasets
// with no rows. A top-level "error" string yields a *DocumentError.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrEmptyDocument
	}

	doc := &Document{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if msg, ok := tok.(string); ok && name == "error" {
			return nil, &DocumentError{Message: msg}
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			if _, err := readValue(dec, tok); err != nil {
				return nil, err
			}
			continue
		}
		cat, err := readCategory(dec, name)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		doc.Categories = append(doc.Categories, cat)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func readCategory(dec *json.Decoder, name string) (Category, error) {
	cat := Category{Name: name}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return cat, err
		}
		tok, err := dec.Token()
		if err != nil {
			return cat, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			if _, err := readValue(dec, tok); err != nil {
				return cat, err
			}
			continue
		}
		var rows []Row
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return cat, err
			}
			if d, ok := tok.(json.Delim); !ok || d != '{' {
				if _, err := readValue(dec, tok); err != nil {
					return cat, err
				}
				continue
			}
			row, err := readRow(dec)
			if err != nil {
				return cat, fmt.Errorf("dataset %q: %w", key, err)
			}
			rows = append(rows, row)
		}
		if _, err := dec.Token(); err != nil {
			return cat, err
		}
		if len(rows) == 0 {
			continue
		}
		cat.Datasets = append(cat.Datasets, NewDataset(key, rows))
	}
	_, err := dec.Token()
	return cat, err
}

func readRow(dec *json.Decoder) (Row, error) {
	var row Row
	for dec.More() {
		col, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := readValue(dec, tok)
		if err != nil {
			return nil, err
		}
		row = append(row, Cell{Column: col, Value: v})
	}
	_, err := dec.Token()
	return row, err
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v, want object key", tok)
	}
	return key, nil
}

// readValue finishes decoding the value that starts with tok.
func readValue(dec *json.Decoder, tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := make(map[string]any)
		for dec.More() {
			k, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := readValue(dec, t)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		_, err := dec.Token()
		return m, err
	case '[':
		var s []any
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := readValue(dec, t)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		_, err := dec.Token()
		return s, err
	}
	return nil, fmt.Errorf("unexpected delimiter %v", d)
}

// MarshalJSON writes the document back in source order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range d.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, ds := range c.Datasets {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, ds.Key); err != nil {
				return nil, err
			}
			buf.WriteByte('[')
			for k, row := range ds.Rows {
				if k > 0 {
					buf.WriteByte(',')
				}
				b, err := row.MarshalJSON()
				if err != nil {
					return nil, err
				}
				buf.Write(b)
			}
			buf.WriteByte(']')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes the row as an object with columns in order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Column); err != nil {
			return nil, err
		}
		b, err := json.Marshal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Column, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}
