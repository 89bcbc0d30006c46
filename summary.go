package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

type DocumentSummary struct {
	Name          string                 `json:"name"`
	TotalDatasets int                    `json:"total_datasets"`
	TotalRows     int                    `json:"total_rows"`
	Kinds         map[dashboard.Kind]int `json:"kinds"`
	Categories    []CategorySummary      `json:"categories"`
	Largest       []DatasetCount         `json:"largest"`
}

type CategorySummary struct {
	Name     string           `json:"name"`
	TabID    string           `json:"tab_id"`
	Datasets []DatasetSummary `json:"datasets"`
}

type DatasetSummary struct {
	Key     string         `json:"key"`
	Title   string         `json:"title"`
	Kind    dashboard.Kind `json:"kind"`
	Rows    int            `json:"rows"`
	Columns []string       `json:"columns"`
	Series  int            `json:"series"`
}

type DatasetCount struct {
	Dataset string `json:"dataset"`
	Rows    int    `json:"rows"`
}

const largestDatasets = 5

// Summarize reports per-category dataset kinds and sizes.
func Summarize(name string, doc *dashboard.Document) *DocumentSummary {
	s := &DocumentSummary{
		Name:  name,
		Kinds: doc.CountByKind(),
	}
	rows := make(map[string]int)
	for _, cat := range doc.Categories {
		cs := CategorySummary{Name: cat.Name, TabID: dashboard.ElementID(cat.Name)}
		for _, ds := range cat.Datasets {
			series := 0
			if ds.Kind.HasChart() && len(ds.Columns) > 1 {
				series = len(ds.Columns) - 1
			}
			cs.Datasets = append(cs.Datasets, DatasetSummary{
				Key:     ds.Key,
				Title:   ds.Title,
				Kind:    ds.Kind,
				Rows:    len(ds.Rows),
				Columns: ds.Columns,
				Series:  series,
			})
			s.TotalDatasets++
			s.TotalRows += len(ds.Rows)
			rows[cat.Name+"/"+ds.Key] = len(ds.Rows)
		}
		s.Categories = append(s.Categories, cs)
	}
	s.Largest = topN(rows, largestDatasets)
	return s
}

func topN(m map[string]int, n int) []DatasetCount {
	result := make([]DatasetCount, 0, len(m))
	for k, v := range m {
		result = append(result, DatasetCount{Dataset: k, Rows: v})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rows != result[j].Rows {
			return result[i].Rows > result[j].Rows
		}
		return result[i].Dataset < result[j].Dataset
	})
	if len(result) > n {
		return result[:n]
	}
	return result
}

// writeSummaryText prints a summary the way the inspect command shows it.
func writeSummaryText(w io.Writer, s *DocumentSummary) error {
	if _, err := fmt.Fprintf(w, "%s: %d datasets, %d rows\n", s.Name, s.TotalDatasets, s.TotalRows); err != nil {
		return err
	}
	for _, c := range s.Categories {
		if _, err := fmt.Fprintf(w, "\n[%s] (tab %s)\n", c.Name, c.TabID); err != nil {
			return err
		}
		for _, d := range c.Datasets {
			if _, err := fmt.Fprintf(w, "  %-32s %-8s rows=%-5d series=%d title=%q\n", d.Key, d.Kind, d.Rows, d.Series, d.Title); err != nil {
				return err
			}
		}
	}
	return nil
}
