package dashboard

import "fmt"

// AllColumns selects every non-axis column of a bar dataset.
const AllColumns = 0

// Colour palettes, cycled by series index.
var (
	StackedPalette = []string{
		"#A6CEE3", "#1F78B4", "#B2DF8A", "#33A02C", "#FB9A99", "#E31A1C",
		"#FDBF6F", "#FF7F00", "#CAB2D6", "#6A3D9A", "#FFFF99", "#B15928",
	}
	SeriesPalette = []string{"#1F78B4", "#A6CEE3", "#33A02C", "#B2DF8A"}
)

const (
	lineTension    = 0.1
	percentSuffix  = " (percentage)"
	tickFontSize   = 11
	titleFontSize  = 16
	labelRotation  = 90
	chartTypeBar   = "bar"
	chartTypeLine  = "line"
	legendPosition = "top"
)

// TickFormat names how the y-axis tick callback renders values.
type TickFormat int

const (
	TickPlain TickFormat = iota
	// TickAdaptive uses one decimal below 10 and grouped digits above.
	TickAdaptive
	// TickPercent appends "%".
	TickPercent
)

// TooltipFormat names how the tooltip label callback renders values.
type TooltipFormat int

const (
	TooltipPlain TooltipFormat = iota
	TooltipValue
	TooltipPercent
)

// ChartConfig is a Chart.js configuration. Callbacks cannot travel as JSON, so
// the formats they need are carried separately in Format.
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
	Format  ChartFormat  `json:"-"`
}

// ChartFormat carries callback choices for the renderer binding.
type ChartFormat struct {
	YTicks  TickFormat
	Tooltip TooltipFormat
}

type ChartData struct {
	Labels   []string      `json:"labels"`
	Datasets []ChartSeries `json:"datasets"`
}

type ChartSeries struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	Fill            *bool     `json:"fill,omitempty"`
	Tension         float64   `json:"tension,omitempty"`
}

type ChartOptions struct {
	Responsive          bool    `json:"responsive"`
	MaintainAspectRatio bool    `json:"maintainAspectRatio"`
	Scales              Scales  `json:"scales"`
	Plugins             Plugins `json:"plugins"`
}

type Scales struct {
	X Scale `json:"x"`
	Y Scale `json:"y"`
}

type Scale struct {
	Stacked     bool     `json:"stacked,omitempty"`
	BeginAtZero bool     `json:"beginAtZero,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Ticks       Ticks    `json:"ticks"`
}

type Ticks struct {
	MaxRotation *int `json:"maxRotation,omitempty"`
	MinRotation *int `json:"minRotation,omitempty"`
	Font        Font `json:"font"`
}

type Font struct {
	Size   int    `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
	Title  Title  `json:"title"`
}

type Legend struct {
	Display  bool   `json:"display"`
	Position string `json:"position,omitempty"`
}

type Title struct {
	Display bool    `json:"display"`
	Text    string  `json:"text"`
	Font    Font    `json:"font"`
	Padding Padding `json:"padding"`
}

type Padding struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// BuildChart builds the chart configuration for ds. column is only consulted
// for bar datasets, where AllColumns plots every non-axis column.
func BuildChart(ds Dataset, column int) (ChartConfig, error) {
	switch ds.Kind {
	case KindStacked:
		return buildStacked(ds), nil
	case KindBar:
		return buildBar(ds, column)
	case KindLine:
		return buildLine(ds), nil
	default:
		return ChartConfig{}, fmt.Errorf("%s dataset %q: %w", ds.Kind, ds.Key, ErrNoChart)
	}
}

// NormalizePercent rewrites each row (index across series) as percentages of
// the row total. Rows summing to zero become all zeros.
func NormalizePercent(series [][]float64) {
	if len(series) == 0 {
		return
	}
	rows := len(series[0])
	for r := 0; r < rows; r++ {
		var total float64
		for _, s := range series {
			total += s[r]
		}
		for _, s := range series {
			if total == 0 {
				s[r] = 0
				continue
			}
			s[r] = s[r] / total * 100
		}
	}
}

func buildStacked(ds Dataset) ChartConfig {
	cols := dataColumns(ds)
	values := make([][]float64, len(cols))
	for i, col := range cols {
		values[i] = columnValues(ds, col)
	}
	NormalizePercent(values)

	series := make([]ChartSeries, len(cols))
	for i, col := range cols {
		series[i] = ChartSeries{
			Label:           col,
			Data:            values[i],
			BackgroundColor: StackedPalette[i%len(StackedPalette)],
		}
	}

	cfg := baseConfig(chartTypeBar, ds.Title+percentSuffix, labels(ds), series)
	yMax := 100.0
	cfg.Options.Scales.X.Stacked = true
	cfg.Options.Scales.Y.Stacked = true
	cfg.Options.Scales.Y.Max = &yMax
	cfg.Options.Plugins.Legend = Legend{Display: true, Position: legendPosition}
	cfg.Format = ChartFormat{YTicks: TickPercent, Tooltip: TooltipPercent}
	return cfg
}

func buildBar(ds Dataset, column int) (ChartConfig, error) {
	var cols []string
	switch {
	case column == AllColumns:
		cols = dataColumns(ds)
	case column > 0 && column < len(ds.Columns):
		cols = []string{ds.Columns[column]}
	default:
		return ChartConfig{}, fmt.Errorf("column %d of %q (%d columns): %w", column, ds.Key, len(ds.Columns), ErrColumnOutOfRange)
	}

	series := make([]ChartSeries, len(cols))
	for i, col := range cols {
		series[i] = ChartSeries{
			Label:           col,
			Data:            columnValues(ds, col),
			BackgroundColor: SeriesPalette[i%len(SeriesPalette)],
		}
	}

	cfg := baseConfig(chartTypeBar, ds.Title, labels(ds), series)
	cfg.Options.Plugins.Legend = Legend{Display: len(series) > 1, Position: legendPosition}
	cfg.Format = ChartFormat{YTicks: TickAdaptive, Tooltip: TooltipValue}
	return cfg, nil
}

func buildLine(ds Dataset) ChartConfig {
	cols := dataColumns(ds)
	noFill := false
	series := make([]ChartSeries, len(cols))
	for i, col := range cols {
		color := SeriesPalette[i%len(SeriesPalette)]
		series[i] = ChartSeries{
			Label:           col,
			Data:            columnValues(ds, col),
			BackgroundColor: color,
			BorderColor:     color,
			Fill:            &noFill,
			Tension:         lineTension,
		}
	}

	cfg := baseConfig(chartTypeLine, ds.Title, labels(ds), series)
	cfg.Options.Plugins.Legend = Legend{Display: true, Position: legendPosition}
	cfg.Format = ChartFormat{YTicks: TickAdaptive, Tooltip: TooltipValue}
	return cfg
}

func baseConfig(typ, title string, labels []string, series []ChartSeries) ChartConfig {
	rot := labelRotation
	return ChartConfig{
		Type: typ,
		Data: ChartData{Labels: labels, Datasets: series},
		Options: ChartOptions{
			Responsive:          true,
			MaintainAspectRatio: false,
			Scales: Scales{
				X: Scale{Ticks: Ticks{MaxRotation: &rot, MinRotation: &rot, Font: Font{Size: tickFontSize}}},
				Y: Scale{BeginAtZero: true, Ticks: Ticks{Font: Font{Size: tickFontSize}}},
			},
			Plugins: Plugins{
				Title: Title{
					Display: true,
					Text:    title,
					Font:    Font{Size: titleFontSize, Weight: "bold"},
					Padding: Padding{Top: 10, Bottom: 20},
				},
			},
		},
	}
}

func dataColumns(ds Dataset) []string {
	if len(ds.Columns) < 2 {
		return nil
	}
	return ds.Columns[1:]
}

func labels(ds Dataset) []string {
	out := make([]string, len(ds.Rows))
	if len(ds.Columns) == 0 {
		return out
	}
	axis := ds.Columns[0]
	for i, row := range ds.Rows {
		v, _ := row.Get(axis)
		out[i] = FormatLabel(v)
	}
	return out
}

func columnValues(ds Dataset, col string) []float64 {
	out := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		v, _ := row.Get(col)
		out[i] = CoerceFloat(v)
	}
	return out
}
