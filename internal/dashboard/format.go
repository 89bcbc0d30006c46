package dashboard

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NumberFormat renders axis ticks and tooltips with locale digit grouping.
type NumberFormat struct {
	p *message.Printer
}

// NewNumberFormat returns a formatter for tag. An undefined tag means English.
func NewNumberFormat(tag language.Tag) NumberFormat {
	if tag == language.Und {
		tag = language.English
	}
	return NumberFormat{p: message.NewPrinter(tag)}
}

// ParseNumberFormat builds a formatter from a BCP 47 string such as a browser's
// navigator.language, falling back to English.
func ParseNumberFormat(locale string) NumberFormat {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return NewNumberFormat(tag)
}

func (f NumberFormat) printer() *message.Printer {
	if f.p == nil {
		return message.NewPrinter(language.English)
	}
	return f.p
}

// Tick formats a bar/line y-axis tick. Small ranges (largest tick below 10)
// get one decimal; otherwise the value is grouped like a locale string.
func (f NumberFormat) Tick(value, maxTick float64) string {
	if maxTick < 10 {
		return strconv.FormatFloat(value, 'f', 1, 64)
	}
	return f.printer().Sprint(number.Decimal(value, number.MaxFractionDigits(3)))
}

// PercentTick formats a stacked-chart y-axis tick.
func (f NumberFormat) PercentTick(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "%"
}

// Tooltip formats a bar/line tooltip line with exactly two grouped decimals.
func (f NumberFormat) Tooltip(label string, value float64) string {
	s := f.printer().Sprint(number.Decimal(value, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if label == "" {
		return s
	}
	return label + ": " + s
}

// PercentTooltip formats a stacked-chart tooltip line.
func (f NumberFormat) PercentTooltip(label string, value float64) string {
	return label + ": " + strconv.FormatFloat(value, 'f', 2, 64) + "%"
}

// Format applies the tick format named by a chart axis.
func (f NumberFormat) Format(kind TickFormat, value, maxTick float64) string {
	switch kind {
	case TickPercent:
		return f.PercentTick(value)
	case TickAdaptive:
		return f.Tick(value, maxTick)
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}
