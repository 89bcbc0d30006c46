package dashboard

import (
	"fmt"
	"strings"
)

// Kind is the rendering mode of a dataset, derived from its key suffix.
type Kind int

const (
	// KindBar renders a bar chart with a column selector. Keys without a
	// recognised suffix are bars too.
	KindBar Kind = iota
	// KindStacked renders a 100% stacked bar chart.
	KindStacked
	// KindLine renders one unfilled line per column.
	KindLine
	// KindTableOnly renders only the table, visible and without controls.
	KindTableOnly
	// KindIgnored datasets are dropped from the page.
	KindIgnored
)

// Key suffixes understood by Classify.
const (
	SuffixBar     = "_bar"
	SuffixStacked = "_stacked"
	SuffixLine    = "_line"
	SuffixTable   = "_table"
	SuffixIgnore  = "_ignore"
)

var suffixKinds = []struct {
	suffix string
	kind   Kind
}{
	{SuffixStacked, KindStacked},
	{SuffixLine, KindLine},
	{SuffixTable, KindTableOnly},
	{SuffixIgnore, KindIgnored},
	{SuffixBar, KindBar},
}

// Classify returns the kind encoded in key and the display title with the
// recognised suffix removed.
func Classify(key string) (Kind, string) {
	for _, sk := range suffixKinds {
		if strings.HasSuffix(key, sk.suffix) {
			return sk.kind, strings.TrimSuffix(key, sk.suffix)
		}
	}
	return KindBar, key
}

func (k Kind) String() string {
	switch k {
	case KindBar:
		return "bar"
	case KindStacked:
		return "stacked"
	case KindLine:
		return "line"
	case KindTableOnly:
		return "table"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// HasChart reports whether datasets of this kind get a chart canvas.
func (k Kind) HasChart() bool {
	return k == KindBar || k == KindStacked || k == KindLine
}

// MarshalText encodes the kind by name, so summaries read "stacked" rather than 1.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, c := range []Kind{KindBar, KindStacked, KindLine, KindTableOnly, KindIgnored} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown dataset kind %q", text)
}
