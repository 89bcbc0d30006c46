package dashboard

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNumberFormatTick(t *testing.T) {
	t.Parallel()

	f := NewNumberFormat(language.English)
	require.Equal(t, "2.5", f.Tick(2.5, 8))
	require.Equal(t, "4.0", f.Tick(4, 8))
	require.Equal(t, "1,500", f.Tick(1500, 2000))
	require.Equal(t, "20", f.Tick(20, 100))
}

func TestNumberFormatTooltip(t *testing.T) {
	t.Parallel()

	f := ParseNumberFormat("en-US")
	require.Equal(t, "sales: 1,234.50", f.Tooltip("sales", 1234.5))
	require.Equal(t, "7.00", f.Tooltip("", 7))
	require.Equal(t, "a: 33.33%", f.PercentTooltip("a", 100.0/3))
	require.Equal(t, "20%", f.PercentTick(20))
}

func TestNumberFormatFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	var zero NumberFormat
	require.Equal(t, "1,000", zero.Tick(1000, 1000))

	bad := ParseNumberFormat("not a locale!")
	require.Equal(t, "1,000", bad.Format(TickAdaptive, 1000, 1000))
	require.Equal(t, "50%", bad.Format(TickPercent, 50, 100))
	require.Equal(t, "0.25", bad.Format(TickPlain, 0.25, 1))
}
