package dashboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChart struct {
	canvas    string
	cfg       ChartConfig
	resized   int
	destroyed bool
}

func (c *fakeChart) Resize()  { c.resized++ }
func (c *fakeChart) Destroy() { c.destroyed = true }

// sliceChart is a value-type chart whose dynamic type is not comparable.
type sliceChart struct {
	points    []float64
	destroyed *int
}

func (c sliceChart) Resize()  {}
func (c sliceChart) Destroy() { *c.destroyed++ }

func TestRegistryReplaceDestroysPrevious(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := &fakeChart{}
	second := &fakeChart{}

	r.Put("c1", first)
	r.Put("c1", second)
	require.True(t, first.destroyed)
	require.False(t, second.destroyed)
	require.Equal(t, 1, r.Len())

	got, ok := r.Get("c1")
	require.True(t, ok)
	require.Same(t, second, got)
}

func TestRegistryDestroyAndResize(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a, b := &fakeChart{}, &fakeChart{}
	r.Put("b", b)
	r.Put("a", a)
	require.Equal(t, []string{"a", "b"}, r.IDs())

	require.Equal(t, 1, r.Resize("a", "missing"))
	require.Equal(t, 1, a.resized)
	require.Zero(t, b.resized)

	r.ResizeAll()
	require.Equal(t, 2, a.resized)
	require.Equal(t, 1, b.resized)

	require.True(t, r.Destroy("a"))
	require.True(t, a.destroyed)
	require.False(t, r.Destroy("a"))

	r.Close()
	require.True(t, b.destroyed)
	require.Zero(t, r.Len())
}

func TestTabsSingleActive(t *testing.T) {
	t.Parallel()

	tabs := NewTabs("one", "two", "three")
	require.Equal(t, "one", tabs.Active())

	require.NoError(t, tabs.Activate("three"))
	active := 0
	for _, id := range tabs.IDs() {
		if tabs.IsActive(id) {
			active++
		}
	}
	require.Equal(t, 1, active)
	require.Equal(t, "three", tabs.Active())

	require.ErrorIs(t, tabs.Activate("four"), ErrUnknownTab)
	require.Equal(t, "three", tabs.Active())

	empty := NewTabs()
	require.Equal(t, "", empty.Active())
	require.False(t, empty.IsActive(""))
}

func TestRegistryPutNonComparableChart(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var destroyed int
	first := sliceChart{points: []float64{1}, destroyed: &destroyed}
	second := sliceChart{points: []float64{2}, destroyed: &destroyed}

	require.NotPanics(t, func() {
		r.Put("c1", first)
		r.Put("c1", second)
	})
	require.Equal(t, 1, destroyed)
	require.Equal(t, 1, r.Len())
}

func TestRegistryPutSameChartKeepsIt(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	c := &fakeChart{}
	r.Put("c1", c)
	r.Put("c1", c)
	require.False(t, c.destroyed)

	r.Put("c1", &fakeChart{})
	require.True(t, c.destroyed)
}
