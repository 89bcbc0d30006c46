package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduceJSONSamplesAndLimitsDepth(t *testing.T) {
	t.Parallel()

	in := `{"z": [1, 2, 3, 4], "a": {"c": {"d": 1}}, "dropped": true}`
	var out bytes.Buffer
	require.NoError(t, ReduceJSON(strings.NewReader(in), &out, ReduceOptions{SampleSize: 2, MaxDepth: 2}))

	want := `{
  "z": [
    1,
    2
  ],
  "a": {
    "c": {
      "d": "MAX_DEPTH_REACHED"
    }
  }
}
`
	require.Equal(t, want, out.String())
}

func TestReduceJSONKeepsTextAndNumbers(t *testing.T) {
	t.Parallel()

	in := `[{"name": "<Müller & Co>", "n": 1.50, "big": 12345678901234567890, "none": null}, []]`
	var out bytes.Buffer
	require.NoError(t, ReduceJSON(strings.NewReader(in), &out, ReduceOptions{SampleSize: 10, MaxDepth: 10}))

	got := out.String()
	require.Contains(t, got, `"<Müller & Co>"`)
	require.Contains(t, got, `"n": 1.50`)
	require.Contains(t, got, `"big": 12345678901234567890`)
	require.Contains(t, got, `"none": null`)
	require.Contains(t, got, "[]")
}

func TestReduceJSONScalarRoot(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, ReduceJSON(strings.NewReader(`"x"`), &out, ReduceOptions{SampleSize: 1}))
	require.Equal(t, "\"x\"\n", out.String())

	out.Reset()
	require.NoError(t, ReduceJSON(strings.NewReader(`[[1]]`), &out, ReduceOptions{SampleSize: 1, MaxDepth: 0}))
	require.Equal(t, "[\n  \"MAX_DEPTH_REACHED\"\n]\n", out.String())
}

func TestReduceJSONErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.ErrorIs(t, ReduceJSON(strings.NewReader(`[]`), &out, ReduceOptions{}), errSampleSize)
	require.Error(t, ReduceJSON(strings.NewReader(`{"a": [1,`), &out, ReduceOptions{SampleSize: 1}))
	require.Error(t, ReduceJSON(strings.NewReader(``), &out, ReduceOptions{SampleSize: 1}))
}

func TestReducedPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("data", "big_reduced.json"), ReducedPath(filepath.Join("data", "big.json")))
	require.Equal(t, "dump_reduced.json", ReducedPath("dump"))
}

func TestReduceCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "big.json")
	require.NoError(t, os.WriteFile(in, []byte(`[1, 2, 3]`), 0o644))

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"reduce", in, "--sample", "1"})
	require.NoError(t, cmd.Execute())

	out, err := os.ReadFile(filepath.Join(dir, "big_reduced.json"))
	require.NoError(t, err)
	require.Equal(t, "[\n  1\n]\n", string(out))
	require.Contains(t, stdout.String(), "big_reduced.json")
}
