package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	defaultSampleSize = 10
	defaultMaxDepth   = 10
	maxDepthMarker    = "MAX_DEPTH_REACHED"
)

var errSampleSize = errors.New("sample size must be positive")

type ReduceOptions struct {
	SampleSize int // items kept per array and keys kept per object
	MaxDepth   int // values nested deeper are replaced by a marker
}

// ReduceJSON copies the JSON value from r to w keeping only the first
// SampleSize entries of every array and object, in source order.
func ReduceJSON(r io.Reader, w io.Writer, opts ReduceOptions) error {
	if opts.SampleSize <= 0 {
		return errSampleSize
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	red := &reducer{dec: dec, opts: opts}
	if err := red.value(tok, 0); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, red.buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(w)
	return err
}

// ReducedPath names the output of reducing in: "{base}_reduced.json" beside it.
func ReducedPath(in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(filepath.Dir(in), base+"_reduced.json")
}

type reducer struct {
	dec  *json.Decoder
	opts ReduceOptions
	buf  bytes.Buffer
}

func (r *reducer) value(tok json.Token, depth int) error {
	if depth > r.opts.MaxDepth {
		if err := r.skip(tok); err != nil {
			return err
		}
		return r.scalar(maxDepthMarker)
	}

	switch tok {
	case json.Delim('['):
		r.buf.WriteByte('[')
		for n := 0; r.dec.More(); n++ {
			t, err := r.dec.Token()
			if err != nil {
				return err
			}
			if n >= r.opts.SampleSize {
				if err := r.skip(t); err != nil {
					return err
				}
				continue
			}
			if n > 0 {
				r.buf.WriteByte(',')
			}
			if err := r.value(t, depth+1); err != nil {
				return err
			}
		}
		if _, err := r.dec.Token(); err != nil {
			return err
		}
		r.buf.WriteByte(']')
		return nil
	case json.Delim('{'):
		r.buf.WriteByte('{')
		for n := 0; r.dec.More(); n++ {
			k, err := r.dec.Token()
			if err != nil {
				return err
			}
			t, err := r.dec.Token()
			if err != nil {
				return err
			}
			if n >= r.opts.SampleSize {
				if err := r.skip(t); err != nil {
					return err
				}
				continue
			}
			if n > 0 {
				r.buf.WriteByte(',')
			}
			if err := r.scalar(k); err != nil {
				return err
			}
			r.buf.WriteByte(':')
			if err := r.value(t, depth+1); err != nil {
				return err
			}
		}
		if _, err := r.dec.Token(); err != nil {
			return err
		}
		r.buf.WriteByte('}')
		return nil
	default:
		return r.scalar(tok)
	}
}

// skip consumes the remainder of the value starting with tok.
func (r *reducer) skip(tok json.Token) error {
	d, ok := tok.(json.Delim)
	if !ok || (d != '[' && d != '{') {
		return nil
	}
	for open := 1; open > 0; {
		t, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t {
		case json.Delim('['), json.Delim('{'):
			open++
		case json.Delim(']'), json.Delim('}'):
			open--
		}
	}
	return nil
}

func (r *reducer) scalar(v any) error {
	enc := json.NewEncoder(&r.buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	r.buf.Truncate(r.buf.Len() - 1)
	return nil
}
