package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

const (
	documentExt = ".json"
	notesExt    = ".md"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidName       = errors.New("invalid document name")
	ErrMalformedDocument = errors.New("document is not valid JSON")
)

var documentName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// DocumentInfo describes a document file on disk.
type DocumentInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	HasNotes bool      `json:"has_notes"`
}

// DocumentStore reads documents from a directory and memoizes parsed results
// until the file changes or the entry is invalidated.
type DocumentStore struct {
	dir    string
	logger *zap.Logger

	mu     sync.RWMutex
	parsed map[string]parsedDocument
}

type parsedDocument struct {
	doc     *dashboard.Document
	modTime time.Time
}

func NewDocumentStore(dir string, logger *zap.Logger) *DocumentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{dir: dir, logger: logger, parsed: make(map[string]parsedDocument)}
}

func (s *DocumentStore) Dir() string { return s.dir }

// List returns the documents in the store, sorted by name.
func (s *DocumentStore) List() ([]DocumentInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}
	var out []DocumentInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != documentExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), documentExt)
		if !documentName.MatchString(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		_, notesErr := os.Stat(s.notesPath(name))
		out = append(out, DocumentInfo{
			Name:     name,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			HasNotes: notesErr == nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Raw returns the document bytes as stored.
func (s *DocumentStore) Raw(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
		}
		return nil, err
	}
	return b, nil
}

// Load returns the parsed document, reparsing when the file has changed.
func (s *DocumentStore) Load(name string) (*dashboard.Document, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
		}
		return nil, err
	}

	s.mu.RLock()
	p, ok := s.parsed[name]
	s.mu.RUnlock()
	if ok && p.modTime.Equal(info.ModTime()) {
		return p.doc, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("parse %s: %w", name, ErrMalformedDocument)
	}
	doc, err := dashboard.ParseDocument(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	s.mu.Lock()
	s.parsed[name] = parsedDocument{doc: doc, modTime: info.ModTime()}
	s.mu.Unlock()
	s.logger.Debug("document parsed", zap.String("name", name), zap.Int("categories", len(doc.Categories)))
	return doc, nil
}

// Notes returns the Markdown notes stored beside the document, if any.
func (s *DocumentStore) Notes(name string) ([]byte, bool) {
	if !documentName.MatchString(name) {
		return nil, false
	}
	b, err := os.ReadFile(s.notesPath(name))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Invalidate drops the memoized parse of name.
func (s *DocumentStore) Invalidate(name string) {
	s.mu.Lock()
	delete(s.parsed, name)
	s.mu.Unlock()
}

// NameFromPath maps a file in the store directory to its document name.
func (s *DocumentStore) NameFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext != documentExt && ext != notesExt {
		return "", false
	}
	name := strings.TrimSuffix(base, ext)
	return name, documentName.MatchString(name)
}

func (s *DocumentStore) path(name string) (string, error) {
	if !documentName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+documentExt), nil
}

func (s *DocumentStore) notesPath(name string) string {
	return filepath.Join(s.dir, name+notesExt)
}
