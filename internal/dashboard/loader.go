package dashboard

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Loader fetches dataset documents. It performs a single attempt; deadlines
// come from the caller's context.
type Loader struct {
	Client *http.Client
	Logger *zap.Logger
}

// NewLoader returns a Loader using http.DefaultClient.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{Client: http.DefaultClient, Logger: logger}
}

// Load retrieves and parses the document at url. Failures are logged and
// returned; the caller is expected to abandon rendering.
func (l *Loader) Load(ctx context.Context, url string) (*Document, error) {
	doc, err := l.load(ctx, url)
	if err != nil {
		l.logger().Error("error loading data", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	l.logger().Debug("document loaded", zap.String("url", url), zap.Int("categories", len(doc.Categories)))
	return doc, nil
}

func (l *Loader) load(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, Status: resp.Status}
	}
	doc, err := ParseDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return doc, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}
