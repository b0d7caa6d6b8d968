// Package remote fetches playlist snapshots from the network.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bassista/go_devbytes/internal/config"
	"github.com/bassista/go_devbytes/internal/model"
)

const defaultTimeout = 15 * time.Second

// Source fetches the full playlist. Failures are *model.NetworkError or *model.DecodeError.
type Source interface {
	FetchPlaylist(ctx context.Context) ([]model.WireItem, error)
}

// NewSourceFromConfig builds the source selected by cfg.Type.
func NewSourceFromConfig(cfg config.RemoteConfig) (Source, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = defaultTimeout
	}

	switch cfg.Type {
	case config.RemoteTypeJSON, "":
		return NewHTTPSource(cfg.URL, client), nil
	case config.RemoteTypeFeed:
		return NewFeedSource(cfg.URL, client), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s (supported: %s, %s)", cfg.Type, config.RemoteTypeJSON, config.RemoteTypeFeed)
	}
}

// get performs the request and classifies transport failures and non-2xx statuses.
// The caller owns closing the returned body.
func get(ctx context.Context, client *http.Client, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.NetworkError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &model.NetworkError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return resp, nil
}
