package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
)

const maxPayloadBytes = 16 << 20

// HTTPSource reads a JSON playlist: either a bare array of items or {"videos": [...]}.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a JSON source. A nil client uses a client with the default timeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPSource{url: url, client: client}
}

type videoContainer struct {
	Videos []model.WireItem `json:"videos"`
}

// FetchPlaylist downloads and decodes the playlist.
func (s *HTTPSource) FetchPlaylist(ctx context.Context) ([]model.WireItem, error) {
	resp, err := get(ctx, s.client, s.url, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, &model.NetworkError{URL: s.url, Err: fmt.Errorf("read body: %w", err)}
	}

	items, err := decodePlaylist(body)
	if err != nil {
		return nil, &model.DecodeError{Err: err}
	}
	logger.WithComponent("remote").Debugf("fetched %d items from %s", len(items), s.url)
	return items, nil
}

func decodePlaylist(body []byte) ([]model.WireItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	switch trimmed[0] {
	case '[':
		var items []model.WireItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode item array: %w", err)
		}
		return items, nil
	case '{':
		var container videoContainer
		if err := json.Unmarshal(trimmed, &container); err != nil {
			return nil, fmt.Errorf("decode video container: %w", err)
		}
		if container.Videos == nil {
			return nil, errors.New(`payload object has no "videos" array`)
		}
		return container.Videos, nil
	default:
		preview := string(trimmed)
		if len(preview) > 32 {
			preview = preview[:32]
		}
		return nil, fmt.Errorf("unexpected payload starting with %q", strings.TrimSpace(preview))
	}
}
