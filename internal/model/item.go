package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Item is the domain view of a playlist entry. Values are never mutated in place;
// a refresh replaces the whole set.
type Item struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const shortDescriptionLen = 200

// ShortDescription returns the description cut at a word boundary near 200 characters.
func (i Item) ShortDescription() string {
	return SmartTruncate(i.Description, shortDescriptionLen)
}

// SmartTruncate shortens s to at most length runes, cutting at the last space and appending "...".
func SmartTruncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:length])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ") + "..."
}

// WireItem is the shape returned by a remote playlist source.
type WireItem struct {
	ID             Scalar `json:"id" validate:"required_without=URL"`
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	URL            string `json:"url" validate:"omitempty,url"`
	Updated        Scalar `json:"updated" validate:"required"`
	Thumbnail      string `json:"thumbnail" validate:"omitempty,url"`
	ClosedCaptions string `json:"closedCaptions,omitempty"`
}

// StoredItem is the record persisted by a local store.
type StoredItem struct {
	ID           string    `json:"id" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	URL          string    `json:"url" validate:"omitempty,url"`
	ThumbnailURL string    `json:"thumbnailUrl" validate:"omitempty,url"`
	UpdatedAt    time.Time `json:"updatedAt" validate:"required"`
}

// Scalar holds a JSON string or number as its textual form.
// Remote payloads are inconsistent about quoting ids and timestamps.
type Scalar string

// UnmarshalJSON accepts strings, numbers and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("scalar: expected string or number, got %s", string(data))
	}
	*s = Scalar(num.String())
	return nil
}

// String returns the textual form.
func (s Scalar) String() string {
	return string(s)
}
