// Package mapper converts playlist records between the remote wire format,
// the local store format and the domain model.
//
// All functions are pure and safe for concurrent use.
package mapper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_devbytes/internal/model"
	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use once built; it caches struct metadata internally.
var validate = validator.New()

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToStored maps a wire record to its stored form.
// Identity falls back to the URL when the payload carries no id.
func ToStored(w model.WireItem) (model.StoredItem, error) {
	id := strings.TrimSpace(w.ID.String())
	if id == "" {
		id = strings.TrimSpace(w.URL)
	}
	if err := validate.Struct(w); err != nil {
		return model.StoredItem{}, malformed(id, err)
	}
	// Whitespace-only ids pass the tag check but would commit an empty key.
	if id == "" {
		return model.StoredItem{}, &model.MalformedDataError{Field: "id", Reason: "empty id"}
	}

	updatedAt, err := ParseTimestamp(w.Updated.String())
	if err != nil {
		return model.StoredItem{}, &model.MalformedDataError{ItemID: id, Field: "updated", Reason: err.Error()}
	}

	return model.StoredItem{
		ID:           id,
		Title:        w.Title,
		Description:  w.Description,
		URL:          w.URL,
		ThumbnailURL: w.Thumbnail,
		UpdatedAt:    updatedAt,
	}, nil
}

// ToDomain maps a stored record to a domain Item.
func ToDomain(s model.StoredItem) (model.Item, error) {
	if err := validate.Struct(s); err != nil {
		return model.Item{}, malformed(s.ID, err)
	}
	return model.Item{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		URL:          s.URL,
		ThumbnailURL: s.ThumbnailURL,
		UpdatedAt:    s.UpdatedAt,
	}, nil
}

// ToStoredAll maps a whole payload. It fails on the first malformed record
// and on duplicate ids, so a partially valid payload is never committed.
func ToStoredAll(items []model.WireItem) ([]model.StoredItem, error) {
	out := make([]model.StoredItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, w := range items {
		s, err := ToStored(w)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s.ID]; dup {
			return nil, &model.MalformedDataError{ItemID: s.ID, Field: "id", Reason: "duplicate id in payload"}
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// ToDomainAll maps a store emission to domain Items, keeping order.
func ToDomainAll(items []model.StoredItem) ([]model.Item, error) {
	out := make([]model.Item, 0, len(items))
	for _, s := range items {
		it, err := ToDomain(s)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// ParseTimestamp accepts unix seconds or one of the common textual layouts.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return inRange(raw, time.Unix(secs, 0).UTC())
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return inRange(raw, t.UTC())
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// inRange rejects years the stores cannot encode, such as millisecond epochs read as seconds.
func inRange(raw string, t time.Time) (time.Time, error) {
	if y := t.Year(); y < 0 || y > 9999 {
		return time.Time{}, fmt.Errorf("timestamp %q is out of range (year %d)", raw, y)
	}
	return t, nil
}

func malformed(id string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &model.MalformedDataError{
			ItemID: id,
			Field:  strings.ToLower(fe.Field()),
			Reason: fmt.Sprintf("failed %q validation", fe.Tag()),
		}
	}
	return &model.MalformedDataError{ItemID: id, Field: "?", Reason: err.Error()}
}
