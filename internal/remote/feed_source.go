package remote

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// FeedSource reads an RSS or Atom playlist feed, such as a YouTube playlist feed.
type FeedSource struct {
	url    string
	client *http.Client
	parser *gofeed.Parser
}

// NewFeedSource creates a feed source. A nil client uses a client with the default timeout.
func NewFeedSource(url string, client *http.Client) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &FeedSource{url: url, client: client, parser: gofeed.NewParser()}
}

// FetchPlaylist downloads the feed and maps its entries to wire items.
// The transport is done here rather than by gofeed so network and parse failures stay distinct.
func (s *FeedSource) FetchPlaylist(ctx context.Context) ([]model.WireItem, error) {
	resp, err := get(ctx, s.client, s.url, "application/atom+xml, application/rss+xml, application/xml;q=0.9")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &model.NetworkError{URL: s.url, Err: ctx.Err()}
		}
		return nil, &model.DecodeError{Err: err}
	}

	items := make([]model.WireItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, feedEntryToWire(entry))
	}
	logger.WithComponent("remote").Debugf("fetched %d feed entries from %s", len(items), s.url)
	return items, nil
}

func feedEntryToWire(entry *gofeed.Item) model.WireItem {
	w := model.WireItem{
		ID:          model.Scalar(entry.GUID),
		Title:       entry.Title,
		Description: entry.Description,
		URL:         entry.Link,
	}

	switch {
	case entry.UpdatedParsed != nil:
		w.Updated = model.Scalar(strconv.FormatInt(entry.UpdatedParsed.Unix(), 10))
	case entry.PublishedParsed != nil:
		w.Updated = model.Scalar(strconv.FormatInt(entry.PublishedParsed.Unix(), 10))
	}

	if entry.Image != nil {
		w.Thumbnail = entry.Image.URL
	}

	// YouTube feeds carry the description and thumbnail under media:group.
	if group := firstExtension(entry.Extensions, "media", "group"); group != nil {
		if w.Description == "" {
			if desc := firstChild(group, "description"); desc != nil {
				w.Description = desc.Value
			}
		}
		if w.Thumbnail == "" {
			if thumb := firstChild(group, "thumbnail"); thumb != nil {
				w.Thumbnail = thumb.Attrs["url"]
			}
		}
	}
	return w
}

func firstExtension(exts ext.Extensions, namespace, name string) *ext.Extension {
	if exts == nil {
		return nil
	}
	if list := exts[namespace][name]; len(list) > 0 {
		return &list[0]
	}
	return nil
}

func firstChild(e *ext.Extension, name string) *ext.Extension {
	if list := e.Children[name]; len(list) > 0 {
		return &list[0]
	}
	return nil
}
