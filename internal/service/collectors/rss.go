package collectors

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"Noesis/internal/domain/models"

	"github.com/mmcdole/gofeed"
)

// RSS polls a fixed set of feed URLs. A feed that fails to parse is skipped;
// the source only errors when every feed failed, so one dead feed does not
// blank out the rest.
type RSS struct {
	parser   *gofeed.Parser
	feedURLs []string
	maxItems int
}

func NewRSS(feedURLs []string, maxItems int, timeout time.Duration) *RSS {
	parser := gofeed.NewParser()
	parser.UserAgent = "noesis-collector/1.0"
	if timeout > 0 {
		parser.Client = &http.Client{Timeout: timeout}
	}
	if maxItems <= 0 {
		maxItems = 20
	}
	return &RSS{parser: parser, feedURLs: feedURLs, maxItems: maxItems}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Collect(ctx context.Context) ([]models.RawSignal, error) {
	signals := make([]models.RawSignal, 0, r.maxItems*len(r.feedURLs))
	failed := 0
	var lastErr error

	for _, feedURL := range r.feedURLs {
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failed++
			lastErr = fmt.Errorf("parse %s: %w", feedURL, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= r.maxItems {
				break
			}
			signals = append(signals, models.RawSignal{
				Platform:  "rss",
				Content:   item.Description,
				Author:    feed.Title,
				Timestamp: rssTimestamp(item),
				Link:      item.Link,
				Extra: map[string]string{
					"title": item.Title,
					"feed":  feedURL,
				},
			})
			count++
		}
	}

	if failed > 0 && failed == len(r.feedURLs) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failed, lastErr)
	}
	return signals, nil
}

func rssTimestamp(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return item.Published
}
