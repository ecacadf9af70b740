// Package feed fetches and normalizes one RSS/Atom source into items.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/lunalism/techisy/pkg/logger"
)

// DefaultTimeout bounds the network fetch for one feed. A timeout fails
// only that source; other sources are unaffected.
const DefaultTimeout = 5 * time.Second

// UserAgent identifies the crawler to upstream feed servers.
const UserAgent = "TechisyBot/1.0 (+https://techisy.io)"

// Item is one normalized feed entry. Entries missing a title or link are
// dropped during parsing and never reach the caller.
type Item struct {
	Title       string
	Link        string
	PublishedAt time.Time
}

// Reader fetches and parses syndication feeds.
type Reader struct {
	parser  *gofeed.Parser
	timeout time.Duration
	log     *logger.Logger
}

// NewReader creates a Reader with the given fetch timeout. A zero or
// negative timeout falls back to DefaultTimeout.
func NewReader(timeout time.Duration, log *logger.Logger) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	parser := gofeed.NewParser()
	parser.UserAgent = UserAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Reader{
		parser:  parser,
		timeout: timeout,
		log:     log.WithComponent("feed"),
	}
}

// Fetch retrieves and parses the feed at rssURL. Non-2xx responses,
// parse failures, and timeouts are returned as a single error for the
// whole source.
func (r *Reader) Fetch(ctx context.Context, rssURL string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.Debug().Str("url", rssURL).Msg("Fetching feed")

	parsed, err := r.parser.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", rssURL, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Title == "" || entry.Link == "" {
			// Invalid entry, not countable as filtered.
			continue
		}
		items = append(items, Item{
			Title:       entry.Title,
			Link:        entry.Link,
			PublishedAt: resolvePublished(entry),
		})
	}

	r.log.Debug().Int("items", len(items)).Str("url", rssURL).Msg("Parsed feed")

	return items, nil
}

// resolvePublished picks the publish date with a fallback chain that
// never fails: feed-parsed date, then best-effort parse of the raw
// string, then the current instant.
func resolvePublished(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.Published != "" {
		if t, err := dateparse.ParseAny(entry.Published); err == nil {
			return t
		}
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Now()
}
