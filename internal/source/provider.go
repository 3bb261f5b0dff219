// Package source adapts calendar feeds (ICS subscriptions, YAML files and a
// synthetic generator) to a common Provider interface and merges them into
// a calendar.Store.
package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"calview/internal/config"
	"calview/internal/ics"
	"calview/internal/model"
)

// Provider delivers the current events of one calendar source.
type Provider interface {
	ID() model.SourceID
	Events(ctx context.Context) ([]model.CalendarEvent, error)
}

// idNamespace scopes generated event ids so they stay stable across runs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("calview/events"))

func stableID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "/"))).String()
}

// FromConfig builds one provider per configured source, in config order.
// now anchors the mock providers' window; nil means time.Now.
func FromConfig(cfg *config.Config, loc *time.Location, client *http.Client, now func() time.Time) ([]Provider, error) {
	fetcher := ics.NewFetcher(cfg.CacheDir, client)

	providers := make([]Provider, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		id := model.SourceID(s.ID)
		switch s.Type {
		case config.SourceICS:
			providers = append(providers, &ICSProvider{
				Source:   id,
				URL:      s.URL,
				Color:    s.Color,
				Location: loc,
				Fetcher:  fetcher,
			})
		case config.SourceFile:
			providers = append(providers, &FileProvider{
				Source:   id,
				Path:     s.Path,
				Color:    s.Color,
				Location: loc,
			})
		case config.SourceMock:
			providers = append(providers, &MockProvider{
				Source:   id,
				Seed:     s.Seed,
				Count:    s.Count,
				Color:    s.Color,
				Location: loc,
				Now:      now,
			})
		default:
			return nil, fmt.Errorf("source %q: unknown type %q", s.ID, s.Type)
		}
	}
	return providers, nil
}
