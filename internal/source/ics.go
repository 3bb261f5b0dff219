package source

import (
	"context"
	"time"

	"calview/internal/ics"
	"calview/internal/model"
)

// ICSProvider reads an ICS subscription through a caching Fetcher.
type ICSProvider struct {
	Source   model.SourceID
	URL      string
	Color    string
	Location *time.Location
	Fetcher  *ics.Fetcher
}

func (p *ICSProvider) ID() model.SourceID {
	return p.Source
}

func (p *ICSProvider) Events(ctx context.Context) ([]model.CalendarEvent, error) {
	src := ics.Source{ID: string(p.Source), URL: p.URL}

	res, err := p.Fetcher.FetchOne(ctx, src)
	if err != nil {
		return nil, err
	}
	parsed, err := ics.ParseICS(src, res.Body)
	if err != nil {
		return nil, err
	}
	return ics.ToEvents(parsed, ics.ConvertConfig{
		Source:          p.Source,
		Color:           p.Color,
		DisplayLocation: p.Location,
	}), nil
}
