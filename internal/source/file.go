package source

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"calview/internal/model"
)

// FileProvider reads a YAML document of the form
//
//	events:
//	  - title: Coffee chat
//	    kind: meeting
//	    start: 2025-03-05T10:00:00+09:00
//	    end: 2025-03-05T10:30:00+09:00
//
// Missing ids are derived from the file path and position; a missing source
// is the provider's own.
type FileProvider struct {
	Source   model.SourceID
	Path     string
	Color    string
	Location *time.Location
}

type eventFile struct {
	Events []model.CalendarEvent `yaml:"events"`
}

func (p *FileProvider) ID() model.SourceID {
	return p.Source
}

func (p *FileProvider) Events(ctx context.Context) ([]model.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}

	var doc eventFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse events file %s: %w", p.Path, err)
	}

	loc := p.Location
	if loc == nil {
		loc = time.Local
	}

	out := make([]model.CalendarEvent, 0, len(doc.Events))
	for i, ev := range doc.Events {
		if ev.ID == "" {
			ev.ID = stableID(string(p.Source), p.Path, strconv.Itoa(i))
		}
		if ev.Source == "" {
			ev.Source = p.Source
		}
		if ev.Color == "" {
			ev.Color = p.Color
		}
		if !ev.Start.IsZero() {
			ev.Start = ev.Start.In(loc)
		}
		if !ev.End.IsZero() {
			ev.End = ev.End.In(loc)
		}
		if ev.AllDay && !ev.Start.IsZero() {
			last := ev.End
			if last.IsZero() || last.Before(ev.Start) {
				last = ev.Start
			}
			ev.Start = time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, loc)
			ev.End = time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 0, 0, loc)
		} else if ev.End.IsZero() {
			ev.End = ev.Start
		}
		out = append(out, ev)
	}
	return out, nil
}
