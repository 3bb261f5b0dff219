package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/model"
)

func TestNewStore(t *testing.T) {
	t.Parallel()

	t.Run("keeps well formed records in order", func(t *testing.T) {
		t.Parallel()

		s, errs := NewStore([]model.CalendarEvent{
			event("b", at(2025, 3, 5, 11, 0), at(2025, 3, 5, 12, 0), model.SourceGoogle),
			event("a", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 10, 0), model.SourcePlatform),
		})
		require.Empty(t, errs)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, []string{"b", "a"}, ids(s.Events()))
		assert.Equal(t, []model.SourceID{model.SourceGoogle, model.SourcePlatform}, s.Sources())
	})

	t.Run("rejects malformed records", func(t *testing.T) {
		t.Parallel()

		bad := event("x", at(2025, 3, 5, 0, 0), at(2025, 3, 5, 0, 0), model.SourcePlatform)
		bad.Kind = "holiday"

		s, errs := NewStore([]model.CalendarEvent{
			event("", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourcePlatform),
			event("ok", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourcePlatform),
			event("backwards", at(2025, 3, 5, 11, 0), at(2025, 3, 5, 10, 0), model.SourcePlatform),
			event("nostart", time.Time{}, at(2025, 3, 5, 10, 0), model.SourcePlatform),
			event("ok", at(2025, 3, 6, 10, 0), at(2025, 3, 6, 11, 0), model.SourceGoogle),
			bad,
		})

		assert.Equal(t, 1, s.Len())
		require.Len(t, errs, 5)
		for _, err := range errs {
			assert.ErrorIs(t, err, ErrInvalidEvent)
		}

		var rejected *RejectedEvent
		require.True(t, errors.As(errs[1], &rejected))
		assert.Equal(t, "backwards", rejected.ID)
		assert.Equal(t, "end before start", rejected.Reason)
		assert.Contains(t, errs[3].Error(), "duplicate id")
		assert.Contains(t, errs[4].Error(), "unknown kind")
	})

	t.Run("defaults empty kind", func(t *testing.T) {
		t.Parallel()

		rec := event("k", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourcePlatform)
		rec.Kind = ""
		s := mustStore(rec)

		got, ok := s.Get("k")
		require.True(t, ok)
		assert.Equal(t, model.KindEvent, got.Kind)
	})

	t.Run("owns its records", func(t *testing.T) {
		t.Parallel()

		records := []model.CalendarEvent{event("a", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourcePlatform)}
		s := mustStore(records...)
		records[0].Title = "changed"

		got, _ := s.Get("a")
		assert.Equal(t, "event a", got.Title)
	})

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()

		s := EmptyStore()
		assert.Equal(t, 0, s.Len())
		assert.Empty(t, s.Sources())
		_, ok := s.Get("a")
		assert.False(t, ok)
	})

	t.Run("count by source", func(t *testing.T) {
		t.Parallel()

		s := mustStore(
			event("a", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourcePlatform),
			event("b", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourcePlatform),
			event("c", at(2025, 3, 5, 10, 0), at(2025, 3, 5, 11, 0), model.SourceGoogle),
		)
		assert.Equal(t, map[model.SourceID]int{model.SourcePlatform: 2, model.SourceGoogle: 1}, s.CountBySource())
	})
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	v := NewVisibility(model.SourcePlatform, model.SourceGoogle)
	v[model.SourceGoogle] = false

	platform := &model.CalendarEvent{Source: model.SourcePlatform}
	google := &model.CalendarEvent{Source: model.SourceGoogle}
	unknown := &model.CalendarEvent{Source: "unrecognized"}

	assert.True(t, v.IsVisible(platform))
	assert.False(t, v.IsVisible(google))
	assert.True(t, v.IsVisible(unknown))
	assert.True(t, Visibility(nil).IsVisible(unknown))
	assert.Equal(t, []model.SourceID{model.SourceGoogle}, v.Hidden())

	clone := v.Clone()
	clone[model.SourceGoogle] = true
	assert.False(t, v[model.SourceGoogle])
}
