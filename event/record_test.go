package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseRecord(t *testing.T) {
	rec := Record{
		ID:          "evt-1",
		HouseholdID: "hh-1",
		Title:       "Dentist",
		StartAt:     "2024-05-03T10:00:00Z",
		EndAt:       "2024-05-03T11:00:00Z",
		Timezone:    strPtr("Europe/Berlin"),
		RRule:       strPtr("FREQ=DAILY;COUNT=5"),
		ExDates:     []string{"2024-05-05"},
		RDates:      []string{"2024-05-10T10:00:00Z"},
		Attendees: []AttendeeRecord{
			{Name: "Alice", Email: "alice@example.com", Status: "accepted"},
			{Name: "Bob", Email: "bob@example.com", Status: "whatever"},
		},
	}

	ev, err := ParseRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", ev.ID)
	assert.Equal(t, "hh-1", ev.HouseholdID)
	assert.Equal(t, time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC), ev.StartAt)
	assert.Equal(t, time.Hour, ev.Duration())
	assert.Equal(t, "FREQ=DAILY;COUNT=5", ev.RRule)
	assert.True(t, ev.Recurring())
	require.Len(t, ev.ExDates, 1)
	assert.Equal(t, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), ev.ExDates[0])
	require.Len(t, ev.RDates, 1)
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, "ACCEPTED", ev.Attendees[0].Status.PartStat())
	assert.Equal(t, "NEEDS-ACTION", ev.Attendees[1].Status.PartStat())
	assert.Equal(t, "Europe/Berlin", ev.Zone().String())
}

func TestParseRecordErrors(t *testing.T) {
	base := Record{
		ID:      "evt-1",
		StartAt: "2024-05-03T10:00:00Z",
		EndAt:   "2024-05-03T11:00:00Z",
	}

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing id", func(r *Record) { r.ID = "" }},
		{"garbage start", func(r *Record) { r.StartAt = "not a time" }},
		{"garbage end", func(r *Record) { r.EndAt = "yesterday-ish" }},
		{"unknown timezone", func(r *Record) { r.Timezone = strPtr("Mars/Olympus_Mons") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.mutate(&rec)
			_, err := ParseRecord(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadRecord)
		})
	}
}

func TestParseRecordTolerance(t *testing.T) {
	t.Run("nil optionals become empty", func(t *testing.T) {
		ev, err := ParseRecord(Record{
			ID:      "evt-1",
			StartAt: "2024-05-03T10:00:00Z",
			EndAt:   "2024-05-03T11:00:00Z",
		})
		require.NoError(t, err)
		assert.False(t, ev.Recurring())
		assert.Empty(t, ev.ExDates)
		assert.Empty(t, ev.RDates)
		assert.Equal(t, time.UTC, ev.Zone())
	})

	t.Run("date-only anchors parse at UTC midnight", func(t *testing.T) {
		ev, err := ParseRecord(Record{
			ID:      "evt-1",
			StartAt: "2024-05-03",
			EndAt:   "2024-05-04",
			AllDay:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), ev.StartAt)
	})

	t.Run("bad exdate entries are dropped, not fatal", func(t *testing.T) {
		ev, err := ParseRecord(Record{
			ID:      "evt-1",
			StartAt: "2024-05-03T10:00:00Z",
			EndAt:   "2024-05-03T11:00:00Z",
			ExDates: []string{"garbage", "2024-05-05T10:00:00Z"},
		})
		require.NoError(t, err)
		assert.Len(t, ev.ExDates, 1)
	})

	t.Run("inverted span passes through unchanged", func(t *testing.T) {
		ev, err := ParseRecord(Record{
			ID:      "evt-1",
			StartAt: "2024-05-03T11:00:00Z",
			EndAt:   "2024-05-03T10:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, -time.Hour, ev.Duration())
	})
}

func TestParseRecords(t *testing.T) {
	events, errs := ParseRecords([]Record{
		{ID: "ok-1", StartAt: "2024-05-03T10:00:00Z", EndAt: "2024-05-03T11:00:00Z"},
		{ID: "bad-1", StartAt: "nope", EndAt: "2024-05-03T11:00:00Z"},
		{ID: "ok-2", StartAt: "2024-05-04T10:00:00Z", EndAt: "2024-05-04T11:00:00Z"},
	})

	require.Len(t, events, 2)
	assert.Equal(t, "ok-1", events[0].ID)
	assert.Equal(t, "ok-2", events[1].ID)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrBadRecord)
}

func TestOccurrenceUID(t *testing.T) {
	a := Occurrence{EventID: "evt-1", Index: 0}
	b := Occurrence{EventID: "evt-1", Index: 0}
	c := Occurrence{EventID: "evt-1", Index: 1}
	d := Occurrence{EventID: "evt-2", Index: 0}

	assert.Equal(t, a.UID(), b.UID(), "same identity must yield the same UID")
	assert.NotEqual(t, a.UID(), c.UID())
	assert.NotEqual(t, a.UID(), d.UID())
}
