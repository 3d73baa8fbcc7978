package track

import (
	"testing"
	"time"

	"github.com/takelwerk/dipwatch/internal/geom"
	"github.com/takelwerk/dipwatch/internal/storage"
)

func newTestGlove(sink RecordSink, f *FreetimeTracker, start time.Time) *GloveTracker {
	region := geom.Rect{X1: 300, Y1: 0, X2: 400, Y2: 100}
	return NewGloveTracker("Lacquering", 5, region, time.Second, f, sink, start, testLogger())
}

// A glove that preempts active freetime closes the freetime session at
// entry and is itself billed as in_use on exit.
func TestGloveTracker_PreemptsFreetime(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	f := newTestFreetime(sink, start)
	g := newTestGlove(sink, f, start)

	f.Update(start, true)
	f.Update(start.Add(2*time.Second), true)
	if !f.Active() {
		t.Fatal("freetime not active before glove entry")
	}

	g.Update(start.Add(3*time.Second), true)
	if f.Active() {
		t.Fatal("freetime still active after glove entry")
	}
	if len(sink.records) != 1 {
		t.Fatalf("records after glove entry = %d, want 1 (ended freetime)", len(sink.records))
	}
	if sink.records[0].Remark != storage.RemarkFreetime {
		t.Errorf("first record Remark = %q, want %q", sink.records[0].Remark, storage.RemarkFreetime)
	}

	g.Update(start.Add(6*time.Second), true)
	g.Update(start.Add(6500*time.Millisecond), false)
	g.Update(start.Add(7500*time.Millisecond), false)

	if len(sink.records) != 2 {
		t.Fatalf("records after glove exit = %d, want 2", len(sink.records))
	}
	rec := sink.records[1]
	if rec.Remark != storage.RemarkInUse {
		t.Errorf("glove record Remark = %q, want %q", rec.Remark, storage.RemarkInUse)
	}
	if rec.ZoneNumber != 5 {
		t.Errorf("glove record ZoneNumber = %d, want 5", rec.ZoneNumber)
	}
	if !rec.TimeIn.Equal(start.Add(3 * time.Second)) {
		t.Errorf("TimeIn = %v, want glove entry %v", rec.TimeIn, start.Add(3*time.Second))
	}
	if rec.DurationSeconds != 4 {
		t.Errorf("DurationSeconds = %d, want 4", rec.DurationSeconds)
	}
}

// A glove worn while freetime is inactive leaves no record and no
// accumulated time, regardless of how long it was worn.
func TestGloveTracker_NoPrecedingFreetimeNoRecord(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	f := newTestFreetime(sink, start)
	g := newTestGlove(sink, f, start)

	g.Update(start, true)
	g.Update(start.Add(10*time.Second), true)
	g.Update(start.Add(11500*time.Millisecond), false)

	if g.Present() {
		t.Error("glove still present after exit")
	}
	if len(sink.records) != 0 {
		t.Errorf("records = %d, want 0", len(sink.records))
	}
	if got := g.DailyTotal(start.Add(12 * time.Second)); got != 0 {
		t.Errorf("DailyTotal() = %v, want 0", got)
	}
}

func TestGloveTracker_BriefLossKeepsSession(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	f := newTestFreetime(sink, start)
	g := newTestGlove(sink, f, start)

	f.Update(start, true)
	f.Update(start.Add(2*time.Second), true)

	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }

	g.Update(at(3000), true)
	g.Update(at(3600), false) // 0.6s gap
	g.Update(at(4000), true)
	g.Update(at(4900), false)
	g.Update(at(6000), false) // 2s past last seen, session ends

	var gloveRecords []storage.SessionRecord
	for _, rec := range sink.records {
		if rec.ZoneNumber == 5 {
			gloveRecords = append(gloveRecords, rec)
		}
	}
	if len(gloveRecords) != 1 {
		t.Fatalf("glove records = %d, want 1", len(gloveRecords))
	}
	if !gloveRecords[0].TimeIn.Equal(at(3000)) {
		t.Errorf("TimeIn = %v, want %v", gloveRecords[0].TimeIn, at(3000))
	}
}

func TestGloveTracker_ForceExit(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	f := newTestFreetime(sink, start)
	g := newTestGlove(sink, f, start)

	f.Update(start, true)
	f.Update(start.Add(2*time.Second), true)
	g.Update(start.Add(3*time.Second), true)

	g.ForceExit(start.Add(5 * time.Second))
	g.ForceExit(start.Add(5 * time.Second))

	var gloveRecords int
	for _, rec := range sink.records {
		if rec.ZoneNumber == 5 {
			gloveRecords++
		}
	}
	if gloveRecords != 1 {
		t.Errorf("glove records after double ForceExit = %d, want 1", gloveRecords)
	}
}
