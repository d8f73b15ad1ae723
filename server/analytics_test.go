package main

import "testing"

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	a.Track(EvtRunStart, 0, "run-1", nil)
	a.Track(EvtLevelUp, 0, "run-1", map[string]interface{}{"level": 2})
	a.Track(EvtLevelUp, 0, "run-1", map[string]interface{}{"level": 3})
	a.Track(EvtDeath, 0, "run-2", nil)
	a.Stop()
	a.Stop()

	counts, err := a.EventCounts("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if counts[EvtRunStart] != 1 || counts[EvtLevelUp] != 2 || counts[EvtDeath] != 0 {
		t.Errorf("run-1 counts = %v", counts)
	}
	all, _ := a.EventCounts("")
	if all[EvtDeath] != 1 {
		t.Errorf("all counts = %v", all)
	}
}
