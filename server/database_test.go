package main

import (
	"testing"

	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

func TestPlayers(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreatePlayer("nova", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreatePlayer("nova", "x"); err == nil {
		t.Error("duplicate username accepted")
	}
	p, err := db.GetPlayerByUsername("nova")
	if err != nil || p == nil || p.ID != id || p.IsGuest {
		t.Errorf("GetPlayerByUsername = %+v, %v", p, err)
	}
	gid, _ := db.CreateGuest("Guest_1")
	g, _ := db.GetPlayerByID(gid)
	if g == nil || !g.IsGuest {
		t.Errorf("guest = %+v", g)
	}
	if p, _ := db.GetPlayerByID(9999); p != nil {
		t.Error("missing player should be nil")
	}
	if ok, _ := db.UsernameExists("nova"); !ok {
		t.Error("UsernameExists = false")
	}
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("missing setting = %q", v)
	}
	db.SetSetting("k", "one")
	db.SetSetting("k", "two")
	if v := db.GetSetting("k"); v != "two" {
		t.Errorf("setting = %q, want two", v)
	}
}

func TestBlobStore(t *testing.T) {
	db := openTestDB(t)
	var store persist.BlobStore = db

	if _, ok, err := store.GetBlob("nope"); ok || err != nil {
		t.Errorf("missing blob: ok=%v err=%v", ok, err)
	}
	store.SetBlob("a", []byte{1, 2, 3})
	store.SetBlob("a", []byte{4})
	b, ok, err := store.GetBlob("a")
	if err != nil || !ok || len(b) != 1 || b[0] != 4 {
		t.Errorf("blob = %v %v %v", b, ok, err)
	}

	c := sim.DefaultCatalog()
	prof := persist.DefaultProfile(c)
	prof.Fragments = 77
	if err := persist.SaveProfile(store, persist.ProfileKey(1), prof); err != nil {
		t.Fatal(err)
	}
	got, err := persist.LoadProfile(store, persist.ProfileKey(1), c)
	if err != nil || got.Fragments != 77 {
		t.Errorf("profile via sqlite = %+v, %v", got, err)
	}
}

func TestRunHistory(t *testing.T) {
	db := openTestDB(t)
	pid, _ := db.CreateGuest("Guest_runs")

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := db.RecordRun(RunRow{ID: id, PlayerID: pid, ShipID: "vanguard", ShipLevel: 1, Level: i + 1, Fragments: 10 * (i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := db.GetRunHistory(pid, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Errorf("history = %+v", runs)
	}
}
