package database

import "testing"

func TestGetDatabaseReusesAndRecreates(t *testing.T) {
	t.Cleanup(func() { ClosePool() })
	cfg := DatabaseConfig{UseLocalDB: true, LocalDBPath: ":memory:"}

	first, err := GetDatabase(cfg)
	if err != nil {
		t.Fatal(err)
	}
	again, err := GetDatabase(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if first != again {
		t.Error("same config should reuse the pooled connection")
	}
	if stats := GetConnectionStats(); stats["status"] != "connected" {
		t.Errorf("stats = %v", stats)
	}

	cfg.LocalDBPath = t.TempDir() + "/calendar.db"
	other, err := GetDatabase(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if other == first {
		t.Error("changed path should open a new connection")
	}

	if err := ClosePool(); err != nil {
		t.Fatal(err)
	}
	if stats := GetConnectionStats(); stats["status"] != "no_connection" {
		t.Errorf("stats after close = %v", stats)
	}
	if err := ClosePool(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
