package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLogFreshnessMissingFileIsFresh(t *testing.T) {
	p := LogFreshnessProbe{
		Path:       filepath.Join(t.TempDir(), "does-not-exist.log"),
		StaleAfter: time.Minute,
	}
	res := p.Check(context.Background())
	if !res.OK {
		t.Fatalf("missing log must be treated as fresh, got %+v", res)
	}
	if res.Message != "no log yet" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestLogFreshnessRecentWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := LogFreshnessProbe{Path: path, StaleAfter: time.Minute}
	res := p.Check(context.Background())
	if !res.OK {
		t.Fatalf("fresh log reported stale: %+v", res)
	}
}

func TestLogFreshnessStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-30 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	p := LogFreshnessProbe{Path: path, StaleAfter: 10 * time.Minute}
	res := p.Check(context.Background())
	if res.OK {
		t.Fatalf("expected stale verdict, got %+v", res)
	}
}
