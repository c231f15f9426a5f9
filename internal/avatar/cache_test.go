package avatar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDownloader struct {
	data  []byte
	err   error
	calls int
}

func (d *fakeDownloader) Get(_ context.Context, _ string) ([]byte, error) {
	d.calls++
	return d.data, d.err
}

func newCache(t *testing.T, dl Downloader) *Cache {
	t.Helper()
	c, err := New(Config{Dir: t.TempDir(), Client: dl, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestEnsure_DownloadsOncePerUser(t *testing.T) {
	dl := &fakeDownloader{data: []byte("png-bytes")}
	c := newCache(t, dl)

	if err := c.Ensure(context.Background(), "u1", "https://cdn/a.png"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := c.Ensure(context.Background(), "u1", "https://cdn/a.png"); err != nil {
		t.Fatalf("Ensure (cached): %v", err)
	}
	if dl.calls != 1 {
		t.Errorf("downloads = %d, want 1", dl.calls)
	}

	data, err := os.ReadFile(c.Path("u1"))
	if err != nil {
		t.Fatalf("read cached file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("cached content = %q", data)
	}
}

func TestEnsure_DownloadFailurePropagates(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("404")}
	c := newCache(t, dl)

	if err := c.Ensure(context.Background(), "u1", "https://cdn/a.png"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(c.Path("u1")); !os.IsNotExist(err) {
		t.Error("no file should exist after a failed download")
	}
}

func TestSweep_DeletesOldKeepsRecent(t *testing.T) {
	dl := &fakeDownloader{data: []byte("x")}
	c := newCache(t, dl)

	ctx := context.Background()
	for _, u := range []string{"old", "recent"} {
		if err := c.Ensure(ctx, u, "https://cdn/a.png"); err != nil {
			t.Fatal(err)
		}
	}

	eightDays := time.Now().Add(-8 * 24 * time.Hour)
	sixDays := time.Now().Add(-6 * 24 * time.Hour)
	if err := os.Chtimes(c.Path("old"), eightDays, eightDays); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(c.Path("recent"), sixDays, sixDays); err != nil {
		t.Fatal(err)
	}

	c.Sweep()

	if _, err := os.Stat(c.Path("old")); !os.IsNotExist(err) {
		t.Error("8-day-old file should have been swept")
	}
	if _, err := os.Stat(c.Path("recent")); err != nil {
		t.Error("6-day-old file should have been kept")
	}
}

func TestRunSweeper_StopsOnContextCancel(t *testing.T) {
	c := newCache(t, &fakeDownloader{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
