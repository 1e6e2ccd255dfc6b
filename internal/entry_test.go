package internal

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/starford/shelf/internal/instance"
	"github.com/starford/shelf/internal/testutil"
)

func scanConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	testutil.WriteSchema(t, root, "books", testutil.TextSchema("books", "author"))
	testutil.WriteFile(t, root, "books/a.md", "---\nauthor: A\n---\n")
	testutil.WriteFile(t, root, "books/b.md", "---\nauthor: B\n---\n")
	testutil.WriteFile(t, root, "loose/c.md", "no schema here")

	cfg := NewDefaultConfig()
	cfg.Root.Path = root
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "shelf.db")
	return cfg
}

func TestScan(t *testing.T) {
	cfg := scanConfig(t)

	sum, err := Scan(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if sum.Files != 2 || sum.Folders != 3 || sum.Schemas != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Problems != nil {
		t.Errorf("unexpected problems: %v", sum.Problems)
	}
}

func TestScanRefusesWhenLocked(t *testing.T) {
	cfg := scanConfig(t)
	lock, err := instance.Acquire(instance.PathFor(cfg.SQLite.Path))
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	_, err = Scan(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if !errors.Is(err, instance.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
