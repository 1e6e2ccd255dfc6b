// Package testutil provides shared test helpers for building root trees and
// databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/models"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "shelf-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// WriteFile writes content to rel (slash separated) under root, creating
// parent directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return abs
}

// WriteSchema writes def as the schema owned by folder.
func WriteSchema(t *testing.T, root, folder string, def models.SchemaDefinition) string {
	t.Helper()
	data, err := yaml.Marshal(def)
	if err != nil {
		t.Fatal(err)
	}
	return WriteFile(t, root, filepath.ToSlash(filepath.Join(folder, ".shelf", "schema.yaml")), string(data))
}

// TextSchema builds a schema whose items are all Text fields.
func TextSchema(name string, items ...string) models.SchemaDefinition {
	def := models.SchemaDefinition{Name: name, Version: "1.0"}
	for _, it := range items {
		def.Items = append(def.Items, models.SchemaItem{Name: it, Type: models.FieldText})
	}
	return def
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
