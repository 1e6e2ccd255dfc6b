package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

// Cache keeps a Store in sync with the schema files under one root.
// Paths passed to it are relative to that root.
type Cache struct {
	store  *Store
	logger *slog.Logger

	mu   sync.RWMutex
	root string
}

func NewCache(store *Store, logger *slog.Logger) *Cache {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// SetRoot re-anchors the cache and forgets every loaded schema.
func (c *Cache) SetRoot(root string) {
	c.mu.Lock()
	c.root = root
	c.mu.Unlock()
	c.store.Clear()
}

func (c *Cache) Root() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

func (c *Cache) Store() *Store { return c.store }

func (c *Cache) abs(rel string) string {
	return filepath.Join(c.Root(), filepath.FromSlash(rel))
}

// Locate canonicalizes rel using the disk to tell folders from files. A path
// that no longer exists is treated as a folder when it has no extension.
func (c *Cache) Locate(rel string) (models.SchemaLocation, error) {
	isDir := !storage.HasExtension(rel)
	if info, err := os.Stat(c.abs(rel)); err == nil {
		isDir = info.IsDir()
	}
	return Locate(rel, isDir)
}

// Load reads the schema governing rel from disk into the store. It returns
// nil without error when no schema file exists.
func (c *Cache) Load(rel string) (*models.SchemaRecord, error) {
	rec, _, err := c.Reload(rel)
	return rec, err
}

// Reload is Load that also reports whether the stored content changed.
func (c *Cache) Reload(rel string) (*models.SchemaRecord, bool, error) {
	loc, err := c.Locate(rel)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(c.abs(loc.SchemaPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindIO, "Error reading schema", err).WithInfo(loc.SchemaPath)
	}
	def, err := Decode(data)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindMalformed, "Error parsing schema", err).WithInfo(loc.SchemaPath)
	}

	digest := checksum.Sum(data)
	prev, had := c.store.digest(loc.OwnerFolder)
	c.store.insert(loc.OwnerFolder, def, digest)
	return &models.SchemaRecord{Schema: def.Clone(), Location: loc}, !had || prev != digest, nil
}

// Save normalizes def, writes it to disk and only then updates the store.
func (c *Cache) Save(rel string, def models.SchemaDefinition) (models.SchemaDefinition, error) {
	def = Normalize(def)
	if err := Validate(def); err != nil {
		return models.SchemaDefinition{}, apperr.Wrap(apperr.KindMalformed, "Invalid schema", err).WithInfo(rel)
	}
	loc, err := c.Locate(rel)
	if err != nil {
		return models.SchemaDefinition{}, err
	}
	data, err := yaml.Marshal(def)
	if err != nil {
		return models.SchemaDefinition{}, apperr.Wrap(apperr.KindInvariant, "Error serializing schema", err)
	}
	if err := storage.WriteFileAtomic(c.abs(loc.SchemaPath), data); err != nil {
		return models.SchemaDefinition{}, apperr.Wrap(apperr.KindIO, "Error saving schema", err).WithInfo(loc.SchemaPath)
	}
	c.store.insert(loc.OwnerFolder, def, checksum.Sum(data))
	c.logger.Info("schema: saved", slog.String("path", loc.SchemaPath), slog.Int("items", len(def.Items)))
	return def.Clone(), nil
}

// Remove forgets the schema located by rel. The file on disk is untouched.
func (c *Cache) Remove(rel string) (models.SchemaLocation, error) {
	loc, err := c.Locate(rel)
	if err != nil {
		return models.SchemaLocation{}, err
	}
	c.store.Remove(loc.OwnerFolder)
	return loc, nil
}

// RemoveSubtree forgets every schema owned by folder or its descendants.
func (c *Cache) RemoveSubtree(folder string) []string {
	return c.store.RemoveSubtree(folder)
}

func (c *Cache) Resolve(p string) (models.SchemaRecord, bool) {
	return c.store.Resolve(p)
}

func (c *Cache) List() map[string]models.SchemaDefinition {
	return c.store.List()
}

// Decode parses schema file content.
func Decode(data []byte) (models.SchemaDefinition, error) {
	var def models.SchemaDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return models.SchemaDefinition{}, fmt.Errorf("schema: decode: %w", err)
	}
	return def, nil
}

// Normalize stamps the current version and drops items with a blank name or a
// name already used by an earlier item.
func Normalize(def models.SchemaDefinition) models.SchemaDefinition {
	def = def.Clone()
	def.Version = Version
	seen := make(map[string]struct{}, len(def.Items))
	items := def.Items[:0]
	for _, it := range def.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			continue
		}
		if _, dup := seen[it.Name]; dup {
			continue
		}
		seen[it.Name] = struct{}{}
		items = append(items, it)
	}
	def.Items = items
	return def
}

var fieldTypes = func() []any {
	out := make([]any, len(models.FieldTypes))
	for i, t := range models.FieldTypes {
		out[i] = t
	}
	return out
}()

type itemRule models.SchemaItem

func (i itemRule) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Type, validation.Required, validation.In(fieldTypes...)),
	)
}

// Validate checks every item has a name and a known type.
func Validate(def models.SchemaDefinition) error {
	for _, it := range def.Items {
		if err := (itemRule(it)).Validate(); err != nil {
			return fmt.Errorf("item %q: %w", it.Name, err)
		}
	}
	return nil
}
