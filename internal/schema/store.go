// Package schema resolves which schema governs a path. Schemas live in
// <folder>/.shelf/schema.yaml and apply to that folder's whole subtree unless
// a deeper folder declares its own.
package schema

import (
	"strings"
	"sync"

	"github.com/starford/shelf/internal/models"
)

type entry struct {
	def    models.SchemaDefinition
	digest string
}

// Store maps owner folders to their schema definitions. All lookups return
// clones so callers never alias stored data.
type Store struct {
	mu sync.RWMutex
	m  map[string]entry
}

func NewStore() *Store {
	return &Store{m: make(map[string]entry)}
}

// Insert sets the schema owned by folder, replacing any previous one.
func (s *Store) Insert(folder string, def models.SchemaDefinition) {
	s.insert(folder, def, "")
}

func (s *Store) insert(folder string, def models.SchemaDefinition, digest string) {
	s.mu.Lock()
	s.m[folder] = entry{def: def.Clone(), digest: digest}
	s.mu.Unlock()
}

// Remove drops the schema owned by exactly folder.
func (s *Store) Remove(folder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[folder]
	delete(s.m, folder)
	return ok
}

// RemoveSubtree drops folder's schema and every schema owned by a descendant.
// It returns the removed owner folders.
func (s *Store) RemoveSubtree(folder string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for k := range s.m {
		if Within(k, folder) {
			delete(s.m, k)
			removed = append(removed, k)
		}
	}
	return removed
}

// Resolve returns the schema owned by p itself, or else by its nearest
// ancestor, up to and including the root "".
func (s *Store) Resolve(p string) (models.SchemaRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for cur := p; ; {
		if e, ok := s.m[cur]; ok {
			return models.SchemaRecord{Schema: e.def.Clone(), Location: LocationOf(cur)}, true
		}
		parent, ok := Parent(cur)
		if !ok {
			return models.SchemaRecord{}, false
		}
		cur = parent
	}
}

// Owns reports whether folder declares a schema of its own.
func (s *Store) Owns(folder string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[folder]
	return ok
}

// List returns every schema that declares at least one item, keyed by its
// schema file path.
func (s *Store) List() map[string]models.SchemaDefinition {
	return s.list(false)
}

// ListAll is List including schemas without items.
func (s *Store) ListAll() map[string]models.SchemaDefinition {
	return s.list(true)
}

func (s *Store) list(all bool) map[string]models.SchemaDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.SchemaDefinition, len(s.m))
	for folder, e := range s.m {
		if !all && len(e.def.Items) == 0 {
			continue
		}
		out[LocationOf(folder).SchemaPath] = e.def.Clone()
	}
	return out
}

func (s *Store) digest(folder string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[folder]
	return e.digest, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.m = make(map[string]entry)
	s.mu.Unlock()
}

// Parent returns the parent of a relative slash path. The root "" has none.
func Parent(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", true
	}
	return p[:i], true
}

// Within reports whether p is folder or lies below it, comparing whole path
// components: "a/b" is within "a" but "ab" is not.
func Within(p, folder string) bool {
	if folder == "" {
		return true
	}
	return p == folder || strings.HasPrefix(p, folder+"/")
}
