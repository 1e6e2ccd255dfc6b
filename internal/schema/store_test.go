package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/shelf/internal/models"
)

func def(name string, items ...string) models.SchemaDefinition {
	d := models.SchemaDefinition{Name: name, Version: Version}
	for _, it := range items {
		d.Items = append(d.Items, models.SchemaItem{Name: it, Type: models.FieldText})
	}
	return d
}

func TestResolveNearestAncestor(t *testing.T) {
	s := NewStore()
	s.Insert("", def("root", "title"))
	s.Insert("books", def("books", "author"))
	s.Insert("books/scifi", def("scifi", "author", "universe"))

	cases := []struct {
		path  string
		owner string
	}{
		{"notes.md", ""},
		{"", ""},
		{"books", "books"},
		{"books/a.md", "books"},
		{"books/fantasy/b.md", "books"},
		{"books/scifi", "books/scifi"},
		{"books/scifi/deep/c.md", "books/scifi"},
		{"books2/x.md", ""},
	}
	for _, tc := range cases {
		rec, ok := s.Resolve(tc.path)
		require.True(t, ok, tc.path)
		assert.Equal(t, tc.owner, rec.Location.OwnerFolder, tc.path)
		assert.Equal(t, LocationOf(tc.owner).SchemaPath, rec.Location.SchemaPath, tc.path)
	}
}

func TestResolveMissesWithoutRootSchema(t *testing.T) {
	s := NewStore()
	s.Insert("books", def("books", "author"))
	_, ok := s.Resolve("music/a.md")
	assert.False(t, ok)
	_, ok = s.Resolve("")
	assert.False(t, ok)
}

func TestResolveReturnsClone(t *testing.T) {
	s := NewStore()
	s.Insert("books", def("books", "author"))
	rec, _ := s.Resolve("books/a.md")
	rec.Schema.Items[0].Name = "mutated"

	again, _ := s.Resolve("books/a.md")
	assert.Equal(t, "author", again.Schema.Items[0].Name)
}

func TestInsertOverwrites(t *testing.T) {
	s := NewStore()
	s.Insert("books", def("v1", "a"))
	s.Insert("books", def("v2", "b"))
	rec, _ := s.Resolve("books")
	assert.Equal(t, "v2", rec.Schema.Name)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveSubtreeIsComponentWise(t *testing.T) {
	s := NewStore()
	s.Insert("a", def("a", "x"))
	s.Insert("a/b", def("ab", "x"))
	s.Insert("a/b/c", def("abc", "x"))
	s.Insert("a/bc", def("abc2", "x"))

	removed := s.RemoveSubtree("a/b")
	assert.ElementsMatch(t, []string{"a/b", "a/b/c"}, removed)
	assert.True(t, s.Owns("a"))
	assert.True(t, s.Owns("a/bc"))
	assert.False(t, s.Owns("a/b/c"))

	rec, ok := s.Resolve("a/b/c/file.md")
	require.True(t, ok)
	assert.Equal(t, "a", rec.Location.OwnerFolder)
}

func TestListSkipsEmptySchemas(t *testing.T) {
	s := NewStore()
	s.Insert("books", def("books", "author"))
	s.Insert("empty", def("empty"))

	list := s.List()
	assert.Len(t, list, 1)
	assert.Contains(t, list, "books/.shelf/schema.yaml")
	assert.Len(t, s.ListAll(), 2)
}

func TestParentAndWithin(t *testing.T) {
	p, ok := Parent("a/b/c")
	assert.True(t, ok)
	assert.Equal(t, "a/b", p)
	p, ok = Parent("a")
	assert.True(t, ok)
	assert.Equal(t, "", p)
	_, ok = Parent("")
	assert.False(t, ok)

	assert.True(t, Within("a/b", "a"))
	assert.True(t, Within("a", "a"))
	assert.True(t, Within("anything", ""))
	assert.False(t, Within("ab", "a"))
}
