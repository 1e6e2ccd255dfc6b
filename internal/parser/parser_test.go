package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

func bookSchema() models.SchemaDefinition {
	one := 1
	return models.SchemaDefinition{
		Name: "books",
		Items: []models.SchemaItem{
			{Name: "author", Type: models.FieldText},
			{Name: "year", Type: models.FieldNumber},
			{Name: "rating", Type: models.FieldNumber, Settings: models.FieldSettings{DecimalPlaces: &one}},
			{Name: "genres", Type: models.FieldTextCollection},
			{Name: "read", Type: models.FieldDatesPairCollection},
			{Name: "published", Type: models.FieldDate},
		},
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		fm     string
		body   string
	}{
		{"front matter and body", "---\nauthor: X\n---\n# Title\nText\n", "author: X\n", "# Title\nText\n"},
		{"leading blank lines", "\n\n---\na: 1\n---\nbody", "a: 1\n", "body"},
		{"empty block", "---\n---\nbody", "", "body"},
		{"no front matter", "# Just text\n", "", "# Just text\n"},
		{"unterminated", "---\na: 1\nbody\n", "", "---\na: 1\nbody\n"},
		{"rule not at start", "intro\n---\na: 1\n---\n", "", "intro\n---\na: 1\n---\n"},
		{"nothing after closing", "---\na: 1\n---", "a: 1\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fm, body := Split([]byte(tc.input))
			if fm != tc.fm {
				t.Errorf("front matter = %q, want %q", fm, tc.fm)
			}
			if body != tc.body {
				t.Errorf("body = %q, want %q", body, tc.body)
			}
		})
	}
}

func TestParseAttributes(t *testing.T) {
	fm := `author: Frank Herbert
year: 1965
rating: 4.5
genres: [scifi, classic, 3]
read:
  - started: 2024-01-02
    finished: 2024-02-01
  - nonsense: true
published: 1965-08-01
extra: ignored
`
	attrs, perr := ParseAttributes(fm, bookSchema())
	require.Nil(t, perr)
	require.Len(t, attrs, 6)

	assert.Equal(t, "Frank Herbert", *attrs["author"].Str)
	assert.Equal(t, models.KindInteger, attrs["year"].Kind)
	assert.Equal(t, 1965.0, *attrs["year"].Num)
	assert.Equal(t, models.KindFloat, attrs["rating"].Kind)
	assert.Equal(t, 4.5, *attrs["rating"].Num)
	assert.Equal(t, []string{"scifi", "classic"}, attrs["genres"].Strs)
	require.Len(t, attrs["read"].Pairs, 1)
	assert.Equal(t, "2024-01-02", *attrs["read"].Pairs[0].Started)
	assert.Equal(t, "2024-02-01", *attrs["read"].Pairs[0].Finished)
	assert.Equal(t, "1965-08-01", *attrs["published"].Str)
}

func TestParseAttributesWrongShapesBecomeEmpty(t *testing.T) {
	attrs, perr := ParseAttributes("author: [a, b]\nyear: soon\ngenres: rock\n", bookSchema())
	require.Nil(t, perr)
	assert.True(t, attrs["author"].IsNull())
	assert.True(t, attrs["year"].IsNull())
	assert.True(t, attrs["genres"].IsNull())
	assert.Equal(t, models.KindStringVec, attrs["genres"].Kind)
	assert.True(t, attrs["read"].IsNull())
}

func TestParseAttributesMalformedYAML(t *testing.T) {
	attrs, perr := ParseAttributes("just a sentence", bookSchema())
	require.NotNil(t, perr)
	assert.Equal(t, apperr.KindMalformed, perr.Kind)
	assert.Equal(t, "Parsing error", perr.Title)
	assert.Equal(t, Defaults(bookSchema()), attrs)
	for name, v := range attrs {
		assert.True(t, v.IsNull(), name)
	}
}

func TestParseAttributesEmptyFrontMatter(t *testing.T) {
	attrs, perr := ParseAttributes("", bookSchema())
	assert.Nil(t, perr)
	assert.Len(t, attrs, 6)
}

func TestComposeRoundTrip(t *testing.T) {
	attrs := map[string]models.AttrValue{
		"author": models.String("X"),
		"year":   models.Null(models.KindInteger),
	}
	data, err := Compose(attrs, "# Body\n")
	require.NoError(t, err)
	assert.Equal(t, "---\nauthor: X\nyear: null\n---\n# Body\n", string(data))

	fm, body := Split(data)
	assert.Equal(t, "# Body\n", body)
	back, perr := ParseAttributes(fm, bookSchema())
	require.Nil(t, perr)
	assert.Equal(t, "X", *back["author"].Str)
	assert.True(t, back["year"].IsNull())
}

func TestComposeWithoutAttributes(t *testing.T) {
	data, err := Compose(nil, "text")
	require.NoError(t, err)
	assert.Equal(t, "---\n---\ntext", string(data))
}
