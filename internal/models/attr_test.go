package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAttrValueTaggedJSON(t *testing.T) {
	attrs := map[string]AttrValue{
		"author": String("X"),
		"year":   Null(KindInteger),
		"tags":   StringVec([]string{"a", "b"}),
	}
	data, err := json.Marshal(attrs)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"author": {"type": "String", "value": "X"},
		"year": {"type": "Integer", "value": null},
		"tags": {"type": "StringVec", "value": ["a", "b"]}
	}`, string(data))

	var back map[string]AttrValue
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "X", *back["author"].Str)
	assert.True(t, back["year"].IsNull())
	assert.Equal(t, KindInteger, back["year"].Kind)
	assert.Equal(t, []string{"a", "b"}, back["tags"].Strs)
}

func TestAttrValueUnknownType(t *testing.T) {
	var v AttrValue
	err := json.Unmarshal([]byte(`{"type":"Blob","value":1}`), &v)
	assert.Error(t, err)
}

func TestAttrValueUntaggedYAML(t *testing.T) {
	started, finished := "2024-01-01", "2024-02-01"
	attrs := map[string]AttrValue{
		"title": String("Dune"),
		"pages": Integer(412),
		"score": Float(4.5),
		"read":  DatePairVec([]DatePair{{Started: &started, Finished: &finished}}),
		"genre": Null(KindStringVec),
	}
	out, err := yaml.Marshal(attrs)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "Dune", decoded["title"])
	assert.Equal(t, 412, decoded["pages"])
	assert.Equal(t, 4.5, decoded["score"])
	assert.Nil(t, decoded["genre"])
	assert.Equal(t, []any{map[string]any{"started": started, "finished": finished}}, decoded["read"])
}

func TestAttrValueText(t *testing.T) {
	a, b := "2020-01-01", "2020-03-01"
	cases := []struct {
		name string
		v    AttrValue
		want string
	}{
		{"string", String("Hello"), "Hello"},
		{"null string", Null(KindString), ""},
		{"collection", StringVec([]string{"x", "y"}), "x y"},
		{"pairs", DatePairVec([]DatePair{{Started: &a, Finished: &b}}), "2020-01-01 2020-03-01"},
		{"integer", Integer(1999), "1999"},
		{"float", Float(2.25), "2.25"},
		{"null number", Null(KindFloat), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.Text())
		})
	}
}

func TestSchemaItemValueKind(t *testing.T) {
	two, zero := 2, 0
	assert.Equal(t, KindFloat, SchemaItem{Type: FieldNumber, Settings: FieldSettings{DecimalPlaces: &two}}.ValueKind())
	assert.Equal(t, KindInteger, SchemaItem{Type: FieldNumber, Settings: FieldSettings{DecimalPlaces: &zero}}.ValueKind())
	assert.Equal(t, KindInteger, SchemaItem{Type: FieldNumber}.ValueKind())
	assert.Equal(t, KindStringVec, SchemaItem{Type: FieldDateCollection}.ValueKind())
	assert.Equal(t, KindDatePairVec, SchemaItem{Type: FieldDatesPairCollection}.ValueKind())
	assert.Equal(t, KindString, SchemaItem{Type: FieldImage}.ValueKind())
}

func TestSchemaDefinitionCloneIsDeep(t *testing.T) {
	icon := "book"
	places := 1
	def := SchemaDefinition{
		Name:  "books",
		Icon:  &icon,
		Items: []SchemaItem{{Name: "rating", Type: FieldNumber, Settings: FieldSettings{DecimalPlaces: &places}}},
	}
	c := def.Clone()
	*c.Icon = "other"
	*c.Items[0].Settings.DecimalPlaces = 5
	c.Items[0].Name = "changed"

	assert.Equal(t, "book", *def.Icon)
	assert.Equal(t, 1, *def.Items[0].Settings.DecimalPlaces)
	assert.Equal(t, "rating", def.Items[0].Name)
}

func TestIntegerKeepsNonIntegralValues(t *testing.T) {
	cases := []struct {
		name     string
		n        float64
		wantJSON string
	}{
		{"whole", 412, `{"type":"Integer","value":412}`},
		{"negative", -7, `{"type":"Integer","value":-7}`},
		{"fraction", 4.5, `{"type":"Integer","value":4.5}`},
		{"beyond int64", 1e19, `{"type":"Integer","value":10000000000000000000}`},
		{"beyond exact", -1e19, `{"type":"Integer","value":-10000000000000000000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(Integer(tc.n))
			require.NoError(t, err)
			assert.JSONEq(t, tc.wantJSON, string(data))

			var back AttrValue
			require.NoError(t, json.Unmarshal(data, &back))
			require.NotNil(t, back.Num)
			assert.Equal(t, tc.n, *back.Num)

			out, err := yaml.Marshal(map[string]AttrValue{"n": Integer(tc.n)})
			require.NoError(t, err)
			var decoded map[string]float64
			require.NoError(t, yaml.Unmarshal(out, &decoded))
			assert.Equal(t, tc.n, decoded["n"])
		})
	}
}
