// Package parser splits markdown files into front matter and body and maps
// front matter onto a schema's typed attributes.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

const delim = "---"

// Split separates the YAML front matter (between leading --- lines) from the
// markdown body. Without a complete front matter block the whole input is body.
func Split(data []byte) (frontMatter, body string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return "", string(data)
	}
	rest := trimmed[len(delim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || strings.TrimSpace(string(rest[:nl])) != "" {
		return "", string(data)
	}
	rest = rest[nl+1:]

	// The closing delimiter may be the very first line of rest (empty block).
	var block, after []byte
	if bytes.HasPrefix(rest, []byte(delim)) {
		block, after = nil, rest[len(delim):]
	} else {
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return "", string(data)
		}
		block, after = rest[:idx+1], rest[idx+1+len(delim):]
	}
	if i := bytes.IndexByte(after, '\n'); i >= 0 {
		after = after[i+1:]
	} else {
		after = nil
	}
	return string(block), string(after)
}

// Compose renders attrs and body back into the on-disk file format.
func Compose(attrs map[string]models.AttrValue, body string) ([]byte, error) {
	fm, err := EncodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString(delim + "\n")
	b.WriteString(fm)
	b.WriteString(delim + "\n")
	b.WriteString(body)
	return b.Bytes(), nil
}

// EncodeAttributes renders attrs as untagged YAML, keys sorted.
func EncodeAttributes(attrs map[string]models.AttrValue) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("parser: encode attributes: %w", err)
	}
	return string(out), nil
}

// ParseAttributes reads every schema item out of frontMatter. Values of the
// wrong shape become the type's empty value. If the YAML itself cannot be
// read every item is empty and an error is returned alongside.
func ParseAttributes(frontMatter string, def models.SchemaDefinition) (map[string]models.AttrValue, *apperr.Error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(frontMatter), &raw); err != nil {
		return Defaults(def), apperr.Wrap(apperr.KindMalformed, "Parsing error", err).
			WithInfo("Metadata was not parsed correctly, and will be overridden")
	}
	out := make(map[string]models.AttrValue, len(def.Items))
	for _, it := range def.Items {
		out[it.Name] = convert(raw[it.Name], it)
	}
	return out, nil
}

// Defaults returns the empty value of every schema item.
func Defaults(def models.SchemaDefinition) map[string]models.AttrValue {
	out := make(map[string]models.AttrValue, len(def.Items))
	for _, it := range def.Items {
		out[it.Name] = models.Null(it.ValueKind())
	}
	return out
}

func convert(v any, it models.SchemaItem) models.AttrValue {
	kind := it.ValueKind()
	switch kind {
	case models.KindString:
		if s, ok := scalarString(v); ok {
			return models.String(s)
		}
	case models.KindInteger, models.KindFloat:
		if n, ok := number(v); ok {
			return models.AttrValue{Kind: kind, Num: &n}
		}
	case models.KindStringVec:
		if seq, ok := v.([]any); ok {
			var out []string
			for _, e := range seq {
				if s, ok := scalarString(e); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return models.StringVec(out)
			}
		}
	case models.KindDatePairVec:
		if seq, ok := v.([]any); ok {
			var out []models.DatePair
			for _, e := range seq {
				if p, ok := datePair(e); ok {
					out = append(out, p)
				}
			}
			if len(out) > 0 {
				return models.DatePairVec(out)
			}
		}
	}
	return models.Null(kind)
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case time.Time:
		if s.Hour() == 0 && s.Minute() == 0 && s.Second() == 0 && s.Nanosecond() == 0 {
			return s.Format(time.DateOnly), true
		}
		return s.Format(time.RFC3339), true
	}
	return "", false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func datePair(v any) (models.DatePair, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return models.DatePair{}, false
	}
	var p models.DatePair
	if s, ok := scalarString(m["started"]); ok {
		p.Started = &s
	}
	if s, ok := scalarString(m["finished"]); ok {
		p.Finished = &s
	}
	if p.Started == nil && p.Finished == nil {
		return models.DatePair{}, false
	}
	return p, true
}
