// Package models holds the value types shared by the schema store, the index
// and the change notifier.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AttrKind names the on-disk shape of an attribute value.
type AttrKind string

const (
	KindString      AttrKind = "String"
	KindStringVec   AttrKind = "StringVec"
	KindDatePairVec AttrKind = "DatePairVec"
	KindInteger     AttrKind = "Integer"
	KindFloat       AttrKind = "Float"
)

// DatePair is one started/finished range of a DatesPairCollection field.
type DatePair struct {
	Started  *string `json:"started" yaml:"started"`
	Finished *string `json:"finished" yaml:"finished"`
}

// AttrValue is a typed front matter value. Exactly one payload field is
// meaningful for a given Kind; a nil payload is the null value of that kind.
type AttrValue struct {
	Kind  AttrKind
	Str   *string
	Strs  []string
	Pairs []DatePair
	Num   *float64
}

func String(s string) AttrValue { return AttrValue{Kind: KindString, Str: &s} }

func StringVec(v []string) AttrValue { return AttrValue{Kind: KindStringVec, Strs: v} }

func DatePairVec(v []DatePair) AttrValue { return AttrValue{Kind: KindDatePairVec, Pairs: v} }

func Integer(n float64) AttrValue { return AttrValue{Kind: KindInteger, Num: &n} }

func Float(n float64) AttrValue { return AttrValue{Kind: KindFloat, Num: &n} }

// Null returns the empty value of kind.
func Null(kind AttrKind) AttrValue { return AttrValue{Kind: kind} }

// IsNull reports whether v carries no payload.
func (v AttrValue) IsNull() bool {
	switch v.Kind {
	case KindString:
		return v.Str == nil
	case KindStringVec:
		return v.Strs == nil
	case KindDatePairVec:
		return v.Pairs == nil
	case KindInteger, KindFloat:
		return v.Num == nil
	}
	return true
}

// Text renders the searchable text of v. Null values render as "".
func (v AttrValue) Text() string {
	switch v.Kind {
	case KindString:
		if v.Str != nil {
			return *v.Str
		}
	case KindStringVec:
		return strings.Join(v.Strs, " ")
	case KindDatePairVec:
		parts := make([]string, 0, len(v.Pairs)*2)
		for _, p := range v.Pairs {
			if p.Started != nil {
				parts = append(parts, *p.Started)
			}
			if p.Finished != nil {
				parts = append(parts, *p.Finished)
			}
		}
		return strings.Join(parts, " ")
	case KindInteger, KindFloat:
		if v.Num != nil {
			return strconv.FormatFloat(*v.Num, 'f', -1, 64)
		}
	}
	return ""
}

// payload returns the untagged value used by both encodings.
func (v AttrValue) payload() any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind {
	case KindString:
		return *v.Str
	case KindStringVec:
		return v.Strs
	case KindDatePairVec:
		return v.Pairs
	case KindInteger:
		return integerPayload(*v.Num)
	case KindFloat:
		return *v.Num
	}
	return nil
}

// maxExactInt bounds the integers a float64 holds exactly.
const maxExactInt = 1 << 53

// integerPayload keeps n as a float unless it is a whole number float64
// represents exactly, so values are never truncated or wrapped on write.
func integerPayload(n float64) any {
	if n == math.Trunc(n) && math.Abs(n) <= maxExactInt {
		return int64(n)
	}
	return n
}

type taggedValue struct {
	Type  AttrKind        `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON emits the tagged wire form {"type": kind, "value": payload}.
func (v AttrValue) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{Type: v.Kind, Value: raw})
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var t taggedValue
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	out := AttrValue{Kind: t.Type}
	isNull := len(t.Value) == 0 || string(t.Value) == "null"
	var err error
	switch t.Type {
	case KindString:
		if !isNull {
			var s string
			err = json.Unmarshal(t.Value, &s)
			out.Str = &s
		}
	case KindStringVec:
		if !isNull {
			out.Strs = []string{}
			err = json.Unmarshal(t.Value, &out.Strs)
		}
	case KindDatePairVec:
		if !isNull {
			out.Pairs = []DatePair{}
			err = json.Unmarshal(t.Value, &out.Pairs)
		}
	case KindInteger, KindFloat:
		if !isNull {
			var n float64
			err = json.Unmarshal(t.Value, &n)
			out.Num = &n
		}
	default:
		return fmt.Errorf("models: unknown attribute type %q", t.Type)
	}
	if err != nil {
		return fmt.Errorf("models: decode %s value: %w", t.Type, err)
	}
	*v = out
	return nil
}

// MarshalYAML emits the untagged on-disk form.
func (v AttrValue) MarshalYAML() (any, error) {
	return v.payload(), nil
}
