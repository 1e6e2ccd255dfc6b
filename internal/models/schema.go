package models

// FieldType is the declared type of a schema item.
type FieldType string

const (
	FieldText                FieldType = "Text"
	FieldTextCollection      FieldType = "TextCollection"
	FieldNumber              FieldType = "Number"
	FieldDate                FieldType = "Date"
	FieldDateCollection      FieldType = "DateCollection"
	FieldDatesPairCollection FieldType = "DatesPairCollection"
	FieldImage               FieldType = "Image"
)

// FieldTypes lists every known field type.
var FieldTypes = []FieldType{
	FieldText, FieldTextCollection, FieldNumber, FieldDate,
	FieldDateCollection, FieldDatesPairCollection, FieldImage,
}

// FieldSettings are display hints. Only DecimalPlaces changes indexing.
type FieldSettings struct {
	DisplayName   *string  `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Size          *string  `json:"size,omitempty" yaml:"size,omitempty"`
	Font          *string  `json:"font,omitempty" yaml:"font,omitempty"`
	IsMultiline   *bool    `json:"isMultiline,omitempty" yaml:"isMultiline,omitempty"`
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	DecimalPlaces *int     `json:"decimalPlaces,omitempty" yaml:"decimalPlaces,omitempty"`
	Prefix        *string  `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// SchemaItem declares one typed field.
type SchemaItem struct {
	Name     string        `json:"name" yaml:"name"`
	Type     FieldType     `json:"type" yaml:"type"`
	Settings FieldSettings `json:"settings" yaml:"settings,omitempty"`
}

// ValueKind maps the declared type to the attribute shape stored for it.
func (i SchemaItem) ValueKind() AttrKind {
	switch i.Type {
	case FieldTextCollection, FieldDateCollection:
		return KindStringVec
	case FieldDatesPairCollection:
		return KindDatePairVec
	case FieldNumber:
		if i.Settings.DecimalPlaces != nil && *i.Settings.DecimalPlaces > 0 {
			return KindFloat
		}
		return KindInteger
	default:
		return KindString
	}
}

// SchemaDefinition is the content of one schema file.
type SchemaDefinition struct {
	Name    string       `json:"name" yaml:"name"`
	Version string       `json:"version" yaml:"version"`
	Icon    *string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	Items   []SchemaItem `json:"items" yaml:"items"`
}

// Item returns the item called name.
func (d SchemaDefinition) Item(name string) (SchemaItem, bool) {
	for _, it := range d.Items {
		if it.Name == name {
			return it, true
		}
	}
	return SchemaItem{}, false
}

// Clone returns a deep copy sharing no memory with d.
func (d SchemaDefinition) Clone() SchemaDefinition {
	out := d
	if d.Icon != nil {
		icon := *d.Icon
		out.Icon = &icon
	}
	if d.Items != nil {
		out.Items = make([]SchemaItem, len(d.Items))
		for i, it := range d.Items {
			it.Settings = it.Settings.clone()
			out.Items[i] = it
		}
	}
	return out
}

func (s FieldSettings) clone() FieldSettings {
	return FieldSettings{
		DisplayName:   clonePtr(s.DisplayName),
		Size:          clonePtr(s.Size),
		Font:          clonePtr(s.Font),
		IsMultiline:   clonePtr(s.IsMultiline),
		Min:           clonePtr(s.Min),
		Max:           clonePtr(s.Max),
		DecimalPlaces: clonePtr(s.DecimalPlaces),
		Prefix:        clonePtr(s.Prefix),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SchemaLocation ties a schema file to the folder it governs.
type SchemaLocation struct {
	SchemaPath  string `json:"schemaPath"`
	OwnerFolder string `json:"ownerFolder"`
}

// SchemaRecord is a schema together with where it lives.
type SchemaRecord struct {
	Schema   SchemaDefinition `json:"schema"`
	Location SchemaLocation   `json:"location"`
}
