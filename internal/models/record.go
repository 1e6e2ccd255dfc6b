package models

// Record is one indexed markdown file. Paths are relative to the root and
// use forward slashes.
type Record struct {
	Path     string               `json:"path"`
	Modified string               `json:"modified"`
	Markdown *string              `json:"markdown,omitempty"`
	Attrs    map[string]AttrValue `json:"attrs"`
}

// Folder is one indexed directory. The schema flags are not stored; they are
// computed against the schema store when the folder is queried.
type Folder struct {
	Path           string `json:"path"`
	Name           string `json:"name"`
	HasSchema      bool   `json:"hasSchema"`
	OwnSchema      bool   `json:"ownSchema"`
	SchemaFilePath string `json:"schemaFilePath,omitempty"`
}
