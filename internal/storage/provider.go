// Package storage reads and writes markdown files under the indexed root.
package storage

// FileContent is a markdown file split into its parts.
type FileContent struct {
	// Modified is the file's modification time in RFC 3339 with nanoseconds.
	Modified    string
	FrontMatter string
	Body        string
}

// Provider is the file-access collaborator of the indexing engine. Paths are
// relative to the provider's root and use forward slashes.
type Provider interface {
	Root() string
	// Read returns the split content of the file at path.
	Read(path string) (*FileContent, error)
	// Write atomically replaces the file with front matter and body and
	// returns the new modification time.
	Write(path, frontMatter, body string) (string, error)
	// Modified returns the current modification time of the file at path.
	Modified(path string) (string, error)
}
