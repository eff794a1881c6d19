// Package models holds the content entry attached to a registered name:
// free-form metadata, a markdown document and a filename-to-hash map. Content
// is a collaborator of the registry, not part of it; the only contract with
// the core is that the name exists and the writer owns it.
package models

import "time"

// Entry is all content bound to one name.
type Entry struct {
	Name      string            `json:"name"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Markdown  string            `json:"markdown,omitempty"`
	Files     map[string]string `json:"files,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so store internals never leak mutable entries.
func (e *Entry) Clone() *Entry {
	out := &Entry{Name: e.Name, Markdown: e.Markdown, UpdatedAt: e.UpdatedAt}
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	if e.Files != nil {
		out.Files = make(map[string]string, len(e.Files))
		for k, v := range e.Files {
			out.Files[k] = v
		}
	}
	return out
}
