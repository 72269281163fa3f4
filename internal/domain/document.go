package domain

import "time"

// Document is a saved input/output pair produced by a tool run.
type Document struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	ProcessedContent string    `json:"processed_content,omitempty"`
	Tool             ToolKind  `json:"tool_type"`
	CreatedAt        time.Time `json:"created_at"`
	LastModified     time.Time `json:"updated_at"`
}

// HasResult reports whether the document holds a completed tool result.
// Drafts without processed content exist but cannot be viewed as results.
func (d Document) HasResult() bool {
	return d.ProcessedContent != ""
}

const DefaultDocumentTitle = "Untitled Document"

// DocumentDraft carries the fields of a document that does not exist yet.
type DocumentDraft struct {
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	ProcessedContent string   `json:"processed_content,omitempty"`
	Tool             ToolKind `json:"tool_type"`
}

// Normalize fills defaults for fields the caller left empty.
func (d DocumentDraft) Normalize() DocumentDraft {
	if d.Title == "" {
		d.Title = DefaultDocumentTitle
	}
	if d.Tool == "" {
		d.Tool = ToolHumanizer
	}
	return d
}

// DocumentPatch is a partial document update. LastModified is stamped by the
// writer and is always sent.
type DocumentPatch struct {
	Title            *string   `json:"title,omitempty"`
	Content          *string   `json:"content,omitempty"`
	ProcessedContent *string   `json:"processed_content,omitempty"`
	Tool             *ToolKind `json:"tool_type,omitempty"`
	LastModified     time.Time `json:"updated_at"`
}

// Validate rejects patches with unknown tools.
func (p DocumentPatch) Validate() error {
	if p.Tool != nil && !p.Tool.Valid() {
		return Validation("unknown tool %q", *p.Tool)
	}
	return nil
}

// Apply returns d with the patch merged in.
func (p DocumentPatch) Apply(d Document) Document {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Content != nil {
		d.Content = *p.Content
	}
	if p.ProcessedContent != nil {
		d.ProcessedContent = *p.ProcessedContent
	}
	if p.Tool != nil {
		d.Tool = *p.Tool
	}
	if !p.LastModified.IsZero() {
		d.LastModified = p.LastModified
	}
	return d
}
