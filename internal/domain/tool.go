package domain

import "fmt"

// ToolKind enumerates the text tools offered by the product.
type ToolKind string

const (
	ToolHumanizer  ToolKind = "humanizer"
	ToolPlagiarism ToolKind = "plagiarism"
	ToolAIDetector ToolKind = "ai-detector"
)

// ToolKinds lists every supported tool in display order.
var ToolKinds = []ToolKind{ToolHumanizer, ToolPlagiarism, ToolAIDetector}

// Valid reports whether k is a known tool.
func (k ToolKind) Valid() bool {
	switch k {
	case ToolHumanizer, ToolPlagiarism, ToolAIDetector:
		return true
	}
	return false
}

// ParseToolKind accepts the canonical names plus a few loose spellings used by the CLI.
func ParseToolKind(s string) (ToolKind, error) {
	switch s {
	case "humanizer", "humanize":
		return ToolHumanizer, nil
	case "plagiarism", "plagiarism-checker":
		return ToolPlagiarism, nil
	case "ai-detector", "ai", "detector", "ai_detector":
		return ToolAIDetector, nil
	}
	return "", Validation("unknown tool %q", s)
}

func (k ToolKind) String() string { return string(k) }

// GoString keeps %#v readable in test failures.
func (k ToolKind) GoString() string { return fmt.Sprintf("ToolKind(%q)", string(k)) }
