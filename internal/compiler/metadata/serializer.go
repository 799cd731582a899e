package metadata

import (
	"encoding/json"
	"fmt"
)

// Serialize converts the document to JSON.
// The output is deterministic - same input will always produce the same output.
func Serialize(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("metadata cannot be nil")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	return data, nil
}

// FromJSON parses a document from its JSON encoding
func FromJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &doc, nil
}
