package topic

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed seed/topics.json
var builtinTopics []byte

// Builtin decodes the dataset written on first access to an empty store.
func Builtin() ([]Topic, error) {
	var topics []Topic
	if err := json.Unmarshal(builtinTopics, &topics); err != nil {
		return nil, fmt.Errorf("decode built-in topics: %w", err)
	}
	return topics, nil
}
