// Package storage writes finished collections to their destination.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sink stores a named collection, replacing whatever was stored under that
// name before.
type Sink interface {
	Put(ctx context.Context, name string, v any) error
}

// marshalPretty renders v as two-space indented JSON with a trailing newline.
func marshalPretty(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return append(data, '\n'), nil
}
