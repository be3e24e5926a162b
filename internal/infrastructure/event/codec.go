package event

import (
	"encoding/json"
	"fmt"

	"github.com/farmstore/backend/internal/domain/shared"
)

// encodeRowChange serializes a change for the wire
func encodeRowChange(c shared.RowChange) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal row change: %w", err)
	}
	return data, nil
}

// decodeRowChange parses a change received from the wire
func decodeRowChange(payload []byte) (shared.RowChange, error) {
	var c shared.RowChange
	if err := json.Unmarshal(payload, &c); err != nil {
		return shared.RowChange{}, fmt.Errorf("failed to unmarshal row change: %w", err)
	}
	if c.Table == "" {
		return shared.RowChange{}, fmt.Errorf("row change without table")
	}
	return c, nil
}
