package player

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// DecodeMessage parses a relayed postMessage body. Players send JSON-stringified
// bodies, so data is usually a JSON string holding the JSON object; a bare
// object is accepted too.
func DecodeMessage(data []byte) (*v1alpha1.PlayerMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding message string: %w", err)
		}
		data = bytes.TrimSpace([]byte(s))
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("message is not a JSON object")
	}

	var msg v1alpha1.PlayerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	if msg.Event == "" && msg.Method == "" {
		return nil, fmt.Errorf("message has neither event nor method")
	}
	return &msg, nil
}
