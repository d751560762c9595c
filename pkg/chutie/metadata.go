package chutie

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON writes s to path as indented JSON, overwriting any existing file.
func WriteJSON(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("chutie: encode session: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("chutie: write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a session previously written with WriteJSON.
func ReadJSON(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chutie: read %s: %w", path, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("chutie: decode %s: %w", path, err)
	}
	return &s, nil
}
