// Package seed carries the embedded development fixtures: a handful of
// published guidelines and the user directory.
package seed

import (
	"embed"
	"encoding/json"
	"fmt"

	"guidance/api/internal/store"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// Load parses the embedded fixture files.
func Load() ([]store.Guideline, []store.User, error) {
	var guidelines []store.Guideline
	if err := readFixture("fixtures/guidelines.json", &guidelines); err != nil {
		return nil, nil, err
	}

	var users []store.User
	if err := readFixture("fixtures/users.json", &users); err != nil {
		return nil, nil, err
	}

	return guidelines, users, nil
}

func readFixture(name string, target any) error {
	raw, err := fixtures.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("parse fixture %s: %w", name, err)
	}
	return nil
}
