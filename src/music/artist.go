package music

import (
	"fmt"
	"strings"
)

// Artist is a canonical artist in the catalog.
type Artist struct {
	ID   int64
	Name string
}

// Validate validates the artist fields.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist name cannot be empty")
	}
	if len(a.Name) > 500 {
		return fmt.Errorf("artist name cannot exceed 500 characters")
	}
	return nil
}
