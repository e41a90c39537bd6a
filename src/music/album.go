package music

import (
	"fmt"
	"strings"
)

// Album is a canonical album in the catalog. The same album may be backed
// by several sources at once; source membership lives in the mapping rows.
type Album struct {
	ID   int64
	Name string
}

// Validate validates the album fields.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("album name cannot be empty")
	}
	if len(a.Name) > 500 {
		return fmt.Errorf("album name cannot exceed 500 characters")
	}
	return nil
}
