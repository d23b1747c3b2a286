package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors for image storage operations.
var (
	ErrImageExists      = errors.New("image already exists")
	ErrInvalidImageName = errors.New("invalid image name")
)

// Backend type constants.
const (
	BackendFile = "file"
	BackendGCS  = "gcs"
)

// validateName accepts plain file names only. Image names are generated
// server-side, so anything with a path component is a bug or an attack.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidImageName, name)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidImageName, name)
	case strings.HasPrefix(name, "."):
		// Reserved for temp files.
		return fmt.Errorf("%w: %q", ErrInvalidImageName, name)
	}
	return nil
}

// joinURL joins a base URL or path prefix and a name with exactly one slash.
func joinURL(base, name string) string {
	if base == "" {
		return "/" + name
	}
	return strings.TrimRight(base, "/") + "/" + name
}
