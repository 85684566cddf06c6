package models

import (
	"fmt"
	"strings"
)

// TagInfo is one row of a tag listing
type TagInfo struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ValidateTagName checks that name can be used as an index key and shown in
// listings. Names are case-sensitive.
func ValidateTagName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: tag name is empty", ErrInvalidName)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: tag %q starts with a dot", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: tag %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
