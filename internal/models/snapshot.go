package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IDLayout is the timestamp part of a snapshot id: filesystem safe and
// lexicographically sortable.
const IDLayout = "2006-01-02T15-04-05"

// maxSuffix bounds the collision counter appended to an id
const maxSuffix = 999

// Snapshot is a point-in-time copy of the save directory together with its
// current tag set. Values are read-only views: they go stale as soon as any
// mutating store call happens.
type Snapshot struct {
	ID       string
	Metadata *Metadata
	Tags     []string
}

// CreatedAt returns the creation time from metadata, falling back to the id
func (s Snapshot) CreatedAt() time.Time {
	if s.Metadata != nil && !s.Metadata.CreatedAt.IsZero() {
		return s.Metadata.CreatedAt
	}
	t, _ := ParseID(s.ID)
	return t
}

// HasTag reports whether the snapshot currently carries tag
func (s Snapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NextID returns a snapshot id for timestamp that sorts strictly after latest.
// Format: YYYY-MM-DDTHH-MM-SS, or YYYY-MM-DDTHH-MM-SS-NNN on collision.
func NextID(timestamp time.Time, latest string) (string, error) {
	id := timestamp.Format(IDLayout)
	if latest == "" || id > latest {
		return id, nil
	}

	base, n := splitID(latest)
	if n >= maxSuffix {
		return "", fmt.Errorf("too many snapshots within one second after %s", latest)
	}
	return fmt.Sprintf("%s-%03d", base, n+1), nil
}

// ParseID extracts the timestamp encoded in a snapshot id
func ParseID(id string) (time.Time, error) {
	base, _ := splitID(id)
	t, err := time.ParseInLocation(IDLayout, base, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot id %q: %w", id, err)
	}
	return t, nil
}

// IsValidID reports whether id looks like something NextID produced
func IsValidID(id string) bool {
	_, err := ParseID(id)
	return err == nil
}

func splitID(id string) (string, int) {
	if len(id) <= len(IDLayout) {
		return id, 0
	}
	base, rest := id[:len(IDLayout)], id[len(IDLayout):]
	if !strings.HasPrefix(rest, "-") {
		return id, 0
	}
	n, err := strconv.Atoi(rest[1:])
	if err != nil {
		return id, 0
	}
	return base, n
}
