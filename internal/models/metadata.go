package models

import (
	"fmt"
	"time"
)

// SchemaVersion is the meta.json layout written by this version
const SchemaVersion = 1

// Metadata represents the meta.json structure for a snapshot.
// Tag membership is not stored here; the tag index owns it.
type Metadata struct {
	SchemaVersion int       `json:"schema_version"`
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Note          string    `json:"note,omitempty"`
	SourceDir     string    `json:"source_dir,omitempty"`
	ContentHash   string    `json:"content_hash,omitempty"` // For immutability verification
	FileCount     int       `json:"file_count"`
	SizeBytes     int64     `json:"size_bytes"`
}

// Validate rejects records that cannot be trusted for the directory named dirID
func (m *Metadata) Validate(dirID string) error {
	switch {
	case m.SchemaVersion == 0:
		return fmt.Errorf("%w: missing schema_version", ErrCorruptMetadata)
	case m.SchemaVersion > SchemaVersion:
		return fmt.Errorf("%w: schema_version %d is newer than supported %d",
			ErrCorruptMetadata, m.SchemaVersion, SchemaVersion)
	case m.ID != dirID:
		return fmt.Errorf("%w: id %q does not match directory %q", ErrCorruptMetadata, m.ID, dirID)
	case m.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing created_at", ErrCorruptMetadata)
	}
	return nil
}
