// Package prefs persists small user preferences next to the tag index
package prefs

import (
	"fmt"

	"github.com/pders01/savepoint/internal/models"
	bolt "go.etcd.io/bbolt"
)

var (
	prefsBucket    = []byte("prefs")
	lastUsedTagKey = []byte("last_used_tag")
)

// Store reads and writes preferences. The value it returns is not checked
// against the tag index; callers treat a stale name as "no default".
type Store struct {
	db *bolt.DB
}

// New returns a Store backed by db, creating the prefs bucket if needed
func New(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(prefsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prefs bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// GetLastUsedTag returns the remembered tag. Read errors are reported as no value.
func (s *Store) GetLastUsedTag() (string, bool) {
	var name string
	var ok bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		name, ok = LastUsedTag(tx)
		return nil
	}); err != nil {
		return "", false
	}
	return name, ok
}

// SetLastUsedTag remembers name
func (s *Store) SetLastUsedTag(name string) error {
	if err := models.ValidateTagName(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putLastUsedTag(tx, name)
	})
}

// LastUsedTag reads the remembered tag inside tx
func LastUsedTag(tx *bolt.Tx) (string, bool) {
	b := tx.Bucket(prefsBucket)
	if b == nil {
		return "", false
	}
	v := b.Get(lastUsedTagKey)
	if len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// RenameLastUsedTag points the remembered tag at newName if it was oldName.
// Used for both tag renames and merges.
func RenameLastUsedTag(tx *bolt.Tx, oldName, newName string) error {
	if current, ok := LastUsedTag(tx); !ok || current != oldName {
		return nil
	}
	return putLastUsedTag(tx, newName)
}

// ClearLastUsedTag forgets the remembered tag if it is name
func ClearLastUsedTag(tx *bolt.Tx, name string) error {
	if current, ok := LastUsedTag(tx); !ok || current != name {
		return nil
	}
	b, err := tx.CreateBucketIfNotExists(prefsBucket)
	if err != nil {
		return err
	}
	return b.Delete(lastUsedTagKey)
}

func putLastUsedTag(tx *bolt.Tx, name string) error {
	b, err := tx.CreateBucketIfNotExists(prefsBucket)
	if err != nil {
		return err
	}
	return b.Put(lastUsedTagKey, []byte(name))
}
