package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/pders01/savepoint/internal/models"
	"github.com/samber/lo"
	bolt "go.etcd.io/bbolt"
)

// CreateTag adds an empty tag
func CreateTag(tx *bolt.Tx, name string) error {
	if err := models.ValidateTagName(name); err != nil {
		return err
	}
	if TagExists(tx, name) {
		return fmt.Errorf("tag %q: %w", name, models.ErrAlreadyExists)
	}
	return putTag(tx, name, &tagRecord{CreatedAt: time.Now().UTC()})
}

// RenameTag gives tag oldName the identity newName in the tag bucket and in
// every member's snapshot record
func RenameTag(tx *bolt.Tx, oldName, newName string) error {
	if err := models.ValidateTagName(newName); err != nil {
		return err
	}
	rec, found, err := getTag(tx, oldName)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tag %q: %w", oldName, models.ErrNotFound)
	}
	if TagExists(tx, newName) {
		return fmt.Errorf("tag %q: %w", newName, models.ErrAlreadyExists)
	}

	if err := putTag(tx, newName, &tagRecord{CreatedAt: rec.CreatedAt}); err != nil {
		return err
	}
	for _, id := range rec.Members {
		if err := moveSnapshotBetweenTags(tx, id, oldName, newName); err != nil {
			return err
		}
	}
	return tx.Bucket(tagsBucket).Delete([]byte(oldName))
}

// DeleteTag removes tag name and detaches it from all of its members. The
// snapshots themselves are kept, possibly with no tags left.
func DeleteTag(tx *bolt.Tx, name string) error {
	rec, found, err := getTag(tx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tag %q: %w", name, models.ErrNotFound)
	}

	for _, id := range rec.Members {
		snap, found, err := getSnapshot(tx, id)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		snap.Tags = lo.Without(snap.Tags, name)
		if err := putSnapshot(tx, id, snap); err != nil {
			return err
		}
	}
	return tx.Bucket(tagsBucket).Delete([]byte(name))
}

// MergeTag moves every member of source into target and deletes source.
// Snapshots that carried both end up carrying target once.
func MergeTag(tx *bolt.Tx, source, target string) error {
	if source == target {
		return fmt.Errorf("tag %q: %w", source, models.ErrSameTag)
	}
	rec, found, err := getTag(tx, source)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tag %q: %w", source, models.ErrNotFound)
	}
	if !TagExists(tx, target) {
		return fmt.Errorf("tag %q: %w", target, models.ErrNotFound)
	}

	for _, id := range rec.Members {
		if err := moveSnapshotBetweenTags(tx, id, source, target); err != nil {
			return err
		}
	}
	return tx.Bucket(tagsBucket).Delete([]byte(source))
}

// RemoveEmptyTags deletes every tag without members and returns their names
func RemoveEmptyTags(tx *bolt.Tx) ([]string, error) {
	names, err := TagNames(tx)
	if err != nil {
		return nil, err
	}

	removed := []string{}
	for _, name := range names {
		rec, _, err := getTag(tx, name)
		if err != nil {
			return nil, err
		}
		if len(rec.Members) > 0 {
			continue
		}
		if err := tx.Bucket(tagsBucket).Delete([]byte(name)); err != nil {
			return nil, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// moveSnapshotBetweenTags is the only place that rewrites a membership on
// both sides at once. It is safe to repeat: an id already moved is left as is.
func moveSnapshotBetweenTags(tx *bolt.Tx, id, from, to string) error {
	fromRec, found, err := getTag(tx, from)
	if err != nil {
		return err
	}
	if found {
		fromRec.Members = lo.Without(fromRec.Members, id)
		if err := putTag(tx, from, fromRec); err != nil {
			return err
		}
	}

	snap, found, err := getSnapshot(tx, id)
	if err != nil {
		return err
	}
	if !found {
		// stray reference, dropping it from the source is enough
		return nil
	}

	toRec, found, err := getTag(tx, to)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tag %q: %w", to, models.ErrNotFound)
	}
	toRec.Members = addMember(toRec.Members, id)
	if err := putTag(tx, to, toRec); err != nil {
		return err
	}

	tags := lo.Uniq(append(lo.Without(snap.Tags, from), to))
	sort.Strings(tags)
	snap.Tags = tags
	return putSnapshot(tx, id, snap)
}
