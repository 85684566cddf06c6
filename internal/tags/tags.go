// Package tags manages named groups of snapshots. Every mutation runs in one
// index transaction together with the matching preference update, so a
// reader sees either the old or the new naming everywhere.
package tags

import (
	"fmt"
	"sort"

	"github.com/pders01/savepoint/internal/index"
	"github.com/pders01/savepoint/internal/models"
	"github.com/pders01/savepoint/internal/oplog"
	"github.com/pders01/savepoint/internal/prefs"
	"github.com/pders01/savepoint/internal/snapshot"
	"github.com/samber/lo"
	bolt "go.etcd.io/bbolt"
)

// Index is the tag side of the store
type Index struct {
	db        *bolt.DB
	snapshots *snapshot.Store
	oplog     oplog.Appender
}

// New returns an Index over db. snapshots answers existence checks.
func New(db *bolt.DB, snapshots *snapshot.Store, appender oplog.Appender) *Index {
	if appender == nil {
		appender = oplog.Discard
	}
	return &Index{db: db, snapshots: snapshots, oplog: appender}
}

// ListTags returns every tag with the number of its members present on disk,
// sorted by name
func (x *Index) ListTags() ([]models.TagInfo, error) {
	infos := []models.TagInfo{}
	err := x.db.View(func(tx *bolt.Tx) error {
		names, err := index.TagNames(tx)
		if err != nil {
			return err
		}
		for _, name := range names {
			members, _, err := index.Members(tx, name)
			if err != nil {
				return err
			}
			infos = append(infos, models.TagInfo{
				Tag:   name,
				Count: lo.CountBy(members, x.snapshots.Exists),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return infos, nil
}

// CreateTag adds an empty tag
func (x *Index) CreateTag(name string) error {
	if err := x.db.Update(func(tx *bolt.Tx) error {
		return index.CreateTag(tx, name)
	}); err != nil {
		return err
	}
	x.record(oplog.EventTagCreate, name)
	return nil
}

// RenameTag renames oldName to newName on every member and in the last-used
// tag preference
func (x *Index) RenameTag(oldName, newName string) error {
	if err := x.db.Update(func(tx *bolt.Tx) error {
		if err := index.RenameTag(tx, oldName, newName); err != nil {
			return err
		}
		return prefs.RenameLastUsedTag(tx, oldName, newName)
	}); err != nil {
		return err
	}
	x.record(oplog.EventTagRename, fmt.Sprintf("%s -> %s", oldName, newName))
	return nil
}

// DeleteTag removes tag name. Its snapshots are kept and lose only this tag;
// a snapshot may end up with no tags at all.
func (x *Index) DeleteTag(name string) error {
	if err := x.db.Update(func(tx *bolt.Tx) error {
		if err := index.DeleteTag(tx, name); err != nil {
			return err
		}
		return prefs.ClearLastUsedTag(tx, name)
	}); err != nil {
		return err
	}
	x.record(oplog.EventTagDelete, name)
	return nil
}

// MergeTags moves every member of source into target and deletes source.
// Running it again after it completed returns models.ErrNotFound and changes
// nothing.
func (x *Index) MergeTags(source, target string) error {
	if err := x.db.Update(func(tx *bolt.Tx) error {
		if err := index.MergeTag(tx, source, target); err != nil {
			return err
		}
		return prefs.RenameLastUsedTag(tx, source, target)
	}); err != nil {
		return err
	}
	x.record(oplog.EventTagMerge, fmt.Sprintf("%s -> %s", source, target))
	return nil
}

// Members returns the ids carrying name, newest first
func (x *Index) Members(name string) ([]string, error) {
	var members []string
	var found bool
	if err := x.db.View(func(tx *bolt.Tx) error {
		var err error
		members, found, err = index.Members(tx, name)
		return err
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("tag %q: %w", name, models.ErrTagNotFound)
	}

	members = lo.Filter(members, func(id string, _ int) bool { return x.snapshots.Exists(id) })
	sort.Sort(sort.Reverse(sort.StringSlice(members)))
	return members, nil
}

// DefaultTag returns the last used tag if it still exists
func (x *Index) DefaultTag() (string, bool) {
	var name string
	var ok bool
	x.db.View(func(tx *bolt.Tx) error {
		name, ok = prefs.LastUsedTag(tx)
		ok = ok && index.TagExists(tx, name)
		return nil
	})
	if !ok {
		return "", false
	}
	return name, true
}

// RemoveEmptyTags deletes tags without members and returns their names
func (x *Index) RemoveEmptyTags() ([]string, error) {
	var removed []string
	if err := x.db.Update(func(tx *bolt.Tx) error {
		var err error
		removed, err = index.RemoveEmptyTags(tx)
		if err != nil {
			return err
		}
		for _, name := range removed {
			if err := prefs.ClearLastUsedTag(tx, name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	for _, name := range removed {
		x.record(oplog.EventTagDelete, name)
	}
	return removed, nil
}

func (x *Index) record(event, detail string) {
	// failures here never undo a committed change
	if err := x.oplog.Append(event, detail); err != nil {
		x.snapshots.Logger().WithField("event", event).Warnf("failed to write operation log: %v", err)
	}
}
