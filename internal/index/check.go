package index

import (
	"fmt"

	"github.com/samber/lo"
	bolt "go.etcd.io/bbolt"
)

// Check verifies that the index agrees with itself and with the snapshot
// directories reported by onDisk. It returns one line per violation.
func Check(tx *bolt.Tx, onDisk func(id string) bool) ([]string, error) {
	var problems []string

	names, err := TagNames(tx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		rec, _, err := getTag(tx, name)
		if err != nil {
			return nil, err
		}
		if dups := lo.FindDuplicates(rec.Members); len(dups) > 0 {
			problems = append(problems, fmt.Sprintf("tag %q lists %v more than once", name, dups))
		}
		for _, id := range rec.Members {
			if !onDisk(id) {
				problems = append(problems, fmt.Sprintf("tag %q references missing snapshot %s", name, id))
			}
			tags, err := SnapshotTags(tx, id)
			if err != nil {
				return nil, err
			}
			if !lo.Contains(tags, name) {
				problems = append(problems, fmt.Sprintf("tag %q lists %s but the snapshot does not carry it", name, id))
			}
		}
	}

	ids, err := SnapshotIDs(tx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !onDisk(id) {
			problems = append(problems, fmt.Sprintf("snapshot %s is indexed but missing on disk", id))
		}
		tags, err := SnapshotTags(tx, id)
		if err != nil {
			return nil, err
		}
		for _, name := range tags {
			members, found, err := Members(tx, name)
			if err != nil {
				return nil, err
			}
			if !found {
				problems = append(problems, fmt.Sprintf("snapshot %s carries unknown tag %q", id, name))
				continue
			}
			if !lo.Contains(members, id) {
				problems = append(problems, fmt.Sprintf("snapshot %s carries %q but is not a member", id, name))
			}
		}
	}

	return problems, nil
}

// Reconcile makes the index agree with the snapshots present on disk: records
// of vanished snapshots are dropped, stray member ids are removed and
// snapshots missing from the index are registered without tags. It returns
// the ids it dropped and the ids it registered.
func Reconcile(tx *bolt.Tx, onDisk []string) (dropped []string, added []string, err error) {
	present := lo.SliceToMap(onDisk, func(id string) (string, struct{}) { return id, struct{}{} })

	ids, err := SnapshotIDs(tx)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		if _, ok := present[id]; ok {
			continue
		}
		if err := Unregister(tx, id); err != nil {
			return nil, nil, err
		}
		dropped = append(dropped, id)
	}

	names, err := TagNames(tx)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range names {
		rec, _, err := getTag(tx, name)
		if err != nil {
			return nil, nil, err
		}
		kept := lo.Filter(rec.Members, func(id string, _ int) bool {
			_, ok := present[id]
			return ok && IsRegistered(tx, id)
		})
		if len(kept) == len(rec.Members) {
			continue
		}
		rec.Members = kept
		if err := putTag(tx, name, rec); err != nil {
			return nil, nil, err
		}
	}

	for _, id := range onDisk {
		if IsRegistered(tx, id) {
			if err := dropUnlistedTags(tx, id); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err := Register(tx, id, nil); err != nil {
			return nil, nil, err
		}
		added = append(added, id)
	}

	return dropped, added, nil
}

// dropUnlistedTags removes tags from a snapshot record whose tag does not
// list the snapshot back
func dropUnlistedTags(tx *bolt.Tx, id string) error {
	snap, found, err := getSnapshot(tx, id)
	if err != nil || !found {
		return err
	}
	kept := lo.Filter(snap.Tags, func(name string, _ int) bool {
		members, found, _ := Members(tx, name)
		return found && lo.Contains(members, id)
	})
	if len(kept) == len(snap.Tags) {
		return nil
	}
	snap.Tags = kept
	return putSnapshot(tx, id, snap)
}
