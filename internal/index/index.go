// Package index keeps the relationship between snapshots and tags in a bbolt
// database. Both sides of the relationship (tag -> members and
// snapshot -> tags) live here and are only ever written together, inside the
// transaction the caller passes in, so readers never observe one side without
// the other.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pders01/savepoint/internal/models"
	"github.com/samber/lo"
	bolt "go.etcd.io/bbolt"
)

/*	buckets
	=======

	meta        "schema_version" = "1"
	tags        (tag name)   = tagRecord json
	snapshots   (snapshot id) = snapshotRecord json
*/

var (
	metaBucket      = []byte("meta")
	tagsBucket      = []byte("tags")
	snapshotsBucket = []byte("snapshots")

	schemaVersionKey = []byte("schema_version")
)

const schemaVersion = 1

// ErrLocked is returned by Open when another process holds the database
var ErrLocked = errors.New("index is locked by another process")

type tagRecord struct {
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type snapshotRecord struct {
	Tags []string `json:"tags"`
}

// Open opens the index at path, creating the file and buckets on first use.
// bbolt holds an exclusive file lock for as long as the database is open.
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}

	if err := db.Update(bootstrap); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func bootstrap(tx *bolt.Tx) error {
	for _, name := range [][]byte{metaBucket, tagsBucket, snapshotsBucket} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}

	meta := tx.Bucket(metaBucket)
	stored := meta.Get(schemaVersionKey)
	if stored == nil {
		return meta.Put(schemaVersionKey, []byte(strconv.Itoa(schemaVersion)))
	}

	version, err := strconv.Atoi(string(stored))
	if err != nil {
		return fmt.Errorf("%w: index schema_version %q", models.ErrCorruptMetadata, stored)
	}
	if version > schemaVersion {
		return fmt.Errorf("index schema_version %d is newer than supported %d", version, schemaVersion)
	}
	return nil
}

// Register records a new snapshot carrying tags, creating tags that do not
// exist yet
func Register(tx *bolt.Tx, id string, tags []string) error {
	if IsRegistered(tx, id) {
		return fmt.Errorf("snapshot %s: %w", id, models.ErrAlreadyExists)
	}

	tags = lo.Uniq(tags)
	for _, tag := range tags {
		if err := models.ValidateTagName(tag); err != nil {
			return err
		}
	}

	for _, tag := range tags {
		rec, found, err := getTag(tx, tag)
		if err != nil {
			return err
		}
		if !found {
			rec = &tagRecord{CreatedAt: time.Now().UTC()}
		}
		rec.Members = addMember(rec.Members, id)
		if err := putTag(tx, tag, rec); err != nil {
			return err
		}
	}

	sort.Strings(tags)
	return putSnapshot(tx, id, &snapshotRecord{Tags: tags})
}

// Unregister removes a snapshot from every tag and drops its record. Tags
// that end up empty are kept. Tag records are scanned rather than trusting
// the snapshot record, so stray references are removed too.
func Unregister(tx *bolt.Tx, id string) error {
	names, err := TagNames(tx)
	if err != nil {
		return err
	}

	for _, name := range names {
		rec, _, err := getTag(tx, name)
		if err != nil {
			return err
		}
		if !lo.Contains(rec.Members, id) {
			continue
		}
		rec.Members = lo.Without(rec.Members, id)
		if err := putTag(tx, name, rec); err != nil {
			return err
		}
	}

	return tx.Bucket(snapshotsBucket).Delete([]byte(id))
}

// IsRegistered reports whether id has a snapshot record
func IsRegistered(tx *bolt.Tx, id string) bool {
	return tx.Bucket(snapshotsBucket).Get([]byte(id)) != nil
}

// SnapshotIDs returns all registered snapshot ids in ascending order
func SnapshotIDs(tx *bolt.Tx) ([]string, error) {
	ids := []string{}
	err := tx.Bucket(snapshotsBucket).ForEach(func(k, _ []byte) error {
		ids = append(ids, string(k))
		return nil
	})
	return ids, err
}

// SnapshotTags returns the tags of a snapshot, sorted by name
func SnapshotTags(tx *bolt.Tx, id string) ([]string, error) {
	rec, found, err := getSnapshot(tx, id)
	if err != nil || !found {
		return nil, err
	}
	return rec.Tags, nil
}

// TagNames returns all tag names in ascending order
func TagNames(tx *bolt.Tx) ([]string, error) {
	names := []string{}
	err := tx.Bucket(tagsBucket).ForEach(func(k, _ []byte) error {
		names = append(names, string(k))
		return nil
	})
	return names, err
}

// TagExists reports whether name is a tag
func TagExists(tx *bolt.Tx, name string) bool {
	return tx.Bucket(tagsBucket).Get([]byte(name)) != nil
}

// Members returns the member ids of tag name in ascending order. found is
// false when the tag does not exist.
func Members(tx *bolt.Tx, name string) ([]string, bool, error) {
	rec, found, err := getTag(tx, name)
	if err != nil || !found {
		return nil, found, err
	}
	return rec.Members, true, nil
}

func addMember(members []string, id string) []string {
	if lo.Contains(members, id) {
		return members
	}
	members = append(members, id)
	sort.Strings(members)
	return members
}

func getTag(tx *bolt.Tx, name string) (*tagRecord, bool, error) {
	data := tx.Bucket(tagsBucket).Get([]byte(name))
	if data == nil {
		return nil, false, nil
	}
	rec := &tagRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, false, fmt.Errorf("%w: tag %q: %w", models.ErrCorruptMetadata, name, err)
	}
	return rec, true, nil
}

func putTag(tx *bolt.Tx, name string, rec *tagRecord) error {
	if rec.Members == nil {
		rec.Members = []string{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return tx.Bucket(tagsBucket).Put([]byte(name), data)
}

func getSnapshot(tx *bolt.Tx, id string) (*snapshotRecord, bool, error) {
	data := tx.Bucket(snapshotsBucket).Get([]byte(id))
	if data == nil {
		return nil, false, nil
	}
	rec := &snapshotRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, false, fmt.Errorf("%w: snapshot %q: %w", models.ErrCorruptMetadata, id, err)
	}
	return rec, true, nil
}

func putSnapshot(tx *bolt.Tx, id string, rec *snapshotRecord) error {
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return tx.Bucket(snapshotsBucket).Put([]byte(id), data)
}
