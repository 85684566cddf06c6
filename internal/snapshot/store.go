// Package snapshot owns snapshot directories under the backup root and
// restores them into the live directory.
//
// Every read goes to disk and to the index; values returned by List and Get
// are stale as soon as another mutating call has been made.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/function61/gokit/fileexists"
	"github.com/function61/gokit/jsonfile"
	"github.com/pders01/savepoint/internal/fsutil"
	"github.com/pders01/savepoint/internal/index"
	"github.com/pders01/savepoint/internal/models"
	"github.com/pders01/savepoint/internal/oplog"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	snapshotsDirName = "snapshots"
	metaFileName     = "meta.json"
	dataDirName      = "data"

	stagingPrefix = ".staging-"
	trashPrefix   = ".trash-"
)

// Options configures a Store
type Options struct {
	// Root is the backup root. Snapshots live in Root/snapshots.
	Root string
	// LiveDir is the directory Restore replaces. It may be empty for
	// commands that never restore.
	LiveDir string
	DB      *bolt.DB
	Log     logrus.FieldLogger
	OpLog   oplog.Appender
	// Workers bounds parallel file copies
	Workers int
}

// Store manages snapshots on disk and their index records
type Store struct {
	dir     string
	liveDir string
	db      *bolt.DB
	log     logrus.FieldLogger
	oplog   oplog.Appender
	workers int
	now     func() time.Time
}

// Open returns a Store for opts after repairing anything an interrupted
// operation left behind
func Open(opts Options) (*Store, error) {
	if opts.DB == nil {
		return nil, errors.New("snapshot store needs an index database")
	}
	s := &Store{
		dir:     filepath.Join(opts.Root, snapshotsDirName),
		liveDir: opts.LiveDir,
		db:      opts.DB,
		log:     opts.Log,
		oplog:   opts.OpLog,
		workers: opts.Workers,
		now:     time.Now,
	}
	if s.log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		s.log = quiet
	}
	if s.oplog == nil {
		s.oplog = oplog.Discard
	}

	if err := fsutil.MkdirAll(s.dir, 0755); err != nil {
		return nil, classify(fmt.Errorf("failed to create %s: %w", s.dir, err))
	}
	if err := s.Recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// LiveDir returns the directory Restore writes to
func (s *Store) LiveDir() string {
	return s.liveDir
}

// Path returns the directory of snapshot id
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id)
}

// DataPath returns the directory holding the copied tree of snapshot id
func (s *Store) DataPath(id string) string {
	return filepath.Join(s.dir, id, dataDirName)
}

// Exists reports whether a snapshot directory named id is present
func (s *Store) Exists(id string) bool {
	if !models.IsValidID(id) {
		return false
	}
	exists, err := fileexists.Exists(filepath.Join(s.Path(id), metaFileName))
	return err == nil && exists
}

// hasDir reports whether the directory of snapshot id is present, whatever
// state its metadata is in
func (s *Store) hasDir(id string) bool {
	if !models.IsValidID(id) {
		return false
	}
	info, err := os.Stat(s.Path(id))
	return err == nil && info.IsDir()
}

// Logger returns the logger the store writes warnings to
func (s *Store) Logger() logrus.FieldLogger {
	return s.log
}

// Save copies sourceDir into a new snapshot carrying tags and returns its id.
// Missing tags are created. Nothing is left behind if the copy fails.
func (s *Store) Save(sourceDir string, tags []string, note string) (string, error) {
	for _, tag := range tags {
		if err := models.ValidateTagName(tag); err != nil {
			return "", err
		}
	}

	info, err := os.Stat(sourceDir)
	if err != nil {
		return "", classify(fmt.Errorf("source %s: %w", sourceDir, err))
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source %s is not a directory: %w", sourceDir, models.ErrNotFound)
	}

	latest, err := s.latestDirID()
	if err != nil {
		return "", err
	}
	id, err := models.NextID(s.now(), latest)
	if err != nil {
		return "", err
	}

	staging := filepath.Join(s.dir, stagingPrefix+id)
	meta, err := s.stage(sourceDir, staging, id, note)
	if err != nil {
		if rmErr := fsutil.RemoveAll(staging); rmErr != nil {
			s.log.WithField("path", staging).Warnf("failed to remove partial snapshot: %v", rmErr)
		}
		return "", err
	}

	final := s.Path(id)
	if err := fsutil.Rename(staging, final); err != nil {
		fsutil.RemoveAll(staging)
		return "", classify(fmt.Errorf("failed to commit snapshot %s: %w", id, err))
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return index.Register(tx, id, tags)
	}); err != nil {
		s.discard(id)
		return "", fmt.Errorf("failed to index snapshot %s: %w", id, err)
	}

	s.record(oplog.EventSave, fmt.Sprintf("%s tags=%s files=%d bytes=%d note=%q",
		id, strings.Join(tags, ","), meta.FileCount, meta.SizeBytes, note))
	return id, nil
}

// stage fills staging with the copied tree and its metadata
func (s *Store) stage(sourceDir, staging, id, note string) (*models.Metadata, error) {
	if err := fsutil.MkdirAll(staging, 0755); err != nil {
		return nil, classify(fmt.Errorf("failed to create %s: %w", staging, err))
	}

	data := filepath.Join(staging, dataDirName)
	if _, err := fsutil.CopyTree(sourceDir, data, s.workers); err != nil {
		return nil, classify(fmt.Errorf("failed to copy %s: %w", sourceDir, err))
	}

	hash, stats, err := fsutil.HashTree(data)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to hash snapshot: %w", err))
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		absSource = sourceDir
	}
	createdAt, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}

	meta := &models.Metadata{
		SchemaVersion: models.SchemaVersion,
		ID:            id,
		CreatedAt:     createdAt,
		Note:          note,
		SourceDir:     absSource,
		ContentHash:   hash,
		FileCount:     stats.Files,
		SizeBytes:     stats.Bytes,
	}
	if err := jsonfile.Write(filepath.Join(staging, metaFileName), meta); err != nil {
		return nil, classify(fmt.Errorf("failed to write metadata: %w", err))
	}
	return meta, nil
}

// discard removes a committed snapshot directory that could not be indexed
func (s *Store) discard(id string) {
	trash := filepath.Join(s.dir, trashPrefix+id)
	if err := fsutil.Rename(s.Path(id), trash); err != nil {
		s.log.WithField("snapshot", id).Warnf("failed to discard unindexed snapshot: %v", err)
		return
	}
	if err := fsutil.RemoveAll(trash); err != nil {
		s.log.WithField("path", trash).Warnf("failed to remove discarded snapshot: %v", err)
	}
}

// List returns all readable snapshots, newest first. Snapshots whose
// metadata is missing or corrupt are logged and skipped.
func (s *Store) List() ([]models.Snapshot, error) {
	ids, err := s.dirIDs()
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.Snapshot, 0, len(ids))
	for _, id := range ids {
		meta, err := s.readMeta(id)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"snapshot": id,
				"path":     s.Path(id),
			}).Warnf("skipping snapshot: %v", err)
			continue
		}
		snapshots = append(snapshots, models.Snapshot{ID: id, Metadata: meta})
	}

	if err := s.db.View(func(tx *bolt.Tx) error {
		for i := range snapshots {
			tags, err := index.SnapshotTags(tx, snapshots[i].ID)
			if err != nil {
				return err
			}
			snapshots[i].Tags = tags
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID > snapshots[j].ID
	})
	return snapshots, nil
}

// Get returns snapshot id with its tags. A directory without readable
// metadata gives models.ErrCorruptMetadata.
func (s *Store) Get(id string) (models.Snapshot, error) {
	if !s.hasDir(id) {
		return models.Snapshot{}, fmt.Errorf("snapshot %s: %w", id, models.ErrNotFound)
	}
	meta, err := s.readMeta(id)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{ID: id, Metadata: meta}
	err = s.db.View(func(tx *bolt.Tx) error {
		snap.Tags, err = index.SnapshotTags(tx, id)
		return err
	})
	return snap, err
}

// Latest returns the newest readable snapshot
func (s *Store) Latest() (models.Snapshot, error) {
	snapshots, err := s.List()
	if err != nil {
		return models.Snapshot{}, err
	}
	if len(snapshots) == 0 {
		return models.Snapshot{}, fmt.Errorf("no snapshots: %w", models.ErrNotFound)
	}
	return snapshots[0], nil
}

// Restore replaces the live directory with the content of snapshot id. The
// copy is assembled beside the live directory and swapped in with a single
// rename, so the live directory is never a mix of old and new files.
func (s *Store) Restore(id string) error {
	if s.liveDir == "" {
		return errors.New("no live directory configured")
	}
	if !s.Exists(id) {
		return fmt.Errorf("snapshot %s: %w", id, models.ErrNotFound)
	}

	staging := fsutil.StagingPath(s.liveDir)
	if err := fsutil.RemoveAll(staging); err != nil {
		return classify(fmt.Errorf("failed to clear %s: %w", staging, err))
	}
	if err := fsutil.MkdirAll(filepath.Dir(s.liveDir), 0755); err != nil {
		return classify(fmt.Errorf("failed to create parent of %s: %w", s.liveDir, err))
	}

	stats, err := fsutil.CopyTree(s.DataPath(id), staging, s.workers)
	if err != nil {
		fsutil.RemoveAll(staging)
		return classify(fmt.Errorf("failed to copy snapshot %s: %w", id, err))
	}

	old, err := fsutil.ReplaceDir(staging, s.liveDir)
	if err != nil {
		fsutil.RemoveAll(staging)
		return classify(fmt.Errorf("failed to swap in snapshot %s: %w", id, err))
	}

	// swapped; from here on failures only leave garbage behind
	if old != "" {
		if err := fsutil.RemoveAll(old); err != nil {
			s.log.WithField("path", old).Warnf("failed to remove previous live content: %v", err)
		}
	}

	s.record(oplog.EventRestore, fmt.Sprintf("%s -> %s files=%d", id, s.liveDir, stats.Files))
	return nil
}

// RestoreByTag restores the newest snapshot carrying tag
func (s *Store) RestoreByTag(tag string) error {
	var members []string
	if err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		members, _, err = index.Members(tx, tag)
		return err
	}); err != nil {
		return err
	}

	var newest string
	for _, id := range members {
		if id > newest && s.Exists(id) {
			newest = id
		}
	}
	if newest == "" {
		return fmt.Errorf("tag %q has no snapshots: %w", tag, models.ErrTagNotFound)
	}
	return s.Restore(newest)
}

// DeleteSnapshot removes snapshot id and its tag memberships. Tags left
// without members are kept.
//
// The directory is moved out of sight first so that a crash before the index
// update is finished by Recover. The bbolt lock keeps other processes from
// reading the index in between.
func (s *Store) DeleteSnapshot(id string) error {
	// metadata may be missing or unreadable; the directory is what counts here
	if !s.hasDir(id) {
		return fmt.Errorf("snapshot %s: %w", id, models.ErrNotFound)
	}

	trash := filepath.Join(s.dir, trashPrefix+id)
	if err := fsutil.Rename(s.Path(id), trash); err != nil {
		return classify(fmt.Errorf("failed to delete snapshot %s: %w", id, err))
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return index.Unregister(tx, id)
	}); err != nil {
		if rbErr := fsutil.Rename(trash, s.Path(id)); rbErr != nil {
			s.log.WithField("snapshot", id).Warnf("failed to put snapshot back: %v", rbErr)
		}
		return fmt.Errorf("failed to unindex snapshot %s: %w", id, err)
	}

	if err := fsutil.RemoveAll(trash); err != nil {
		s.log.WithField("path", trash).Warnf("failed to remove deleted snapshot: %v", err)
	}

	s.record(oplog.EventDelete, id)
	return nil
}

// Verify recomputes the content hash of snapshot id and compares it with the
// one recorded at save time
func (s *Store) Verify(id string) error {
	snap, err := s.Get(id)
	if err != nil {
		return err
	}
	if snap.Metadata.ContentHash == "" {
		return fmt.Errorf("%w: snapshot %s has no content hash", models.ErrCorruptMetadata, id)
	}

	hash, stats, err := fsutil.HashTree(s.DataPath(id))
	if err != nil {
		return classify(fmt.Errorf("failed to hash snapshot %s: %w", id, err))
	}
	if hash != snap.Metadata.ContentHash {
		return fmt.Errorf("%w: content of snapshot %s changed (%d files, hash %s, expected %s)",
			models.ErrCorruptMetadata, id, stats.Files, hash, snap.Metadata.ContentHash)
	}
	return nil
}

// Diff reports how dir differs from the content of snapshot id. A missing
// dir counts as empty.
func (s *Store) Diff(id, dir string) (fsutil.TreeDiff, error) {
	if !s.Exists(id) {
		return fsutil.TreeDiff{}, fmt.Errorf("snapshot %s: %w", id, models.ErrNotFound)
	}

	before, _, err := fsutil.HashFiles(s.DataPath(id))
	if err != nil {
		return fsutil.TreeDiff{}, classify(err)
	}
	after, _, err := fsutil.HashFiles(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fsutil.TreeDiff{}, classify(err)
		}
		after = map[string]string{}
	}
	return fsutil.CompareHashes(before, after), nil
}

// Check verifies that every tag member exists on disk, that both sides of
// every membership agree and that every snapshot directory is indexed
func (s *Store) Check() ([]string, error) {
	ids, err := s.dirIDs()
	if err != nil {
		return nil, err
	}
	present := map[string]bool{}
	for _, id := range ids {
		present[id] = true
	}

	var problems []string
	err = s.db.View(func(tx *bolt.Tx) error {
		var err error
		problems, err = index.Check(tx, func(id string) bool { return present[id] })
		if err != nil {
			return err
		}
		for _, id := range ids {
			if !index.IsRegistered(tx, id) {
				problems = append(problems, fmt.Sprintf("snapshot %s is on disk but not indexed", id))
			}
		}
		return nil
	})
	return problems, err
}

// Recover removes leftovers of interrupted saves and deletes, brings the
// index in line with the snapshot directories and repairs an interrupted
// restore swap. Open calls it; calling it again is harmless.
func (s *Store) Recover() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return classify(fmt.Errorf("failed to read %s: %w", s.dir, err))
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, stagingPrefix) && !strings.HasPrefix(name, trashPrefix) {
			continue
		}
		path := filepath.Join(s.dir, name)
		s.log.WithField("path", path).Info("removing leftover of an interrupted operation")
		if err := fsutil.RemoveAll(path); err != nil {
			return classify(fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}

	ids, err := s.dirIDs()
	if err != nil {
		return err
	}
	var dropped, added []string
	if err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		dropped, added, err = index.Reconcile(tx, ids)
		return err
	}); err != nil {
		return fmt.Errorf("failed to reconcile index: %w", err)
	}
	for _, id := range dropped {
		s.log.WithField("snapshot", id).Warn("dropped index record of missing snapshot")
	}
	for _, id := range added {
		s.log.WithField("snapshot", id).Warn("indexed snapshot that had no record")
	}

	if s.liveDir != "" {
		restored, err := fsutil.RecoverReplace(s.liveDir)
		if err != nil {
			return classify(err)
		}
		if restored {
			s.log.WithField("path", s.liveDir).Warn("moved live directory back after an interrupted restore")
		}
	}
	return nil
}

func (s *Store) readMeta(id string) (*models.Metadata, error) {
	meta := &models.Metadata{}
	if err := jsonfile.Read(filepath.Join(s.Path(id), metaFileName), meta, false); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no %s", models.ErrCorruptMetadata, id, metaFileName)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrCorruptMetadata, err)
	}
	if err := meta.Validate(id); err != nil {
		return nil, err
	}
	return meta, nil
}

// dirIDs returns the names of all snapshot directories, ascending. Hidden
// staging and trash directories are not included.
func (s *Store) dirIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, classify(fmt.Errorf("failed to read %s: %w", s.dir, err))
	}

	ids := []string{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !models.IsValidID(entry.Name()) {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) latestDirID() (string, error) {
	ids, err := s.dirIDs()
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[len(ids)-1], nil
}

func (s *Store) record(event, detail string) {
	if err := s.oplog.Append(event, detail); err != nil {
		s.log.WithField("event", event).Warnf("failed to write operation log: %v", err)
	}
}

// classify tags a filesystem error with the matching error kind
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", models.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrIO, err)
	}
}
