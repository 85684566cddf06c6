package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/mattn/go-isatty"
	"github.com/pders01/savepoint/internal/config"
	"github.com/pders01/savepoint/internal/index"
	"github.com/pders01/savepoint/internal/oplog"
	"github.com/pders01/savepoint/internal/prefs"
	"github.com/pders01/savepoint/internal/snapshot"
	"github.com/pders01/savepoint/internal/tags"
	bolt "go.etcd.io/bbolt"
)

// app bundles the stores a command works with. Commands open it, do one
// thing and close it again; nothing read through it is cached.
type app struct {
	root      string
	db        *bolt.DB
	oplog     *oplog.Log
	snapshots *snapshot.Store
	tags      *tags.Index
	prefs     *prefs.Store
}

func openApp() (*app, error) {
	root := config.GetBackupRoot()
	if root == "" {
		return nil, fmt.Errorf("no backup root configured (set paths.backup_root)")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup root: %w", err)
	}

	db, err := index.Open(filepath.Join(root, "index.db"))
	if err != nil {
		return nil, err
	}

	log, err := oplog.Open(filepath.Join(root, "operations.log"))
	if err != nil {
		db.Close()
		return nil, err
	}

	store, err := snapshot.Open(snapshot.Options{
		Root:    root,
		LiveDir: config.GetSaveDir(),
		DB:      db,
		Log:     logger,
		OpLog:   log,
		Workers: config.GetCopyWorkers(),
	})
	if err != nil {
		log.Close()
		db.Close()
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	p, err := prefs.New(db)
	if err != nil {
		log.Close()
		db.Close()
		return nil, err
	}

	return &app{
		root:      root,
		db:        db,
		oplog:     log,
		snapshots: store,
		tags:      tags.New(db, store, log),
		prefs:     p,
	}, nil
}

func (a *app) Close() {
	if err := a.oplog.Close(); err != nil {
		logger.Warnf("failed to close operation log: %v", err)
	}
	if err := a.db.Close(); err != nil {
		logger.Warnf("failed to close index: %v", err)
	}
}

func requireSaveDir() (string, error) {
	dir := config.GetSaveDir()
	if dir == "" {
		return "", fmt.Errorf("no save directory configured (set paths.save_dir in the config file)")
	}
	return dir, nil
}

var confirmInput io.Reader = os.Stdin

// confirm asks a yes/no question on the terminal. Without a terminal it
// refuses, so scripts have to pass --yes.
func confirm(question string) (bool, error) {
	if f, ok := confirmInput.(*os.File); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return false, fmt.Errorf("not a terminal, use --yes to confirm")
		}
	}

	fmt.Printf("%s [y/N] ", question)
	answer, err := bufio.NewReader(confirmInput).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// printEncoded writes v as JSON or toon. It reports false if neither was asked for.
func printEncoded(v interface{}, asJSON, asToon bool) (bool, error) {
	switch {
	case asJSON:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return true, nil
	case asToon:
		output, err := gotoon.Encode(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return true, nil
	}
	return false, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
