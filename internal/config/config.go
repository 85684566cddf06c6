package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// File is the layout of config.toml written by init
type File struct {
	Paths     PathsSection     `toml:"paths"`
	Copy      CopySection      `toml:"copy"`
	Retention RetentionSection `toml:"retention"`
	Watch     WatchSection     `toml:"watch"`
	Log       LogSection       `toml:"log"`
}

type PathsSection struct {
	SaveDir    string `toml:"save_dir"`
	BackupRoot string `toml:"backup_root"`
}

type CopySection struct {
	Workers int `toml:"workers"`
}

type RetentionSection struct {
	Days         int      `toml:"days"`
	KeepLast     int      `toml:"keep_last"`
	PreserveTags []string `toml:"preserve_tags"`
}

type WatchSection struct {
	Debounce string `toml:"debounce"`
	Tag      string `toml:"tag"`
}

type LogSection struct {
	Level string `toml:"level"`
}

// DefaultBackupRoot returns $HOME/.local/share/savepoint
func DefaultBackupRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".savepoint"
	}
	return filepath.Join(home, ".local", "share", "savepoint")
}

// Defaults returns the settings used when nothing is configured
func Defaults() File {
	return File{
		Paths:     PathsSection{BackupRoot: DefaultBackupRoot()},
		Copy:      CopySection{Workers: 4},
		Retention: RetentionSection{Days: 90, KeepLast: 10, PreserveTags: []string{"important"}},
		Watch:     WatchSection{Debounce: "5s", Tag: "auto"},
		Log:       LogSection{Level: "info"},
	}
}

// SetDefaults registers Defaults with viper
func SetDefaults() {
	d := Defaults()
	viper.SetDefault("paths.backup_root", d.Paths.BackupRoot)
	viper.SetDefault("copy.workers", d.Copy.Workers)
	viper.SetDefault("retention.days", d.Retention.Days)
	viper.SetDefault("retention.keep_last", d.Retention.KeepLast)
	viper.SetDefault("retention.preserve_tags", d.Retention.PreserveTags)
	viper.SetDefault("watch.debounce", d.Watch.Debounce)
	viper.SetDefault("watch.tag", d.Watch.Tag)
	viper.SetDefault("log.level", d.Log.Level)
}

// GetSaveDir returns the live save directory, empty if not configured
func GetSaveDir() string {
	return expandHome(viper.GetString("paths.save_dir"))
}

// GetBackupRoot returns the directory snapshots are stored under
func GetBackupRoot() string {
	return expandHome(viper.GetString("paths.backup_root"))
}

// GetCopyWorkers returns how many files are copied in parallel
func GetCopyWorkers() int {
	return viper.GetInt("copy.workers")
}

// GetRetentionDays returns the retention period in days
func GetRetentionDays() int {
	return viper.GetInt("retention.days")
}

// GetKeepLast returns how many of the newest snapshots prune never touches
func GetKeepLast() int {
	return viper.GetInt("retention.keep_last")
}

// GetPreserveTags returns tags that should be preserved indefinitely
func GetPreserveTags() []string {
	return viper.GetStringSlice("retention.preserve_tags")
}

// GetWatchDebounce returns how long the save directory has to stay quiet
// before watch takes a snapshot
func GetWatchDebounce() time.Duration {
	return viper.GetDuration("watch.debounce")
}

// GetWatchTag returns the tag given to snapshots taken by watch
func GetWatchTag() string {
	return viper.GetString("watch.tag")
}

// GetLogLevel returns the configured log level name
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// ShouldPreserve checks if a snapshot with given tags should be preserved
func ShouldPreserve(tags []string) bool {
	return len(lo.Intersect(tags, GetPreserveTags())) > 0
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
