package cmd

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pders01/savepoint/internal/models"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	archiveOutput string
	archiveTag    string
)

var archiveCmd = &cobra.Command{
	Use:   "archive <year|YYYY-MM|all>",
	Short: "Bundle snapshots for external storage",
	Long: `Create a tar.gz archive of snapshot directories for backup or transfer.

Each snapshot is stored as <id>/meta.json and <id>/data/...

Examples:
  savepoint archive 2025          # Archive all snapshots from 2025
  savepoint archive 2025-11       # Archive snapshots from November 2025
  savepoint archive all           # Archive all snapshots
  savepoint archive 2025 --tag boss
  savepoint archive all --output my-saves.tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveOutput, "output", "", "Output file path (default: savepoint-<period>.tar.gz)")
	archiveCmd.Flags().StringVar(&archiveTag, "tag", "", "Filter by tag")
}

// selectForArchive keeps snapshots whose id starts with period ("all" keeps everything)
func selectForArchive(snapshots []models.Snapshot, period, tag string) []models.Snapshot {
	return lo.Filter(snapshots, func(s models.Snapshot, _ int) bool {
		if period != "all" && !strings.HasPrefix(s.ID, period) {
			return false
		}
		return tag == "" || s.HasTag(tag)
	})
}

func runArchive(cmd *cobra.Command, args []string) error {
	period := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshots, err := a.snapshots.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	selected := selectForArchive(snapshots, period, archiveTag)
	if len(selected) == 0 {
		fmt.Println("No snapshots match the filter criteria")
		return nil
	}

	outputFile := archiveOutput
	if outputFile == "" {
		outputFile = fmt.Sprintf("savepoint-%s.tar.gz", strings.ReplaceAll(period, "/", "-"))
	}

	fmt.Printf("Archiving %d snapshot(s) to: %s\n\n", len(selected), outputFile)

	if err := createArchive(outputFile, a.snapshots.Path, selected); err != nil {
		os.Remove(outputFile)
		return fmt.Errorf("failed to create archive: %w", err)
	}

	if fileInfo, err := os.Stat(outputFile); err == nil {
		fmt.Printf("\n✓ Archive created: %s (%s)\n", outputFile, formatBytes(fileInfo.Size()))
	} else {
		fmt.Printf("\n✓ Archive created: %s\n", outputFile)
	}

	return nil
}

func createArchive(filename string, pathOf func(string) string, snapshots []models.Snapshot) error {
	outFile, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	tarWriter := tar.NewWriter(gzWriter)

	for i, s := range snapshots {
		fmt.Printf("  [%d/%d] %s\n", i+1, len(snapshots), s.ID)
		if err := addTree(tarWriter, pathOf(s.ID), s.ID); err != nil {
			return fmt.Errorf("failed to archive %s: %w", s.ID, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}
	return outFile.Close()
}

// addTree writes root into tw with every name prefixed by prefix
func addTree(tw *tar.Writer, root, prefix string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(filepath.Join(prefix, relPath))
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}
