package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	tagsJSON      bool
	tagsToon      bool
	tagsCreate    bool
	tagsRename    string
	tagsDelete    bool
	tagsMergeInto string
)

var tagsCmd = &cobra.Command{
	Use:   "tags [tag]",
	Short: "List or manage tags",
	Long: `List all tags with the number of snapshots carrying them.
With a tag argument, create, rename, delete or merge that tag.

Deleting a tag keeps its snapshots; they only lose the tag.

Examples:
  savepoint tags                          # List all tags
  savepoint tags boss --create
  savepoint tags temp1 --rename main_run
  savepoint tags temp --merge-into main
  savepoint tags old --delete`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "Output as JSON")
	tagsCmd.Flags().BoolVar(&tagsToon, "toon", false, "Output in LLM-friendly toon format")
	tagsCmd.Flags().BoolVar(&tagsCreate, "create", false, "Create an empty tag")
	tagsCmd.Flags().StringVar(&tagsRename, "rename", "", "Rename tag to new value")
	tagsCmd.Flags().BoolVar(&tagsDelete, "delete", false, "Delete tag (snapshots are kept)")
	tagsCmd.Flags().StringVar(&tagsMergeInto, "merge-into", "", "Move all snapshots of tag into target and delete tag")
}

func runTags(cmd *cobra.Command, args []string) error {
	actions := 0
	for _, set := range []bool{tagsCreate, tagsRename != "", tagsDelete, tagsMergeInto != ""} {
		if set {
			actions++
		}
	}
	if actions > 1 {
		return fmt.Errorf("use only one of --create, --rename, --delete, --merge-into")
	}
	if actions == 1 && len(args) == 0 {
		return fmt.Errorf("tag name required")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		name := args[0]
		switch {
		case tagsCreate:
			if err := a.tags.CreateTag(name); err != nil {
				return fmt.Errorf("failed to create tag: %w", err)
			}
			fmt.Printf("✓ Created tag '%s'\n", name)
			return nil
		case tagsRename != "":
			if err := a.tags.RenameTag(name, tagsRename); err != nil {
				return fmt.Errorf("failed to rename tag: %w", err)
			}
			fmt.Printf("✓ Renamed tag '%s' → '%s'\n", name, tagsRename)
			return nil
		case tagsDelete:
			if err := a.tags.DeleteTag(name); err != nil {
				return fmt.Errorf("failed to delete tag: %w", err)
			}
			fmt.Printf("✓ Deleted tag '%s'\n", name)
			return nil
		case tagsMergeInto != "":
			if err := a.tags.MergeTags(name, tagsMergeInto); err != nil {
				return fmt.Errorf("failed to merge tags: %w", err)
			}
			fmt.Printf("✓ Merged tag '%s' into '%s'\n", name, tagsMergeInto)
			return nil
		}
		return showTag(a, name)
	}

	tags, err := a.tags.ListTags()
	if err != nil {
		return err
	}

	if len(tags) == 0 {
		fmt.Println("No tags found")
		return nil
	}

	if done, err := printEncoded(tags, tagsJSON, tagsToon); done {
		return err
	}

	fmt.Printf("Found %d tag(s):\n\n", len(tags))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeader([]string{"Tag", "Snapshots"})
	for _, t := range tags {
		table.Append([]string{t.Tag, strconv.Itoa(t.Count)})
	}
	table.Render()

	if def, ok := a.tags.DefaultTag(); ok {
		fmt.Printf("\nDefault tag for save: %s\n", def)
	}

	return nil
}

// showTag prints the members of one tag, newest first
func showTag(a *app, name string) error {
	members, err := a.tags.Members(name)
	if err != nil {
		return err
	}

	if done, err := printEncoded(members, tagsJSON, tagsToon); done {
		return err
	}

	if len(members) == 0 {
		fmt.Printf("Tag '%s' has no snapshots\n", name)
		return nil
	}
	fmt.Printf("Tag '%s' (%d snapshot(s)):\n\n", name, len(members))
	for _, id := range members {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
