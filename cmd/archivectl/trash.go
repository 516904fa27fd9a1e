package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect and manage the trash",
}

var trashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an owner's trashed items",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := resolvedOwner()
		if owner <= 0 {
			return fmt.Errorf("owner id required (--owner or ARCHIVE_OWNER_ID)")
		}

		var resp struct {
			Items []itemRow `json:"items"`
		}
		if err := newClient().getJSON(fmt.Sprintf("/api/v1/trash?ownerId=%d", owner), &resp); err != nil {
			return err
		}

		if outputFmt == "json" {
			return printJSON(resp)
		}
		printItems(resp.Items, true)
		return nil
	},
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore <item-id>",
	Short: "Restore a trashed item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := resolvedOwner()
		if owner <= 0 {
			return fmt.Errorf("owner id required (--owner or ARCHIVE_OWNER_ID)")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}

		body := map[string]any{"ownerId": owner}
		if err := newClient().postJSON(fmt.Sprintf("/api/v1/items/%d/restore", id), body, nil); err != nil {
			return err
		}
		fmt.Printf("item #%d restored\n", id)
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Irreversibly remove expired trash (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		retentionDays, _ := cmd.Flags().GetInt("retention-days")

		body := map[string]any{}
		if owner := resolvedOwner(); owner > 0 {
			body["ownerId"] = owner
		}
		if retentionDays > 0 {
			body["retentionDays"] = retentionDays
		}

		var resp struct {
			Purged        int `json:"purged"`
			RetentionDays int `json:"retentionDays"`
		}
		if err := newClient().postJSON("/api/v1/admin/purge", body, &resp); err != nil {
			return err
		}
		fmt.Printf("purged %d items (retention %d days)\n", resp.Purged, resp.RetentionDays)
		return nil
	},
}

func init() {
	trashCmd.AddCommand(trashListCmd)
	trashCmd.AddCommand(trashRestoreCmd)
	purgeCmd.Flags().Int("retention-days", 0, "Override the configured retention horizon")
}
