package main

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/unilib/archivestore/pkg/archive"
	"github.com/unilib/archivestore/pkg/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage store snapshots (admin)",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a snapshot of the live store",
	RunE: func(cmd *cobra.Command, args []string) error {
		var handle struct {
			Path      string `json:"path"`
			CreatedAt string `json:"createdAt"`
		}
		if err := newClient().postJSON("/api/v1/admin/snapshots", nil, &handle); err != nil {
			return err
		}
		fmt.Printf("snapshot created: %s (%s)\n", handle.Path, handle.CreatedAt)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Snapshots []struct {
				Path      string `json:"path"`
				CreatedAt string `json:"createdAt"`
			} `json:"snapshots"`
		}
		if err := newClient().getJSON("/api/v1/admin/snapshots", &resp); err != nil {
			return err
		}

		if outputFmt == "json" {
			return printJSON(resp)
		}
		rows := make([][]string, len(resp.Snapshots))
		for i, s := range resp.Snapshots {
			rows[i] = []string{s.Path, s.CreatedAt}
		}
		printTable([]string{"PATH", "CREATED"}, rows)
		return nil
	},
}

// snapshotRestoreCmd operates on files directly: restoring is a full
// substitution of the live store and must run while the server is down.
// After the copy it opens the restored store and re-runs the dedup index
// consistency check before declaring success.
var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot-path>",
	Short: "Replace the store file with a snapshot (server must be stopped)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			return fmt.Errorf("--db is required")
		}

		if err := snapshot.RestoreFile(args[0], dbPath); err != nil {
			return err
		}

		db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return fmt.Errorf("open restored store: %w", err)
		}
		store := archive.NewArchiveStore(db, 0)
		if err := store.CheckConsistency(); err != nil {
			return fmt.Errorf("restored store failed consistency check: %w", err)
		}

		fmt.Printf("store restored from %s\n", args[0])
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotRestoreCmd.Flags().String("db", "", "Path to the live store file")
}
