package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	ownerFlag int64
	adminRole bool
)

var rootCmd = &cobra.Command{
	Use:   "archivectl",
	Short: "CLI for the archive server",
	Long: `archivectl is an administrative CLI for the archive server.

It talks to the server's HTTP API: category statistics, search, the trash
view, retention purges, and snapshot management. Administrative commands
(purge, snapshot) send the admin role header; the server trusts the caller
to have resolved the role.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Archive server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().Int64Var(&ownerFlag, "owner", 0, "Owner id (default: from ARCHIVE_OWNER_ID env)")
	rootCmd.PersistentFlags().BoolVar(&adminRole, "admin", false, "Send the administrator role header")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// resolvedOwner returns the effective owner id.
// Priority: --owner flag > ARCHIVE_OWNER_ID env var.
func resolvedOwner() int64 {
	if ownerFlag > 0 {
		return ownerFlag
	}
	if v := os.Getenv("ARCHIVE_OWNER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
