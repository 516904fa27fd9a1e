package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show category counts for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := resolvedOwner()
		if owner <= 0 {
			return fmt.Errorf("owner id required (--owner or ARCHIVE_OWNER_ID)")
		}

		var resp struct {
			Categories []struct {
				Name  string `json:"name"`
				Label string `json:"label"`
				Count int64  `json:"count"`
			} `json:"categories"`
		}
		if err := newClient().getJSON(fmt.Sprintf("/api/v1/categories?ownerId=%d", owner), &resp); err != nil {
			return err
		}

		if outputFmt == "json" {
			return printJSON(resp)
		}
		rows := make([][]string, len(resp.Categories))
		for i, c := range resp.Categories {
			rows[i] = []string{c.Name, fmt.Sprint(c.Count)}
		}
		printTable([]string{"CATEGORY", "ITEMS"}, rows)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search an owner's archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := resolvedOwner()
		if owner <= 0 {
			return fmt.Errorf("owner id required (--owner or ARCHIVE_OWNER_ID)")
		}

		var resp struct {
			Items []itemRow `json:"items"`
		}
		path := fmt.Sprintf("/api/v1/search?ownerId=%d&q=%s", owner, url.QueryEscape(args[0]))
		if err := newClient().getJSON(path, &resp); err != nil {
			return err
		}

		if outputFmt == "json" {
			return printJSON(resp)
		}
		printItems(resp.Items, false)
		return nil
	},
}
