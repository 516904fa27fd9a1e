package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable writes rows in aligned columns.
func printTable(header []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, col := range header {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

type itemRow struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	MediaKind   string `json:"mediaKind"`
	DisplayName string `json:"displayName"`
	Note        string `json:"note"`
	CreatedAt   string `json:"createdAt"`
	IsFavorite  bool   `json:"isFavorite"`
	DeletedAt   string `json:"deletedAt"`
}

func printItems(items []itemRow, withDeleted bool) {
	header := []string{"ID", "CATEGORY", "KIND", "NAME", "FAV", "CREATED"}
	if withDeleted {
		header = append(header, "DELETED")
	}
	rows := make([][]string, len(items))
	for i, it := range items {
		fav := ""
		if it.IsFavorite {
			fav = "*"
		}
		row := []string{
			fmt.Sprint(it.ID), it.Category, it.MediaKind, it.DisplayName, fav, it.CreatedAt,
		}
		if withDeleted {
			row = append(row, it.DeletedAt)
		}
		rows[i] = row
	}
	printTable(header, rows)
}
