package main

import (
	"fmt"
	"strings"

	"zotion/internal/palette"
	"zotion/internal/sidebar"
)

func formatTree(view sidebar.View) string {
	var b strings.Builder
	for _, line := range view.Lines {
		indent := strings.Repeat("  ", line.Level)
		switch line.Kind {
		case sidebar.LineSkeleton:
			fmt.Fprintf(&b, "%s…\n", indent)
		case sidebar.LineEmpty:
			fmt.Fprintf(&b, "%s  (%s)\n", indent, line.Text)
		case sidebar.LineItem:
			row := line.Row
			marker := "▸"
			if row.Expanded {
				marker = "▾"
			}
			active := ""
			if row.Active {
				active = " *"
			}
			fmt.Fprintf(&b, "%s%s %s%s%s  %s\n", indent, marker, iconPrefix(row), row.Label, active, row.ID)
		}
	}
	return b.String()
}

func iconPrefix(row *sidebar.Row) string {
	if row.IsEmoji {
		return row.Icon + " "
	}
	return ""
}

func formatItems(state palette.State) string {
	if len(state.Items) == 0 {
		return state.Empty + "\n"
	}

	var b strings.Builder
	for _, item := range state.Items {
		icon := ""
		if item.Icon != nil && *item.Icon != "" {
			icon = *item.Icon + " "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", icon, item.Title, item.ID)
	}
	return b.String()
}

// resolved reports whether every mounted level has loaded.
func resolved(view sidebar.View) bool {
	for _, line := range view.Lines {
		if line.Kind == sidebar.LineSkeleton {
			return false
		}
	}
	return true
}
