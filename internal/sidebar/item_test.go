package sidebar

import "testing"

func TestNewRow(t *testing.T) {
	smile := "😀"
	empty := ""

	tests := []struct {
		name        string
		props       ItemProps
		wantIcon    string
		wantEmoji   bool
		wantChevron string
		wantPadding int
		wantHint    string
	}{
		{
			name:        "root document",
			props:       ItemProps{ID: "a", Label: "A"},
			wantIcon:    DefaultIcon,
			wantChevron: ChevronCollapsed,
			wantPadding: 12,
		},
		{
			name:        "expanded nested document with emoji",
			props:       ItemProps{ID: "a", Label: "A", DocumentIcon: &smile, Expanded: true, Level: 2},
			wantIcon:    smile,
			wantEmoji:   true,
			wantChevron: ChevronExpanded,
			wantPadding: 36,
		},
		{
			name:        "empty document icon falls back",
			props:       ItemProps{ID: "a", DocumentIcon: &empty, Icon: "page", Level: 1},
			wantIcon:    "page",
			wantChevron: ChevronCollapsed,
			wantPadding: 24,
		},
		{
			name:        "search action row",
			props:       ItemProps{Label: "Search", Icon: "search", IsSearch: true},
			wantIcon:    "search",
			wantPadding: 12,
			wantHint:    SearchShortcut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow(tt.props)
			if row.Icon != tt.wantIcon {
				t.Errorf("Icon = %q, want %q", row.Icon, tt.wantIcon)
			}
			if row.IsEmoji != tt.wantEmoji {
				t.Errorf("IsEmoji = %v, want %v", row.IsEmoji, tt.wantEmoji)
			}
			if row.Chevron != tt.wantChevron {
				t.Errorf("Chevron = %q, want %q", row.Chevron, tt.wantChevron)
			}
			if row.PaddingLeft != tt.wantPadding {
				t.Errorf("PaddingLeft = %d, want %d", row.PaddingLeft, tt.wantPadding)
			}
			if row.Shortcut != tt.wantHint {
				t.Errorf("Shortcut = %q, want %q", row.Shortcut, tt.wantHint)
			}
		})
	}
}

func TestRowCallbacks(t *testing.T) {
	var clicks, expands int
	row := NewRow(ItemProps{
		ID:       "a",
		OnClick:  func() { clicks++ },
		OnExpand: func() { expands++ },
	})

	row.Click()
	row.Expand()
	row.Expand()

	if clicks != 1 || expands != 2 {
		t.Fatalf("clicks=%d expands=%d, want 1 and 2", clicks, expands)
	}

	// A row without callbacks is inert.
	NewRow(ItemProps{Label: "Settings"}).Click()
}
