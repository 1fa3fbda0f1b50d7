package sidebar

const (
	// DefaultIcon is shown for rows whose document has no icon of its own.
	DefaultIcon = "file"

	ChevronExpanded  = "chevron-down"
	ChevronCollapsed = "chevron-right"

	// SearchShortcut is the hint rendered on the search row.
	SearchShortcut = "CTRL K"
)

// ItemProps are the inputs of a single sidebar row.
type ItemProps struct {
	ID           string
	Label        string
	DocumentIcon *string
	Icon         string // fallback when DocumentIcon is nil
	Active       bool
	Expanded     bool
	IsSearch     bool
	Level        int
	OnClick      func()
	OnExpand     func()
}

// Row is the rendered view of one sidebar entry. It holds no state of its own;
// Click and Expand only invoke the callbacks it was built with.
type Row struct {
	ID          string `json:"id,omitempty"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	IsEmoji     bool   `json:"is_emoji"`
	Active      bool   `json:"active"`
	Expanded    bool   `json:"expanded"`
	Chevron     string `json:"chevron,omitempty"`
	PaddingLeft int    `json:"padding_left"`
	Shortcut    string `json:"shortcut,omitempty"`

	onClick  func()
	onExpand func()
}

// NewRow renders props into a Row.
func NewRow(props ItemProps) Row {
	row := Row{
		ID:          props.ID,
		Label:       props.Label,
		Active:      props.Active,
		Expanded:    props.Expanded,
		PaddingLeft: rowPadding(props.Level),
		onClick:     props.OnClick,
		onExpand:    props.OnExpand,
	}

	switch {
	case props.DocumentIcon != nil && *props.DocumentIcon != "":
		row.Icon = *props.DocumentIcon
		row.IsEmoji = true
	case props.Icon != "":
		row.Icon = props.Icon
	default:
		row.Icon = DefaultIcon
	}

	// Only document rows can be expanded; action rows (search, settings) have no id.
	if props.ID != "" {
		row.Chevron = ChevronCollapsed
		if props.Expanded {
			row.Chevron = ChevronExpanded
		}
	}

	if props.IsSearch {
		row.Shortcut = SearchShortcut
	}

	return row
}

// Click invokes the row's click callback, if any.
func (r Row) Click() {
	if r.onClick != nil {
		r.onClick()
	}
}

// Expand invokes the row's expand callback, if any.
func (r Row) Expand() {
	if r.onExpand != nil {
		r.onExpand()
	}
}

func rowPadding(level int) int {
	if level > 0 {
		return level*12 + 12
	}
	return 12
}

func indicatorPadding(level int) int {
	return level*12 + 25
}
