package types

// PositionedTextInstruction places one literal string on a page of the
// template. Coordinates are PDF points with the origin at the bottom-left of
// a US Letter page. Page is zero-based.
type PositionedTextInstruction struct {
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold,omitempty"`
	// MaxWidth enables greedy word-wrap when set.
	MaxWidth *float64 `json:"max_width,omitempty"`
}

// MaxPage returns the highest page index referenced by instructions, or -1
// when the list is empty.
func MaxPage(instructions []PositionedTextInstruction) int {
	maxPage := -1
	for _, in := range instructions {
		if in.Page > maxPage {
			maxPage = in.Page
		}
	}
	return maxPage
}
