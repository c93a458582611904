package dom

// highlightPalette cycles per highlight index.
var highlightPalette = []string{
	"#FF0000", "#00A000", "#0000FF", "#FFA500", "#800080", "#008080",
	"#FF69B4", "#4B0082", "#FF4500", "#2E8B57", "#DC143C", "#4682B4",
}

// FocusColor marks the focused highlight index.
const FocusColor = "#FFD400"

// HighlightColor returns the overlay color for a highlight index.
func HighlightColor(index int, focused bool) string {
	if focused {
		return FocusColor
	}
	if index < 0 {
		index = -index
	}
	return highlightPalette[index%len(highlightPalette)]
}
