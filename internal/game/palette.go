package game

// Wheel slice colors, assigned by join order and cycled when a round has
// more participants than the palette.
var colors = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#96CEB4",
	"#FFEAA7",
	"#DDA0DD",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E9",
	"#F8C471",
	"#82E0AA",
	"#F1948A",
	"#85929E",
	"#D7BDE2",
}

func ColorFor(positionIndex int) string {
	if positionIndex < 0 {
		positionIndex = 0
	}
	return colors[positionIndex%len(colors)]
}
