package game

import "strings"

// Direction is a move input. None marks an unrecognised token.
type Direction uint8

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

var directionDeltas = [...]Point{
	None:  {},
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

// Delta is the unit vector for d. None maps to (0,0).
func (d Direction) Delta() Point {
	if int(d) >= len(directionDeltas) {
		return Point{}
	}
	return directionDeltas[d]
}

// Opposite returns the reverse heading; None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return None
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Rune is the keyboard letter used for d in move logs.
func (d Direction) Rune() rune {
	switch d {
	case Up:
		return 'w'
	case Down:
		return 's'
	case Left:
		return 'a'
	case Right:
		return 'd'
	default:
		return '?'
	}
}

// ParseDirection maps an input token to a Direction.
// Accepts w/a/s/d, up/down/left/right and the arrow key names bubbletea
// reports. Anything else is None.
func ParseDirection(token string) Direction {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "w", "up", "k":
		return Up
	case "s", "down", "j":
		return Down
	case "a", "left", "h":
		return Left
	case "d", "right", "l":
		return Right
	default:
		return None
	}
}

// IsQuit reports whether token asks the driver to stop.
func IsQuit(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "q", "quit", "esc", "ctrl+c":
		return true
	}
	return false
}
