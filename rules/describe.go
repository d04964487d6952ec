package rules

import (
	"errors"
	"fmt"

	"github.com/brensch/gridsnake/game"
)

// Describe is the player-facing line for a move result. Moved returns "".
func Describe(out Outcome, err error, s *game.GameState) string {
	switch out {
	case OutcomeIgnored:
		return "Invalid direction. Use w/a/s/d."
	case OutcomeRejected:
		return "Can't reverse direction!"
	case OutcomeAte:
		if errors.Is(err, ErrBoardFull) {
			return "The snake fills the board. You win!"
		}
		return fmt.Sprintf("Yum! Score %d.", s.Score)
	case OutcomeGameOver:
		if s.Cause == game.CauseSelf {
			return "You ran into yourself! Game Over!"
		}
		return "You hit a wall! Game Over!"
	}
	return ""
}
