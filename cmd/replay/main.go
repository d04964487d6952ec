// Command replay re-runs an archived game through the engine and prints
// every board, checking each step against the archive.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/replay"
)

func main() {
	path := flag.String("file", "", "Parquet archive to read (required)")
	gameID := flag.String("game", "", "Game ID within the archive (default: first game)")
	final := flag.Bool("final", false, "Print only the final board")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	frames, err := replay.File(*path, *gameID)
	if !*final {
		for _, f := range frames {
			printFrame(f)
		}
	} else if n := len(frames); n > 0 {
		printFrame(frames[n-1])
	}
	if n := len(frames); n > 0 {
		fmt.Println(frames[n-1].State.HistoryString())
	}

	if err != nil {
		if errors.Is(err, replay.ErrDiverged) {
			fmt.Fprintln(os.Stderr, "replay: archive does not match the engine:", err)
		} else {
			fmt.Fprintln(os.Stderr, "replay:", err)
		}
		os.Exit(1)
	}
}

func printFrame(f replay.Frame) {
	if f.Direction == game.None {
		fmt.Printf("== %s (start)\n", f.State.ID)
	} else {
		fmt.Printf("== seq %d: %s (%s)\n", f.Seq, f.Direction, f.Outcome)
	}
	fmt.Print(f.State.Render())
	fmt.Print(f.State.Summary())
	fmt.Println()
}
