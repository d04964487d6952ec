// Command snakeclient plays against a snakeserver from a plain terminal:
// type a direction and press enter.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/server"
)

func main() {
	url := flag.String("url", config.GetEnvOrDefault("SNAKE_URL", "ws://localhost:8080/play"), "Server /play websocket URL")
	timeout := flag.Duration("timeout", config.GetEnvDurationOrDefault("SNAKE_TIMEOUT", 10*time.Second), "Connect and read timeout")
	flag.Parse()

	c, frame, err := server.Dial(context.Background(), *url, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snakeclient:", err)
		os.Exit(1)
	}
	defer c.Close()

	show(frame)
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Move (w/a/s/d, new, q): ")
		if !in.Scan() {
			return
		}
		token := in.Text()
		if game.IsQuit(token) {
			return
		}
		frame, err = c.Play(token)
		if err != nil {
			fmt.Fprintln(os.Stderr, "snakeclient:", err)
			os.Exit(1)
		}
		show(frame)
	}
}

func show(f server.Frame) {
	s := f.State()
	fmt.Print(s.Render())
	fmt.Print(s.Summary())
	if f.Message != "" {
		fmt.Println(f.Message)
	}
	if f.Moves != "" {
		fmt.Println(f.Moves)
		fmt.Println(`Type "new" to play again.`)
	}
}
