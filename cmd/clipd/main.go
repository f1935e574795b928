package main

import (
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
        _ _           _
   ___ | (_) _ __    | |
  / __|| | || '_ \  _| |
 | (__ | | || |_) |/ _| |
  \___||_|_|| .__/ \__,_|
            |_|

  Clipboard history daemon

  Usage: clipd daemon             run the daemon
         clipd <command> [args]   talk to a running daemon
         clipd --help             full command list`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	app := newCLIApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
