package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "tictactoe",
		Usage: "play tic-tac-toe against another player over gRPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "localhost:50051",
				Usage:   "server address",
				Sources: cli.EnvVars("TICTACTOE_ADDR"),
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "your player name",
				Sources: cli.EnvVars("TICTACTOE_PLAYER"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "create a game and print its id",
				Action: createAction,
			},
			{
				Name:      "state",
				Usage:     "print the current state of a game",
				ArgsUsage: "<game-id>",
				Action:    stateAction,
			},
			{
				Name:      "move",
				Usage:     "place your symbol at row and col (0-2)",
				ArgsUsage: "<game-id> <row> <col>",
				Action:    moveAction,
			},
			{
				Name:      "watch",
				Usage:     "join a game and print every update",
				ArgsUsage: "<game-id>",
				Action:    watchAction,
			},
			{
				Name:      "play",
				Usage:     "play interactively; creates a game when no id is given",
				ArgsUsage: "[game-id]",
				Action:    playAction,
			},
		},
	}
}
