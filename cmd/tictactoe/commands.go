package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/DoyleJ11/tictactoe-server/internal/client"
	"github.com/DoyleJ11/tictactoe-server/internal/rpc"
	"github.com/urfave/cli/v3"
)

func out(cmd *cli.Command) io.Writer { return cmd.Root().Writer }

func dial(cmd *cli.Command) (*rpc.Client, error) {
	c, err := rpc.Dial(cmd.String("addr"))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cmd.String("addr"), err)
	}
	return c, nil
}

func playerName(cmd *cli.Command) (string, error) {
	name := strings.TrimSpace(cmd.String("name"))
	if name == "" {
		return "", errors.New("--name is required")
	}
	return name, nil
}

func gameIDArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", errors.New("missing <game-id>")
	}
	return id, nil
}

func createAction(ctx context.Context, cmd *cli.Command) error {
	name, err := playerName(cmd)
	if err != nil {
		return err
	}
	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.CreateGame(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Created game %s as %s\n", resp.GameID, resp.YourSymbol)
	return nil
}

func stateAction(ctx context.Context, cmd *cli.Command) error {
	id, err := gameIDArg(cmd)
	if err != nil {
		return err
	}
	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	state, err := c.GetState(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(out(cmd), client.Render(state))
	return nil
}

func moveAction(ctx context.Context, cmd *cli.Command) error {
	name, err := playerName(cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() != 3 {
		return errors.New("usage: move <game-id> <row> <col>")
	}
	row, col, err := parseCell(cmd.Args().Get(1), cmd.Args().Get(2))
	if err != nil {
		return err
	}
	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.MakeMove(ctx, cmd.Args().First(), name, row, col)
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New("Move failed: " + resp.Message)
	}
	fmt.Fprintln(out(cmd), resp.Message)
	return nil
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	name, err := playerName(cmd)
	if err != nil {
		return err
	}
	id, err := gameIDArg(cmd)
	if err != nil {
		return err
	}
	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	stream, err := c.JoinGame(ctx, id, name)
	if err != nil {
		return err
	}
	tracker := client.NewTracker(name)
	for {
		state, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out(cmd), "Stream closed")
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("stream error: %w", err)
		}
		fmt.Fprint(out(cmd), client.Render(state))
		if res := tracker.Update(state); res != nil {
			fmt.Fprintf(out(cmd), "Game Over: %s %s\n", res.Message, res.Detail)
		}
	}
}

func playAction(ctx context.Context, cmd *cli.Command) error {
	name, err := playerName(cmd)
	if err != nil {
		return err
	}
	api, err := dial(cmd)
	if err != nil {
		return err
	}
	ctrl := client.NewController(api, nil)
	defer ctrl.Close()

	gameID := strings.TrimSpace(cmd.Args().First())
	if gameID == "" {
		err = ctrl.Create(name)
	} else {
		err = ctrl.Join(gameID, name)
	}
	if err != nil {
		return err
	}

	lines, stop := readLines(ctx, cmd.Root().Reader)
	defer stop()

	p := &player{w: out(cmd), ctrl: ctrl, tracker: client.NewTracker(name), gameID: gameID}
	fmt.Fprintln(out(cmd), `Enter moves as "row col" (0-2), or "q" to quit.`)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ctrl.Events():
			if !ok {
				return nil
			}
			if done := p.handle(ev); done {
				return nil
			}
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "q" {
				return nil
			}
			p.input(line)
		}
	}
}

// readLines scans r on its own goroutine. stop ends the goroutine once it is
// between reads; readers that can be closed are closed so a pending read
// returns too. A read parked on the terminal's stdin ends with the process.
func readLines(ctx context.Context, r io.Reader) (<-chan string, func()) {
	ctx, cancel := context.WithCancel(ctx)
	lines := make(chan string)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() {
		cancel()
		c, ok := r.(io.Closer)
		if !ok || r == os.Stdin {
			return
		}
		_ = c.Close()
		<-exited
	}
	return lines, stop
}

// player is the interactive loop's state. Only the loop goroutine touches it.
type player struct {
	w       io.Writer
	ctrl    *client.Controller
	tracker *client.Tracker
	gameID  string
}

func (p *player) handle(ev client.Event) bool {
	switch ev.Kind {
	case client.EventCreated:
		p.gameID = ev.Created.GameID
		p.tracker.SetSymbol(ev.Created.YourSymbol)
		fmt.Fprintf(p.w, "Created game %s as %s\n", p.gameID, ev.Created.YourSymbol)
	case client.EventState:
		fmt.Fprint(p.w, client.Render(ev.State))
		if res := p.tracker.Update(ev.State); res != nil {
			fmt.Fprintf(p.w, "Game Over: %s %s\n", res.Message, res.Detail)
		} else if p.tracker.MyTurn() {
			fmt.Fprintln(p.w, "Your turn.")
		}
	case client.EventMoveResult:
		if !ev.Move.OK {
			fmt.Fprintf(p.w, "Move failed: %s\n", ev.Move.Message)
		}
	case client.EventStreamClosed:
		if ev.Err != nil {
			fmt.Fprintf(p.w, "Stream error: %v\n", ev.Err)
		} else {
			fmt.Fprintln(p.w, "Stream closed")
		}
		return true
	case client.EventError:
		fmt.Fprintf(p.w, "Error: %v\n", ev.Err)
		return p.tracker.Latest() == nil
	}
	return false
}

func (p *player) input(line string) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		fmt.Fprintln(p.w, `Enter "row col"`)
		return
	}
	row, col, err := parseCell(fields[0], fields[1])
	if err != nil {
		fmt.Fprintln(p.w, err)
		return
	}
	if err := p.tracker.CanMove(row*3 + col); err != nil {
		fmt.Fprintln(p.w, err)
		return
	}
	if err := p.ctrl.Move(p.gameID, p.tracker.Name(), row, col); err != nil {
		fmt.Fprintln(p.w, err)
	}
}

func parseCell(rowArg, colArg string) (int, int, error) {
	row, err := strconv.Atoi(rowArg)
	if err != nil || row < 0 || row > 2 {
		return 0, 0, fmt.Errorf("row must be 0, 1 or 2, got %q", rowArg)
	}
	col, err := strconv.Atoi(colArg)
	if err != nil || col < 0 || col > 2 {
		return 0, 0, fmt.Errorf("col must be 0, 1 or 2, got %q", colArg)
	}
	return row, col, nil
}
