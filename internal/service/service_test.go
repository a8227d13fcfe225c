package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/archive"
	"github.com/DoyleJ11/tictactoe-server/internal/engine"
	"github.com/DoyleJ11/tictactoe-server/internal/hub"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func newService(t *testing.T, opts hub.Options) (*Service, *hub.Hub, *archive.Memory) {
	t.Helper()
	store := archive.NewMemory()
	if opts.Archive == nil {
		opts.Archive = store
	}
	h := hub.NewHub(context.Background(), opts)
	t.Cleanup(h.Shutdown)
	return New(h, store, nil), h, store
}

func create(t *testing.T, svc *Service, host string) string {
	t.Helper()
	resp, err := svc.CreateGame(context.Background(), &types.CreateRequest{PlayerName: host})
	require.NoError(t, err)
	return resp.GameID
}

func move(t *testing.T, svc *Service, id, player string, row, col int32) *types.MoveResponse {
	t.Helper()
	resp, err := svc.MakeMove(context.Background(), &types.MoveRequest{GameID: id, PlayerName: player, Row: row, Col: col})
	require.NoError(t, err)
	return resp
}

// stream runs JoinGame in the background and collects every pushed state.
type stream struct {
	states chan *types.GameState
	result chan error
	cancel context.CancelFunc
}

func join(t *testing.T, svc *Service, id, player string) *stream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{states: make(chan *types.GameState, 32), result: make(chan error, 1), cancel: cancel}
	go func() {
		st.result <- svc.JoinGame(ctx, &types.JoinRequest{GameID: id, PlayerName: player}, func(g *types.GameState) error {
			st.states <- g
			return nil
		})
	}()
	t.Cleanup(cancel)
	return st
}

func (st *stream) next(t *testing.T) *types.GameState {
	t.Helper()
	select {
	case g := <-st.states:
		return g
	case err := <-st.result:
		t.Fatalf("stream ended early: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
	return nil
}

func (st *stream) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-st.result:
		return err
	case <-time.After(time.Second):
		t.Fatal("stream did not end")
	}
	return nil
}

func TestCreateGame(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})

	resp, err := svc.CreateGame(context.Background(), &types.CreateRequest{PlayerName: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.GameID)
	assert.Equal(t, "X", resp.YourSymbol)

	state, err := svc.GetState(context.Background(), &types.StateRequest{GameID: resp.GameID})
	require.NoError(t, err)
	assert.Equal(t, "WAITING", state.Status)
	assert.Equal(t, []types.Player{{Name: "Alice", Symbol: "X"}}, state.Players)
	assert.Equal(t, make([]string, engine.Cells), state.Board)
	assert.EqualValues(t, 0, state.Version)
}

func TestMalformedRequests(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	ctx := context.Background()

	_, err := svc.CreateGame(ctx, &types.CreateRequest{PlayerName: "   "})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	_, err = svc.GetState(ctx, &types.StateRequest{})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	_, err = svc.MakeMove(ctx, &types.MoveRequest{GameID: "x"})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	err = svc.JoinGame(ctx, &types.JoinRequest{PlayerName: "Bob"}, func(*types.GameState) error { return nil })
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func TestGetState_UnknownGame(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	_, err := svc.GetState(context.Background(), &types.StateRequest{GameID: "nope"})
	require.Error(t, err)
	assert.Equal(t, CodeSessionNotFound, CodeOf(err))
	assert.Equal(t, codes.NotFound, CodeOf(err).GRPCCode())
}

func TestMakeMove_XWins(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	id := create(t, svc, "Alice")
	bob := join(t, svc, id, "Bob")
	first := bob.next(t)
	assert.Equal(t, "IN_PROGRESS", first.Status)
	assert.Equal(t, "O", first.SymbolOf("Bob"))

	for _, m := range []struct {
		p        string
		row, col int32
	}{{"Alice", 0, 0}, {"Bob", 1, 0}, {"Alice", 0, 1}, {"Bob", 1, 1}, {"Alice", 0, 2}} {
		resp := move(t, svc, id, m.p, m.row, m.col)
		require.True(t, resp.OK, resp.Message)
		assert.Equal(t, "Move accepted", resp.Message)
	}

	state, err := svc.GetState(context.Background(), &types.StateRequest{GameID: id})
	require.NoError(t, err)
	assert.Equal(t, "X_WON", state.Status)
	assert.Equal(t, []string{"X", "X", "X", "O", "O", "", "", "", ""}, state.Board)

	resp := move(t, svc, id, "Bob", 2, 2)
	assert.False(t, resp.OK)
	assert.Equal(t, "Game not in progress", resp.Message)
}

func TestMakeMove_Rejections(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	id := create(t, svc, "Alice")

	resp := move(t, svc, id, "Alice", 0, 0)
	assert.False(t, resp.OK)
	assert.Equal(t, "Game not in progress", resp.Message, "still waiting for an opponent")

	join(t, svc, id, "Bob").next(t)

	cases := []struct {
		name     string
		player   string
		row, col int32
		want     string
	}{
		{"wrong turn", "Bob", 0, 0, "Not your turn"},
		{"stranger", "Mallory", 0, 0, "Player not in game"},
		{"off board", "Alice", 3, 0, "Invalid move"},
		{"negative", "Alice", 0, -1, "Invalid move"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := move(t, svc, id, tc.player, tc.row, tc.col)
			assert.False(t, resp.OK)
			assert.Equal(t, tc.want, resp.Message)
		})
	}

	require.True(t, move(t, svc, id, "Alice", 1, 1).OK)
	resp = move(t, svc, id, "Bob", 1, 1)
	assert.False(t, resp.OK)
	assert.Equal(t, "Invalid move", resp.Message)

	state, err := svc.GetState(context.Background(), &types.StateRequest{GameID: id})
	require.NoError(t, err)
	assert.EqualValues(t, 2, state.Version, "rejections never bump the version")
}

func TestMakeMove_UnknownGame(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	resp := move(t, svc, "missing", "Alice", 0, 0)
	assert.False(t, resp.OK)
	assert.Equal(t, "Game not found", resp.Message)
}

func TestJoinGame_Errors(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	id := create(t, svc, "Alice")
	join(t, svc, id, "Bob").next(t)

	noop := func(*types.GameState) error { return nil }
	err := svc.JoinGame(context.Background(), &types.JoinRequest{GameID: id, PlayerName: "Carol"}, noop)
	assert.Equal(t, CodeSessionFull, CodeOf(err))

	err = svc.JoinGame(context.Background(), &types.JoinRequest{GameID: "missing", PlayerName: "Carol"}, noop)
	assert.Equal(t, CodeSessionNotFound, CodeOf(err))
}

func TestJoinGame_HostRejoins(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	id := create(t, svc, "Alice")

	alice := join(t, svc, id, "Alice")
	first := alice.next(t)
	assert.Equal(t, "WAITING", first.Status)
	assert.Len(t, first.Players, 1, "rejoining does not add a seat")

	join(t, svc, id, "Bob")
	second := alice.next(t)
	assert.Equal(t, "IN_PROGRESS", second.Status)
	assert.EqualValues(t, first.Version+1, second.Version)
}

func TestJoinGame_PushesEveryVersionInOrder(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	id := create(t, svc, "Alice")
	alice := join(t, svc, id, "Alice")
	alice.next(t)
	bob := join(t, svc, id, "Bob")
	bob.next(t)
	alice.next(t)

	moves := []struct {
		p        string
		row, col int32
	}{{"Alice", 0, 0}, {"Bob", 1, 1}, {"Alice", 2, 2}}
	for _, m := range moves {
		require.True(t, move(t, svc, id, m.p, m.row, m.col).OK)
	}
	for _, st := range []*stream{alice, bob} {
		for want := int64(2); want <= 4; want++ {
			assert.Equal(t, want, st.next(t).Version)
		}
	}
}

func TestJoinGame_EndsOnCancel(t *testing.T) {
	svc, h, _ := newService(t, hub.Options{Policy: session.Policy{FinishedIdle: 0}})
	id := create(t, svc, "Alice")
	alice := join(t, svc, id, "Alice")
	alice.next(t)

	alice.cancel()
	require.NoError(t, alice.wait(t))

	// the subscription was released, so the session is free to retire once over
	sess, err := h.Get(context.Background(), id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		retired, err := sess.Retire(context.Background(), session.Policy{AbandonedIdle: time.Nanosecond})
		return err == nil && retired
	}, time.Second, 10*time.Millisecond)
}

func TestJoinGame_SendFailureEndsStream(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{})
	id := create(t, svc, "Alice")

	err := svc.JoinGame(context.Background(), &types.JoinRequest{GameID: id, PlayerName: "Alice"}, func(*types.GameState) error {
		return errors.New("broken pipe")
	})
	assert.NoError(t, err)
}

func TestJoinGame_SlowSubscriberIsDropped(t *testing.T) {
	svc, _, _ := newService(t, hub.Options{Session: session.Options{SubscriberBuffer: 1}})
	id := create(t, svc, "Alice")

	blocked := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)
	var once sync.Once
	go func() {
		result <- svc.JoinGame(context.Background(), &types.JoinRequest{GameID: id, PlayerName: "Bob"}, func(*types.GameState) error {
			once.Do(func() {
				close(blocked)
				<-release
			})
			return nil
		})
	}()

	<-blocked
	require.True(t, move(t, svc, id, "Alice", 0, 0).OK)
	require.True(t, move(t, svc, id, "Bob", 1, 1).OK)
	close(release)

	select {
	case err := <-result:
		assert.Equal(t, CodeSubscriberTooSlow, CodeOf(err))
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not dropped")
	}
}

func TestGetState_FallsBackToArchive(t *testing.T) {
	svc, h, store := newService(t, hub.Options{Policy: session.Policy{FinishedIdle: 0}})
	id := create(t, svc, "Alice")
	bob := join(t, svc, id, "Bob")
	bob.next(t)
	for _, m := range []struct {
		p        string
		row, col int32
	}{{"Alice", 0, 0}, {"Bob", 1, 0}, {"Alice", 0, 1}, {"Bob", 1, 1}, {"Alice", 0, 2}} {
		require.True(t, move(t, svc, id, m.p, m.row, m.col).OK)
	}
	bob.cancel()
	require.NoError(t, bob.wait(t))

	require.Eventually(t, func() bool {
		n, err := h.Reap(context.Background())
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)

	_, err := store.Load(context.Background(), id)
	require.NoError(t, err)

	state, err := svc.GetState(context.Background(), &types.StateRequest{GameID: id})
	require.NoError(t, err)
	assert.Equal(t, "X_WON", state.Status)
	assert.EqualValues(t, 6, state.Version)

	resp := move(t, svc, id, "Bob", 2, 2)
	assert.False(t, resp.OK)
	assert.Equal(t, "Game not found", resp.Message)
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		code Code
		grpc codes.Code
		http int
	}{
		{engine.ErrInvalidMove, CodeInvalidMove, codes.InvalidArgument, http.StatusBadRequest},
		{session.ErrNotYourTurn, CodeNotYourTurn, codes.FailedPrecondition, http.StatusConflict},
		{session.ErrSessionFull, CodeSessionFull, codes.FailedPrecondition, http.StatusConflict},
		{session.ErrDuplicateName, CodeDuplicateName, codes.AlreadyExists, http.StatusConflict},
		{session.ErrUnknownPlayer, CodeUnknownPlayer, codes.PermissionDenied, http.StatusForbidden},
		{hub.ErrSessionNotFound, CodeSessionNotFound, codes.NotFound, http.StatusNotFound},
		{session.ErrClosed, CodeSessionNotFound, codes.NotFound, http.StatusNotFound},
		{session.ErrSlowSubscriber, CodeSubscriberTooSlow, codes.ResourceExhausted, http.StatusTooManyRequests},
		{hub.ErrHubClosed, CodeUnavailable, codes.Unavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), CodeInternal, codes.Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			code := CodeOf(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.grpc, code.GRPCCode())
			assert.Equal(t, tc.http, code.HTTPStatus())
		})
	}

	wrapped := AsError(session.ErrNotYourTurn)
	assert.ErrorIs(t, wrapped, session.ErrNotYourTurn)
	assert.Equal(t, "Not your turn", wrapped.Message)
}
