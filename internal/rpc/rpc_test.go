package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/hub"
	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type testEnv struct {
	hub    *hub.Hub
	client *Client
	conn   *grpc.ClientConn
}

func startServer(t *testing.T) *testEnv {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	h := hub.NewHub(context.Background(), hub.Options{})
	srv := NewServer(service.New(h, nil, nil), nil)
	srv.StopTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet", append(DialOptions(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		h.Shutdown()
		cancel()
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("timeout waiting for server shutdown")
		}
	})
	return &testEnv{hub: h, client: NewClient(conn), conn: conn}
}

func recv(t *testing.T, s *GameStream) *types.GameState {
	t.Helper()
	type result struct {
		state *types.GameState
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		st, err := s.Recv()
		ch <- result{st, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pushed state")
	}
	return nil
}

func TestRPC_FullGame(t *testing.T) {
	env := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := env.client.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "X", created.YourSymbol)

	alice, err := env.client.JoinGame(ctx, created.GameID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "WAITING", recv(t, alice).Status)

	bob, err := env.client.JoinGame(ctx, created.GameID, "Bob")
	require.NoError(t, err)
	first := recv(t, bob)
	assert.Equal(t, "IN_PROGRESS", first.Status)
	assert.Equal(t, "O", first.SymbolOf("Bob"))
	assert.Equal(t, first.Version, recv(t, alice).Version)

	moves := []struct {
		p        string
		row, col int
	}{{"Alice", 0, 0}, {"Bob", 1, 0}, {"Alice", 0, 1}, {"Bob", 1, 1}, {"Alice", 0, 2}}
	for i, m := range moves {
		resp, err := env.client.MakeMove(ctx, created.GameID, m.p, m.row, m.col)
		require.NoError(t, err)
		require.True(t, resp.OK, resp.Message)

		want := first.Version + int64(i) + 1
		assert.Equal(t, want, recv(t, alice).Version)
		assert.Equal(t, want, recv(t, bob).Version)
	}

	state, err := env.client.GetState(ctx, created.GameID)
	require.NoError(t, err)
	assert.Equal(t, "X_WON", state.Status)
	assert.Equal(t, []string{"X", "X", "X", "O", "O", "", "", "", ""}, state.Board)

	resp, err := env.client.MakeMove(ctx, created.GameID, "Bob", 2, 2)
	require.NoError(t, err)
	assert.False(t, resp.OK)
}

func TestRPC_Errors(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()

	_, err := env.client.GetState(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, service.CodeSessionNotFound, FromStatus(err).Code)
	assert.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))

	_, err = env.client.CreateGame(ctx, "")
	assert.Equal(t, service.CodeInvalidArgument, FromStatus(err).Code)

	resp, err := env.client.MakeMove(ctx, "missing", "Alice", 0, 0)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "Game not found", resp.Message)

	created, err := env.client.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	bob, err := env.client.JoinGame(streamCtx, created.GameID, "Bob")
	require.NoError(t, err)
	recv(t, bob)

	carol, err := env.client.JoinGame(streamCtx, created.GameID, "Carol")
	require.NoError(t, err)
	_, err = carol.Recv()
	require.Error(t, err)
	assert.Equal(t, service.CodeSessionFull, FromStatus(err).Code)
}

func TestRPC_StreamEndsWhenSessionCloses(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()

	created, err := env.client.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	stream, err := env.client.JoinGame(ctx, created.GameID, "Alice")
	require.NoError(t, err)
	recv(t, stream)

	sess, err := env.hub.Get(ctx, created.GameID)
	require.NoError(t, err)
	sess.Shutdown()

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRPC_ClientCancelReleasesSubscriber(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()

	created, err := env.client.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := env.client.JoinGame(streamCtx, created.GameID, "Alice")
	require.NoError(t, err)
	recv(t, stream)
	cancel()

	sess, err := env.hub.Get(ctx, created.GameID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		retired, err := sess.Retire(ctx, session.Policy{AbandonedIdle: time.Nanosecond})
		return err == nil && retired
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRPC_RequestIDHeader(t *testing.T) {
	env := startServer(t)
	api := NewTicTacToeClient(env.conn)

	var header metadata.MD
	_, err := api.CreateGame(context.Background(), &types.CreateRequest{PlayerName: "Alice"}, grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(RequestIDHeader), 1)
	assert.NotEmpty(t, header.Get(RequestIDHeader)[0])

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDHeader, "req-123")
	_, err = api.CreateGame(ctx, &types.CreateRequest{PlayerName: "Bob"}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-123"}, header.Get(RequestIDHeader))
}

func TestRPC_Health(t *testing.T) {
	env := startServer(t)
	resp, err := grpc_health_v1.NewHealthClient(env.conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStatusRoundTrip(t *testing.T) {
	err := ToStatus(session.ErrNotYourTurn)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	back := FromStatus(err)
	assert.Equal(t, service.CodeNotYourTurn, back.Code)
	assert.Equal(t, "Not your turn", back.Message)

	plain := FromStatus(status.Error(codes.Unavailable, "down"))
	assert.Equal(t, service.CodeUnavailable, plain.Code)

	assert.NoError(t, ToStatus(nil))
	assert.Nil(t, FromStatus(nil))
}
