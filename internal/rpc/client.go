package rpc

import (
	"context"
	"errors"
	"io"

	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOptions returns the standard options for talking to a TicTacToe server.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Client is a thin wrapper that converts gRPC statuses back into service
// errors.
type Client struct {
	conn *grpc.ClientConn
	api  TicTacToeClient
}

// Dial creates a client for addr. The connection is established lazily.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(addr, append(DialOptions(), opts...)...)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, api: NewTicTacToeClient(conn)}
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) CreateGame(ctx context.Context, playerName string) (*types.CreateResponse, error) {
	resp, err := c.api.CreateGame(ctx, &types.CreateRequest{PlayerName: playerName})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp, nil
}

func (c *Client) GetState(ctx context.Context, gameID string) (*types.GameState, error) {
	state, err := c.api.GetState(ctx, &types.StateRequest{GameID: gameID})
	if err != nil {
		return nil, FromStatus(err)
	}
	return state, nil
}

func (c *Client) MakeMove(ctx context.Context, gameID, playerName string, row, col int) (*types.MoveResponse, error) {
	resp, err := c.api.MakeMove(ctx, &types.MoveRequest{
		GameID:     gameID,
		PlayerName: playerName,
		Row:        int32(row),
		Col:        int32(col),
	})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp, nil
}

// GameStream yields pushed snapshots. Cancel the context passed to JoinGame
// to close it.
type GameStream struct {
	stream grpc.ServerStreamingClient[types.GameState]
}

func (c *Client) JoinGame(ctx context.Context, gameID, playerName string) (*GameStream, error) {
	stream, err := c.api.JoinGame(ctx, &types.JoinRequest{GameID: gameID, PlayerName: playerName})
	if err != nil {
		return nil, FromStatus(err)
	}
	return &GameStream{stream: stream}, nil
}

// Recv blocks for the next snapshot. It returns io.EOF when the server ends
// the stream normally.
func (s *GameStream) Recv() (*types.GameState, error) {
	state, err := s.stream.Recv()
	if err == nil {
		return state, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, FromStatus(err)
}
