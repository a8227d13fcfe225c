package rpc

import (
	"context"

	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"google.golang.org/grpc"
)

// handler adapts service.Service to the generated-style server interface.
type handler struct {
	UnimplementedTicTacToeServer
	svc *service.Service
}

func (h *handler) CreateGame(ctx context.Context, req *types.CreateRequest) (*types.CreateResponse, error) {
	resp, err := h.svc.CreateGame(ctx, req)
	return resp, ToStatus(err)
}

func (h *handler) GetState(ctx context.Context, req *types.StateRequest) (*types.GameState, error) {
	state, err := h.svc.GetState(ctx, req)
	return state, ToStatus(err)
}

func (h *handler) MakeMove(ctx context.Context, req *types.MoveRequest) (*types.MoveResponse, error) {
	resp, err := h.svc.MakeMove(ctx, req)
	return resp, ToStatus(err)
}

// JoinGame keeps the stream open until the client goes away or the game is
// torn down. A failed Send ends the subscription on the server side only.
func (h *handler) JoinGame(req *types.JoinRequest, stream grpc.ServerStreamingServer[types.GameState]) error {
	return ToStatus(h.svc.JoinGame(stream.Context(), req, stream.Send))
}
