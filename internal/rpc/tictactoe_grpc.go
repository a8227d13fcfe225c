package rpc

import (
	"context"

	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "tictactoe.TicTacToe"

const (
	TicTacToe_CreateGame_FullMethodName = "/tictactoe.TicTacToe/CreateGame"
	TicTacToe_GetState_FullMethodName   = "/tictactoe.TicTacToe/GetState"
	TicTacToe_JoinGame_FullMethodName   = "/tictactoe.TicTacToe/JoinGame"
	TicTacToe_MakeMove_FullMethodName   = "/tictactoe.TicTacToe/MakeMove"
)

// TicTacToeServer is the server API for the TicTacToe service.
type TicTacToeServer interface {
	CreateGame(context.Context, *types.CreateRequest) (*types.CreateResponse, error)
	GetState(context.Context, *types.StateRequest) (*types.GameState, error)
	JoinGame(*types.JoinRequest, grpc.ServerStreamingServer[types.GameState]) error
	MakeMove(context.Context, *types.MoveRequest) (*types.MoveResponse, error)
}

// UnimplementedTicTacToeServer can be embedded to have forward compatible
// implementations.
type UnimplementedTicTacToeServer struct{}

func (UnimplementedTicTacToeServer) CreateGame(context.Context, *types.CreateRequest) (*types.CreateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateGame not implemented")
}
func (UnimplementedTicTacToeServer) GetState(context.Context, *types.StateRequest) (*types.GameState, error) {
	return nil, status.Error(codes.Unimplemented, "method GetState not implemented")
}
func (UnimplementedTicTacToeServer) JoinGame(*types.JoinRequest, grpc.ServerStreamingServer[types.GameState]) error {
	return status.Error(codes.Unimplemented, "method JoinGame not implemented")
}
func (UnimplementedTicTacToeServer) MakeMove(context.Context, *types.MoveRequest) (*types.MoveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MakeMove not implemented")
}

func RegisterTicTacToeServer(s grpc.ServiceRegistrar, srv TicTacToeServer) {
	s.RegisterService(&TicTacToe_ServiceDesc, srv)
}

func _TicTacToe_CreateGame_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.CreateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TicTacToeServer).CreateGame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TicTacToe_CreateGame_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TicTacToeServer).CreateGame(ctx, req.(*types.CreateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TicTacToe_GetState_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.StateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TicTacToeServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TicTacToe_GetState_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TicTacToeServer).GetState(ctx, req.(*types.StateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TicTacToe_MakeMove_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.MoveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TicTacToeServer).MakeMove(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TicTacToe_MakeMove_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TicTacToeServer).MakeMove(ctx, req.(*types.MoveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TicTacToe_JoinGame_Handler(srv any, stream grpc.ServerStream) error {
	m := new(types.JoinRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TicTacToeServer).JoinGame(m, &grpc.GenericServerStream[types.JoinRequest, types.GameState]{ServerStream: stream})
}

// TicTacToe_ServiceDesc is the grpc.ServiceDesc for the TicTacToe service.
var TicTacToe_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TicTacToeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateGame", Handler: _TicTacToe_CreateGame_Handler},
		{MethodName: "GetState", Handler: _TicTacToe_GetState_Handler},
		{MethodName: "MakeMove", Handler: _TicTacToe_MakeMove_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "JoinGame",
			Handler:       _TicTacToe_JoinGame_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "tictactoe.proto",
}

// TicTacToeClient is the client API for the TicTacToe service. Connections
// must use the json content-subtype; see DialOptions.
type TicTacToeClient interface {
	CreateGame(ctx context.Context, in *types.CreateRequest, opts ...grpc.CallOption) (*types.CreateResponse, error)
	GetState(ctx context.Context, in *types.StateRequest, opts ...grpc.CallOption) (*types.GameState, error)
	JoinGame(ctx context.Context, in *types.JoinRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[types.GameState], error)
	MakeMove(ctx context.Context, in *types.MoveRequest, opts ...grpc.CallOption) (*types.MoveResponse, error)
}

type ticTacToeClient struct {
	cc grpc.ClientConnInterface
}

func NewTicTacToeClient(cc grpc.ClientConnInterface) TicTacToeClient {
	return &ticTacToeClient{cc}
}

func (c *ticTacToeClient) CreateGame(ctx context.Context, in *types.CreateRequest, opts ...grpc.CallOption) (*types.CreateResponse, error) {
	out := new(types.CreateResponse)
	if err := c.cc.Invoke(ctx, TicTacToe_CreateGame_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ticTacToeClient) GetState(ctx context.Context, in *types.StateRequest, opts ...grpc.CallOption) (*types.GameState, error) {
	out := new(types.GameState)
	if err := c.cc.Invoke(ctx, TicTacToe_GetState_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ticTacToeClient) MakeMove(ctx context.Context, in *types.MoveRequest, opts ...grpc.CallOption) (*types.MoveResponse, error) {
	out := new(types.MoveResponse)
	if err := c.cc.Invoke(ctx, TicTacToe_MakeMove_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ticTacToeClient) JoinGame(ctx context.Context, in *types.JoinRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[types.GameState], error) {
	stream, err := c.cc.NewStream(ctx, &TicTacToe_ServiceDesc.Streams[0], TicTacToe_JoinGame_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[types.JoinRequest, types.GameState]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
}
