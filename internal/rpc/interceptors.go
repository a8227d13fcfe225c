package rpc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader carries a caller-supplied correlation id. The server
// generates one when it is missing and echoes it in the response header.
const RequestIDHeader = "x-tictactoe-request-id"

type contextKey string

const requestIDKey contextKey = "tictactoe-request-id"

// RequestIDFromContext returns the request id stored by the interceptors.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func UnaryServerInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, requestID := ensureRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(log, info.FullMethod, requestID, start, err)
		return resp, err
	}
}

func StreamServerInterceptor(log *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, requestID := ensureRequestID(stream.Context())
		_ = stream.SetHeader(metadata.Pairs(RequestIDHeader, requestID))

		start := time.Now()
		err := handler(srv, &wrappedServerStream{ServerStream: stream, ctx: ctx})
		logCall(log, info.FullMethod, requestID, start, err)
		return err
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context { return w.ctx }

func ensureRequestID(ctx context.Context) (context.Context, string) {
	var requestID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RequestIDHeader); len(vals) > 0 {
			requestID = strings.TrimSpace(vals[0])
		}
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, requestID), requestID
}

func logCall(log *zap.Logger, method, requestID string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("request_id", requestID),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", time.Since(start)),
	}
	if st, ok := status.FromError(err); ok && err != nil {
		fields = append(fields, zap.String("error", st.Message()))
	}
	log.Info("grpc call", fields...)
}
