package rpc

import (
	"errors"

	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain tags the ErrorInfo detail attached to every service failure.
const ErrorDomain = "tictactoe"

// ToStatus converts a service failure into a gRPC status carrying the domain
// code as an ErrorInfo reason.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	e := service.AsError(err)
	st := status.New(e.Code.GRPCCode(), e.Message)
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(e.Code),
		Domain: ErrorDomain,
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FromStatus recovers the service error behind a gRPC failure. Statuses
// without an ErrorInfo detail keep their message and get a code derived from
// the gRPC code.
func FromStatus(err error) *service.Error {
	if err == nil {
		return nil
	}
	var se *service.Error
	if errors.As(err, &se) {
		return se
	}
	st, ok := status.FromError(err)
	if !ok {
		return &service.Error{Code: service.CodeInternal, Message: err.Error(), Err: err}
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return &service.Error{Code: service.Code(info.GetReason()), Message: st.Message(), Err: err}
		}
	}
	code := service.CodeInternal
	switch st.Code() {
	case codes.Canceled, codes.DeadlineExceeded:
		code = service.CodeCanceled
	case codes.Unavailable:
		code = service.CodeUnavailable
	case codes.NotFound:
		code = service.CodeSessionNotFound
	case codes.InvalidArgument:
		code = service.CodeInvalidArgument
	}
	return &service.Error{Code: code, Message: st.Message(), Err: err}
}
