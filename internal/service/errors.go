package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/DoyleJ11/tictactoe-server/internal/engine"
	"github.com/DoyleJ11/tictactoe-server/internal/hub"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code shared by every transport.
type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInvalidMove       Code = "INVALID_MOVE"
	CodeNotYourTurn       Code = "NOT_YOUR_TURN"
	CodeNotInProgress     Code = "NOT_IN_PROGRESS"
	CodeUnknownPlayer     Code = "UNKNOWN_PLAYER"
	CodeSessionFull       Code = "SESSION_FULL"
	CodeDuplicateName     Code = "DUPLICATE_NAME"
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"
	CodeSubscriberTooSlow Code = "SUBSCRIBER_TOO_SLOW"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeCanceled          Code = "CANCELED"
	CodeInternal          Code = "INTERNAL"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidArgument, CodeInvalidMove:
		return codes.InvalidArgument
	case CodeNotYourTurn, CodeNotInProgress, CodeSessionFull:
		return codes.FailedPrecondition
	case CodeUnknownPlayer:
		return codes.PermissionDenied
	case CodeDuplicateName:
		return codes.AlreadyExists
	case CodeSessionNotFound:
		return codes.NotFound
	case CodeSubscriberTooSlow:
		return codes.ResourceExhausted
	case CodeUnavailable:
		return codes.Unavailable
	case CodeCanceled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeInvalidMove:
		return http.StatusBadRequest
	case CodeNotYourTurn, CodeNotInProgress, CodeSessionFull, CodeDuplicateName:
		return http.StatusConflict
	case CodeUnknownPlayer:
		return http.StatusForbidden
	case CodeSessionNotFound:
		return http.StatusNotFound
	case CodeSubscriberTooSlow:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// moveFailure reports whether a MakeMove failure with this code is answered
// with ok=false instead of a call error.
func (c Code) moveFailure() bool {
	switch c {
	case CodeInvalidMove, CodeNotYourTurn, CodeNotInProgress, CodeUnknownPlayer, CodeSessionNotFound:
		return true
	default:
		return false
	}
}

// Error is a failure of one call. It never describes the state of other
// callers on the same game.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "service error"
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError converts any error into an *Error, classifying known domain errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	code := CodeOf(err)
	return &Error{Code: code, Message: messageFor(code, err), Err: err}
}

// CodeOf classifies err.
func CodeOf(err error) Code {
	var e *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, engine.ErrInvalidMove), errors.Is(err, engine.ErrInvalidSymbol):
		return CodeInvalidMove
	case errors.Is(err, session.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, session.ErrNotInProgress):
		return CodeNotInProgress
	case errors.Is(err, session.ErrUnknownPlayer):
		return CodeUnknownPlayer
	case errors.Is(err, session.ErrSessionFull):
		return CodeSessionFull
	case errors.Is(err, session.ErrDuplicateName):
		return CodeDuplicateName
	case errors.Is(err, session.ErrEmptyName):
		return CodeInvalidArgument
	case errors.Is(err, hub.ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		// a retired session is indistinguishable from a missing one
		return CodeSessionNotFound
	case errors.Is(err, session.ErrSlowSubscriber):
		return CodeSubscriberTooSlow
	case errors.Is(err, hub.ErrHubClosed):
		return CodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

var messages = map[Code]string{
	CodeInvalidMove:       "Invalid move",
	CodeNotYourTurn:       "Not your turn",
	CodeNotInProgress:     "Game not in progress",
	CodeUnknownPlayer:     "Player not in game",
	CodeSessionFull:       "Game is full",
	CodeDuplicateName:     "Player name already taken",
	CodeSessionNotFound:   "Game not found",
	CodeSubscriberTooSlow: "Subscriber fell behind",
	CodeUnavailable:       "Server shutting down",
}

func messageFor(code Code, err error) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return err.Error()
}
