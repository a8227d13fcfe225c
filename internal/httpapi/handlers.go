package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func CreateGame(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := svc.CreateGame(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func GetState(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.GetState(r.Context(), &types.StateRequest{GameID: chi.URLParam(r, "gameID")})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// MakeMove always answers 200 for rule violations; the body carries ok=false.
func MakeMove(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.MoveRequest
		if !decode(w, r, &req) {
			return
		}
		req.GameID = chi.URLParam(r, "gameID")
		resp, err := svc.MakeMove(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "bad json"
		if errors.Is(err, io.EOF) {
			msg = "empty body"
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Code: string(service.CodeInvalidArgument), Error: msg})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	e := service.AsError(err)
	writeJSON(w, e.Code.HTTPStatus(), errorBody{Code: string(e.Code), Error: e.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
