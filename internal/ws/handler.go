package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"github.com/DoyleJ11/tictactoe-server/internal/types"
	wire "github.com/DoyleJ11/tictactoe-server/pkg/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Handler streams one player's view of a game over a WebSocket:
//
//	GET /ws?gameId=...&playerName=...
//
// The player is joined (or re-attached) on connect. Every snapshot is pushed
// as a StateSnapshot message; MakeMove messages from the client are answered
// with a MoveResult.
func Handler(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		join := &wire.JoinRequest{GameID: q.Get("gameId"), PlayerName: q.Get("playerName")}
		if strings.TrimSpace(join.GameID) == "" || strings.TrimSpace(join.PlayerName) == "" {
			http.Error(w, "missing gameId or playerName", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &client{
			conn: conn,
			svc:  svc,
			join: join,
			log:  log.With(zap.String("game_id", join.GameID), zap.String("player", join.PlayerName)),
		}

		// Reader goroutine; a read error means the peer is gone.
		go func() {
			defer cancel()
			c.readLoop(ctx)
		}()

		if err := svc.JoinGame(ctx, join, c.pushState); err != nil {
			e := service.AsError(err)
			c.write(ctx, types.ServerMessage{Type: types.MsgError, Code: string(e.Code), Error: e.Message})
			conn.Close(websocket.StatusPolicyViolation, string(e.Code))
			return
		}
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

type client struct {
	conn *websocket.Conn
	svc  *service.Service
	join *wire.JoinRequest
	log  *zap.Logger
}

func (c *client) pushState(state *wire.GameState) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, types.ServerMessage{Type: types.MsgStateSnapshot, State: state})
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.write(ctx, types.ServerMessage{Type: types.MsgError, Code: string(service.CodeInvalidArgument), Error: "bad json"})
			continue
		}

		switch cm.Type {
		case types.MsgMakeMove:
			c.makeMove(ctx, cm)
		default:
			c.write(ctx, types.ServerMessage{Type: types.MsgError, Code: string(service.CodeInvalidArgument), Error: "unknown type"})
		}
	}
}

func (c *client) makeMove(ctx context.Context, cm types.ClientMessage) {
	resp, err := c.svc.MakeMove(ctx, &wire.MoveRequest{
		GameID:     c.join.GameID,
		PlayerName: c.join.PlayerName,
		Row:        cm.Row,
		Col:        cm.Col,
	})
	if err != nil {
		e := service.AsError(err)
		c.write(ctx, types.ServerMessage{Type: types.MsgError, Code: string(e.Code), Error: e.Message})
		return
	}
	c.write(ctx, types.ServerMessage{Type: types.MsgMoveResult, Result: resp})
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, msg); err != nil {
		c.log.Debug("websocket write failed", zap.Error(err))
	}
}
