// Package server is the websocket transport in front of the room engine.
// It decodes client commands, routes them to the registry or a bound
// room, and fans per-player state snapshots back out after every accepted
// command. The engine itself knows nothing about sockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/koko-mojo-astro/poker-pool/internal/game"
	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// writeTimeout bounds each outbound websocket write.
const writeTimeout = 5 * time.Second

// Server routes websocket sessions onto the room registry.
type Server struct {
	registry  *game.Registry
	log       *logrus.Logger
	jwtSecret []byte
}

// New constructs a Server around an existing registry.
func New(registry *game.Registry, log *logrus.Logger, jwtSecret []byte) *Server {
	return &Server{registry: registry, log: log, jwtSecret: jwtSecret}
}

// Handler returns the HTTP handler exposing /ws and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// session tracks what one connection is bound to. A connection belongs to
// at most one seat at a time.
type session struct {
	srv    *Server
	conn   *websocket.Conn
	log    *logrus.Entry
	room   *game.Room
	player *models.Player
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checking is a reverse-proxy concern here
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}

	sess := &session{
		srv:  s,
		conn: conn,
		log:  s.log.WithField("remote", r.RemoteAddr),
	}
	sess.log.Info("client connected")
	sess.run(r.Context())
}

// run is the per-connection read loop. On return the socket is closed and
// the bound player, if any, is marked disconnected but never removed, so
// the seat stays reclaimable via RECONNECT.
func (sess *session) run(ctx context.Context) {
	defer func() {
		sess.conn.Close(websocket.StatusNormalClosure, "")
		if sess.room != nil && sess.player != nil {
			sess.log.WithField("player", sess.player.ID).Info("client disconnected")
			sess.room.MarkDisconnected(sess.player.ID)
			sess.srv.broadcastRoom(sess.room)
		}
	}()

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, sess.conn, &msg); err != nil {
			return
		}
		sess.dispatch(ctx, msg)
	}
}

// dispatch routes one decoded command. Rejections are reported only to
// this connection; accepted commands trigger a room-wide state fan-out.
func (sess *session) dispatch(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case MsgCreateRoom:
		sess.handleCreateRoom(ctx, msg.Payload)
	case MsgJoinRoom:
		sess.handleJoinRoom(ctx, msg.Payload)
	case MsgReconnect:
		sess.handleReconnect(ctx, msg.Payload)
	case MsgStartGame:
		if sess.room == nil {
			return
		}
		// Start failures are silent to the caller: the room simply does
		// not transition.
		if err := sess.room.Start(sess.player.ID); err != nil {
			sess.log.WithError(err).Debug("start rejected")
			return
		}
		sess.srv.broadcastRoom(sess.room)
	case MsgRestartGame:
		if sess.room == nil {
			return
		}
		if err := sess.room.Restart(sess.player.ID); err != nil {
			sess.log.WithError(err).Debug("restart rejected")
			return
		}
		sess.srv.broadcastRoom(sess.room)
	case MsgDrawCard:
		if sess.room == nil {
			return
		}
		if _, err := sess.room.Draw(sess.player.ID); err != nil {
			sess.sendError(ctx, err)
			return
		}
		sess.srv.broadcastRoom(sess.room)
	case MsgPotCard:
		sess.handlePotCard(ctx, msg.Payload)
	case MsgMarkFoul:
		if sess.room == nil {
			return
		}
		if err := sess.room.MarkFoul(sess.player.ID); err != nil {
			sess.sendError(ctx, err)
			return
		}
		sess.srv.broadcastRoom(sess.room)
	case MsgUpdateJoker:
		sess.handleUpdateJoker(ctx, msg.Payload)
	case MsgExitRoom:
		sess.handleExitRoom(ctx)
	default:
		sess.log.WithField("type", msg.Type).Warn("unknown message type dropped")
	}
}

func (sess *session) handleCreateRoom(ctx context.Context, payload json.RawMessage) {
	var p createRoomPayload
	if !sess.decode(payload, &p) {
		return
	}
	cfg := models.RoomConfig{GameAmount: p.GameAmount, JokerAmount: p.JokerAmount}
	room, creator := sess.srv.registry.CreateRoom(cfg, p.CreatorName)
	sess.bind(room, creator)

	token, err := sess.srv.issueToken(room.ID, creator.ID)
	if err != nil {
		sess.log.WithError(err).Error("issue session token")
	}
	sess.send(ctx, ServerMessage{Type: MsgRoomCreated, Payload: roomCreatedPayload{
		RoomID:   room.ID,
		RoomCode: room.Code,
		PlayerID: creator.ID,
		Token:    token,
	}})
	sess.send(ctx, ServerMessage{Type: MsgJoinedRoom, Payload: joinedRoomPayload{
		RoomID:   room.ID,
		RoomCode: room.Code,
		PlayerID: creator.ID,
		Token:    token,
		State:    room.SnapshotFor(creator.ID),
	}})
}

func (sess *session) handleJoinRoom(ctx context.Context, payload json.RawMessage) {
	var p joinRoomPayload
	if !sess.decode(payload, &p) {
		return
	}
	room, player, err := sess.srv.registry.JoinRoom(p.RoomCode, p.Name)
	if err != nil {
		sess.sendError(ctx, err)
		return
	}
	sess.bind(room, player)

	token, err := sess.srv.issueToken(room.ID, player.ID)
	if err != nil {
		sess.log.WithError(err).Error("issue session token")
	}
	sess.send(ctx, ServerMessage{Type: MsgJoinedRoom, Payload: joinedRoomPayload{
		RoomID:   room.ID,
		RoomCode: room.Code,
		PlayerID: player.ID,
		Token:    token,
		State:    room.SnapshotFor(player.ID),
	}})
	sess.srv.broadcastRoom(room)
}

func (sess *session) handleReconnect(ctx context.Context, payload json.RawMessage) {
	var p reconnectPayload
	if !sess.decode(payload, &p) {
		return
	}
	roomID, playerID := p.RoomID, p.PlayerID
	if p.Token != "" {
		var err error
		roomID, playerID, err = sess.srv.parseToken(p.Token)
		if err != nil {
			sess.sendError(ctx, errors.New("reconnection failed"))
			return
		}
	}
	if roomID == uuid.Nil || playerID == uuid.Nil {
		sess.sendError(ctx, errors.New("reconnection failed"))
		return
	}
	room, ok := sess.srv.registry.Room(roomID)
	if !ok {
		sess.sendError(ctx, game.ErrRoomNotFound)
		return
	}
	if err := room.AttachConn(playerID, func(pl *models.Player) { pl.Conn = sess.conn }); err != nil {
		sess.sendError(ctx, err)
		return
	}
	sess.room = room
	sess.player = findPlayer(room, playerID)

	token, err := sess.srv.issueToken(roomID, playerID)
	if err != nil {
		sess.log.WithError(err).Error("issue session token")
	}
	sess.send(ctx, ServerMessage{Type: MsgJoinedRoom, Payload: joinedRoomPayload{
		RoomID:   room.ID,
		RoomCode: room.Code,
		PlayerID: playerID,
		Token:    token,
		State:    room.SnapshotFor(playerID),
	}})
	sess.srv.broadcastRoom(room)
}

func (sess *session) handlePotCard(ctx context.Context, payload json.RawMessage) {
	if sess.room == nil {
		return
	}
	var p potCardPayload
	if !sess.decode(payload, &p) {
		return
	}
	if err := sess.room.Pot(sess.player.ID, p.CardID); err != nil {
		sess.sendError(ctx, err)
		return
	}
	sess.srv.broadcastRoom(sess.room)
}

func (sess *session) handleUpdateJoker(ctx context.Context, payload json.RawMessage) {
	if sess.room == nil {
		return
	}
	var p updateJokerPayload
	if !sess.decode(payload, &p) {
		return
	}
	kind := models.JokerKind(p.Kind)
	if kind != models.JokerDirect && kind != models.JokerAll {
		sess.log.WithField("kind", p.Kind).Warn("unknown joker kind dropped")
		return
	}
	if p.Delta != 1 && p.Delta != -1 {
		sess.log.WithField("delta", p.Delta).Warn("joker delta out of range dropped")
		return
	}
	if err := sess.room.UpdateJoker(sess.player.ID, kind, p.Delta); err != nil {
		sess.sendError(ctx, err)
		return
	}
	sess.srv.broadcastRoom(sess.room)
}

// handleExitRoom tears the room down when the creator leaves; a
// non-creator just frees (or, mid-game, vacates) their seat.
func (sess *session) handleExitRoom(ctx context.Context) {
	if sess.room == nil || sess.player == nil {
		return
	}
	room, player := sess.room, sess.player
	sess.room, sess.player = nil, nil

	if player.IsCreator {
		closed := ServerMessage{Type: MsgRoomClosed, Payload: roomClosedPayload{Reason: "Host disbanded the room"}}
		room.ForEachPlayer(func(p *models.Player) {
			if p.Conn != nil {
				sess.srv.write(ctx, p.Conn, closed)
			}
		})
		sess.srv.registry.DeleteRoom(room.ID)
		return
	}

	if _, err := room.RemovePlayer(player.ID); err != nil {
		sess.sendError(ctx, err)
		return
	}
	sess.send(ctx, ServerMessage{Type: MsgRoomClosed, Payload: roomClosedPayload{Reason: "You left the room"}})
	sess.srv.broadcastRoom(room)
}

// bind attaches this session's connection to a newly seated player.
func (sess *session) bind(room *game.Room, player *models.Player) {
	sess.room = room
	sess.player = player
	// AttachConn can't fail for a player the registry just seated.
	_ = room.AttachConn(player.ID, func(pl *models.Player) { pl.Conn = sess.conn })
}

// decode unmarshals a payload, logging and dropping malformed input.
func (sess *session) decode(payload json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		sess.log.WithError(err).Warn("malformed payload dropped")
		return false
	}
	return true
}

func (sess *session) send(ctx context.Context, msg ServerMessage) {
	sess.srv.write(ctx, sess.conn, msg)
}

func (sess *session) sendError(ctx context.Context, err error) {
	sess.send(ctx, ServerMessage{Type: MsgError, Payload: errorPayload{Message: err.Error()}})
}

// broadcastRoom sends each connected player their own view of the room.
func (s *Server) broadcastRoom(room *game.Room) {
	room.BroadcastSnapshots(func(p *models.Player, snap game.RoomSnapshot) {
		if p.Conn == nil {
			return
		}
		s.write(context.Background(), p.Conn, ServerMessage{Type: MsgGameUpdate, Payload: snap})
	})
}

// write performs one bounded websocket write.
func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		s.log.WithError(err).Debug("websocket write failed")
	}
}

func findPlayer(room *game.Room, playerID uuid.UUID) *models.Player {
	var found *models.Player
	room.ForEachPlayer(func(p *models.Player) {
		if p.ID == playerID {
			found = p
		}
	})
	return found
}
