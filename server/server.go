package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wfunc/gameengine/broadcast"
	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/network"
	"github.com/wfunc/gameengine/room"
	"github.com/wfunc/gameengine/session"
)

// Metrics is what the server reports about connections and traffic.
type Metrics interface {
	IncOnlinePlayers()
	DecOnlinePlayers()
	IncMessagesReceived()
	ObserveMessageLatency(duration time.Duration)
}

type GameServer struct {
	addr       string
	upgrader   websocket.Upgrader
	driver     *broadcast.Driver
	sessions   *session.Manager
	metrics    Metrics
	heartbeat  time.Duration
	httpServer *http.Server
	log        *zap.SugaredLogger

	mutex        sync.Mutex
	shutdownChan chan struct{}
	closed       bool
}

// NewGameServer serves driver over websockets. sessions must be the same
// manager the driver pushes through. metrics may be nil.
func NewGameServer(addr string, driver *broadcast.Driver, sessions *session.Manager, metrics Metrics) *GameServer {
	return &GameServer{
		addr:         addr,
		driver:       driver,
		sessions:     sessions,
		metrics:      metrics,
		heartbeat:    30 * time.Second,
		log:          logger.Named("server"),
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
}

// SetHeartbeat sets how long a connection may stay silent; zero disables
// the read deadline.
func (s *GameServer) SetHeartbeat(interval time.Duration) {
	s.heartbeat = interval
}

// Handler exposes the websocket endpoint at /ws.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *GameServer) Start() error {
	s.mutex.Lock()
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}
	srv := s.httpServer
	s.mutex.Unlock()

	s.log.Infof("Game server listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes the open ones.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	close(s.shutdownChan)
	srv := s.httpServer
	s.mutex.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	for _, sess := range s.sessions.All() {
		sess.Close()
	}
	return err
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessions.Add(sess)
	if s.heartbeat > 0 {
		conn.SetHeartbeat(s.heartbeat)
	}
	if s.metrics != nil {
		s.metrics.IncOnlinePlayers()
	}

	s.log.Infow("New connection", "remote_addr", conn.RemoteAddr().String(), "session_id", sess.GetID())

	defer func() {
		s.log.Infow("Connection closed", "session_id", sess.GetID(), "player_id", sess.PlayerID())
		s.sessions.Remove(sess.GetID())
		if roomID := sess.RoomID(); roomID != "" && len(s.sessions.GetByPlayerID(sess.PlayerID())) == 0 {
			if err := s.driver.Disconnect(context.Background(), roomID, sess.PlayerID()); err != nil {
				s.log.Warnw("disconnect cleanup failed", "room_id", roomID, "error", err)
			}
		}
		if s.metrics != nil {
			s.metrics.DecOnlinePlayers()
		}
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		start := time.Now()
		s.handlePacket(sess, packet)
		if s.metrics != nil {
			s.metrics.IncMessagesReceived()
			s.metrics.ObserveMessageLatency(time.Since(start))
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()
	ctx := context.Background()

	var err error
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		err = sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeLogin:
		err = s.handleLogin(sess, packet)
	case network.MsgTypeCreateRoom:
		err = s.handleCreateRoom(ctx, sess, packet)
	case network.MsgTypeJoinRoom:
		err = s.handleJoinRoom(ctx, sess, packet)
	case network.MsgTypeLeaveRoom:
		err = s.handleLeaveRoom(ctx, sess)
	case network.MsgTypeReady:
		var req network.ReadyRequest
		if err = decode(packet, &req); err == nil {
			err = s.inRoom(sess, func(roomID string) error {
				return s.driver.Ready(ctx, roomID, sess.PlayerID(), req.Ready)
			})
		}
	case network.MsgTypeStartGame:
		err = s.inRoom(sess, func(roomID string) error {
			return s.driver.Start(ctx, roomID)
		})
	case network.MsgTypeGameAction:
		var req network.GameActionRequest
		if err = decode(packet, &req); err == nil {
			err = s.inRoom(sess, func(roomID string) error {
				return s.driver.MoveJSON(ctx, roomID, sess.PlayerID(), req.Move)
			})
		}
	case network.MsgTypeForceRoundEnd:
		err = s.inRoom(sess, func(roomID string) error {
			return s.driver.ForceRoundEnd(ctx, roomID)
		})
	default:
		s.log.Infof("Unknown message type: %d", packet.MsgID)
		return
	}

	if err != nil {
		s.log.Debugw("request failed", "session_id", sess.GetID(), "msg_id", packet.MsgID, "error", err)
		if sendErr := network.SendJSON(sess.Conn, network.MsgTypeError, network.ErrorPayload(err)); sendErr != nil {
			s.log.Warnw("failed to send error", "session_id", sess.GetID(), "error", sendErr)
		}
	}
}

func decode(packet *network.Packet, v any) error {
	if err := json.Unmarshal(packet.Data, v); err != nil {
		return errors.Join(network.ErrBadRequest, err)
	}
	return nil
}

func (s *GameServer) inRoom(sess *session.Session, fn func(roomID string) error) error {
	roomID := sess.RoomID()
	if roomID == "" {
		return network.ErrNotInRoom
	}
	return fn(roomID)
}

func (s *GameServer) handleLogin(sess *session.Session, packet *network.Packet) error {
	var req network.LoginRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	sess.Login(req.PlayerID, req.Name)
	s.log.Infow("Session logged in", "session_id", sess.GetID(), "player_id", sess.PlayerID())
	return nil
}

func (s *GameServer) player(sess *session.Session, name string) engine.Player {
	if name == "" {
		name = sess.Name()
	}
	return engine.Player{ID: sess.PlayerID(), Name: name}
}

// bind moves the connection to roomID before fn runs so that the pushes
// fn causes reach it. On failure the previous binding is restored.
func (s *GameServer) bind(ctx context.Context, sess *session.Session, roomID string, fn func() (bool, error)) error {
	prev := sess.RoomID()
	if prev != "" && prev != roomID {
		if err := s.driver.Leave(ctx, prev, sess.PlayerID()); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			return err
		}
	}
	sess.SetRoomID(roomID)
	observer, err := fn()
	if err != nil {
		if prev == roomID {
			sess.SetRoomID(prev)
		} else {
			sess.SetRoomID("")
		}
		return err
	}
	joined := network.RoomJoined{RoomID: roomID, PlayerID: sess.PlayerID(), Observer: observer}
	if err := network.SendJSON(sess.Conn, network.MsgTypeRoomJoined, joined); err != nil {
		return err
	}
	view, err := s.driver.View(ctx, roomID, sess.PlayerID())
	if err != nil {
		return err
	}
	return network.SendJSON(sess.Conn, network.MsgTypeRoomState, view)
}

func (s *GameServer) handleCreateRoom(ctx context.Context, sess *session.Session, packet *network.Packet) error {
	var req network.CreateRoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	roomID := req.RoomID
	if roomID == "" {
		roomID = uuid.New().String()
	}
	err := s.bind(ctx, sess, roomID, func() (bool, error) {
		_, err := s.driver.CreateRoom(ctx, roomID, req.GameType, s.player(sess, req.Name))
		return false, err
	})
	if err == nil {
		s.log.Infow("Room created", "session_id", sess.GetID(), "room_id", roomID, "game_type", req.GameType)
	}
	return err
}

func (s *GameServer) handleJoinRoom(ctx context.Context, sess *session.Session, packet *network.Packet) error {
	var req network.JoinRoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	return s.bind(ctx, sess, req.RoomID, func() (bool, error) {
		return s.driver.Join(ctx, req.RoomID, s.player(sess, req.Name))
	})
}

func (s *GameServer) handleLeaveRoom(ctx context.Context, sess *session.Session) error {
	return s.inRoom(sess, func(roomID string) error {
		err := s.driver.Leave(ctx, roomID, sess.PlayerID())
		sess.SetRoomID("")
		return err
	})
}
