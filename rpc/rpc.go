package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/network"
	"github.com/wfunc/gameengine/persistence"
	"github.com/wfunc/gameengine/room"
	"github.com/wfunc/gameengine/services"
)

const callTimeout = 5 * time.Second

// Server manages the admin RPC listener. Calls use the JSON-RPC codec so
// snapshots with arbitrary game state travel as they do on the websocket.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
		rpc:      rpc.NewServer(),
	}, nil
}

// Register publishes the exported methods of service.
func (s *Server) Register(service any) error {
	return s.rpc.Register(service)
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// statusError turns err into the text of a gRPC status so callers can
// tell not-found from precondition failures.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	return network.Status(err).Err()
}

// RoomService lets operators inspect rooms.
type RoomService struct {
	rooms *room.Manager
	store persistence.Store
}

func NewRoomService(rooms *room.Manager, store persistence.Store) *RoomService {
	return &RoomService{rooms: rooms, store: store}
}

type RoomSummary struct {
	RoomID   string        `json:"room_id"`
	GameType string        `json:"game_type"`
	Status   engine.Status `json:"status"`
	Players  int           `json:"players"`
	Live     bool          `json:"live"`
}

// ListArgs filters stored rooms by status. Live rooms are always listed.
type ListArgs struct {
	Status string
}

type ListReply struct {
	Rooms []RoomSummary
}

func (rs *RoomService) List(args *ListArgs, reply *ListReply) error {
	seen := make(map[string]bool)
	for _, id := range rs.rooms.IDs() {
		s, ok := rs.rooms.Get(id)
		if !ok {
			continue
		}
		snap := s.Snapshot()
		reply.Rooms = append(reply.Rooms, RoomSummary{
			RoomID:   id,
			GameType: snap.GameType,
			Status:   snap.Status,
			Players:  len(snap.Participants()),
			Live:     true,
		})
		seen[id] = true
	}
	if args.Status == "" || rs.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	recs, err := rs.store.ListRooms(ctx, args.Status)
	if err != nil {
		return statusError(err)
	}
	for _, rec := range recs {
		if seen[rec.RoomID] {
			continue
		}
		reply.Rooms = append(reply.Rooms, RoomSummary{
			RoomID:   rec.RoomID,
			GameType: rec.GameType,
			Status:   engine.Status(rec.Status),
			Players:  len(rec.Players),
		})
	}
	return nil
}

// SnapshotArgs picks a room and, optionally, whose view to return.
type SnapshotArgs struct {
	RoomID string
	Viewer string
}

func (rs *RoomService) Snapshot(args *SnapshotArgs, reply *engine.Snapshot) error {
	s, ok := rs.rooms.Get(args.RoomID)
	if !ok {
		return statusError(room.ErrRoomNotFound)
	}
	if args.Viewer != "" {
		*reply = s.ViewFor(args.Viewer)
	} else {
		*reply = s.Snapshot()
	}
	return nil
}

type GameRecordsArgs struct {
	RoomID string
}

func (rs *RoomService) GameRecords(args *GameRecordsArgs, reply *[]models.GameRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	recs, err := rs.store.GameRecords(ctx, args.RoomID)
	if err != nil {
		return statusError(err)
	}
	*reply = recs
	return nil
}

// AccountService exposes ledger balances.
type AccountService struct {
	ledger *services.Ledger
}

func NewAccountService(ledger *services.Ledger) *AccountService {
	return &AccountService{ledger: ledger}
}

type AccountArgs struct {
	PlayerID string
}

type AccountReply struct {
	PlayerID string
	Name     string
	Coins    int64
	Wins     int
	Losses   int
	Draws    int
}

func (as *AccountService) Get(args *AccountArgs, reply *AccountReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	acc, err := as.ledger.Account(ctx, args.PlayerID)
	if errors.Is(err, services.ErrAccountNotFound) {
		return status.Error(codes.NotFound, "Account not found.")
	}
	if err != nil {
		return statusError(err)
	}
	*reply = AccountReply{
		PlayerID: acc.PlayerID,
		Name:     acc.Name,
		Coins:    acc.Coins,
		Wins:     acc.Wins,
		Losses:   acc.Losses,
		Draws:    acc.Draws,
	}
	return nil
}
