package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/gameengine/broadcast"
	"github.com/wfunc/gameengine/config"
	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/games"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/monitor"
	"github.com/wfunc/gameengine/persistence"
	"github.com/wfunc/gameengine/room"
	"github.com/wfunc/gameengine/rpc"
	"github.com/wfunc/gameengine/server"
	"github.com/wfunc/gameengine/services"
	"github.com/wfunc/gameengine/session"
	"github.com/wfunc/gameengine/timer"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	// Initialize storage
	store, err := persistence.Open(cfg.Storage)
	if err != nil {
		logger.Log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	logger.Log.Infow("Storage ready", "driver", cfg.Storage.Driver)

	// Coins only move when accounts live in the database.
	var ledger *services.Ledger
	var settlement engine.Settlement
	if gs, ok := store.(*persistence.GormPostgreSQL); ok {
		ledger = services.NewLedger(gs.DB())
		settlement = ledger
	}

	mon := monitor.NewMonitor("gameengine")
	mon.StartServer(cfg.Server.MetricsAddress)

	sched := timer.NewManager()
	defer sched.Stop()

	rooms := room.NewManager(games.Catalog(cfg.Engine.TurnTimeLimit, cfg.Engine.RoundTimeLimit), sched, mon)
	sessions := session.NewManager()
	driver := broadcast.NewDriver(rooms, sessions, store, broadcast.Config{
		Stake:      cfg.Engine.Stake,
		Settlement: settlement,
		Observer:   mon,
	})

	recoverRooms(driver, store)

	// Initialize RPC server
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register(rpc.NewRoomService(rooms, store)); err != nil {
		logger.Log.Fatalf("Failed to register room service: %v", err)
	}
	if ledger != nil {
		if err := rpcServer.Register(rpc.NewAccountService(ledger)); err != nil {
			logger.Log.Fatalf("Failed to register account service: %v", err)
		}
	}
	go rpcServer.Start()

	// Start game server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, driver, sessions, mon)
	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Warnw("game server shutdown", "error", err)
	}
	rpcServer.Stop()
	driver.Wait()
	if err := mon.Shutdown(ctx); err != nil {
		logger.Log.Warnw("metrics server shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Log.Warnw("storage close", "error", err)
	}
}

// recoverRooms rebuilds the sessions of games that were in progress when
// the previous process stopped. Their history is lost; play restarts.
func recoverRooms(driver *broadcast.Driver, store persistence.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recs, err := store.ListRooms(ctx, models.RoomInProgress)
	if err != nil {
		logger.Log.Errorw("failed to list rooms for recovery", "error", err)
		return
	}
	for _, rec := range recs {
		if _, err := driver.Resolve(ctx, rec.RoomID); err != nil {
			logger.Log.Warnw("room not recovered", "room_id", rec.RoomID, "error", err)
		}
	}
	if len(recs) > 0 {
		logger.Log.Infow("recovery finished", "rooms", len(recs))
	}
}
