package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/rpc/jsonrpc"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/network"
	gamerpc "github.com/wfunc/gameengine/rpc"
)

var errQuit = errors.New("quit")

type options struct {
	server   string
	rpcAddr  string
	playerID string
	name     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "gamecli",
		Short:        "Development client for the game engine server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "ws://localhost:8080/ws", "websocket endpoint")
	root.PersistentFlags().StringVar(&opts.rpcAddr, "rpc", "localhost:8081", "admin RPC address")
	root.PersistentFlags().StringVar(&opts.playerID, "player", "", "player id (default: connection id)")
	root.PersistentFlags().StringVar(&opts.name, "name", "", "display name")

	root.AddCommand(newPlayCmd(opts), newRoomsCmd(opts), newSnapshotCmd(opts))
	return root
}

func newPlayCmd(opts *options) *cobra.Command {
	var join bool
	cmd := &cobra.Command{
		Use:   "play <game-type|room-id>",
		Short: "Create a room for a game type, or join a room with --join",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(opts, args[0], join)
		},
	}
	cmd.Flags().BoolVar(&join, "join", false, "treat the argument as a room id to join")
	return cmd
}

func newRoomsCmd(opts *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List live rooms, plus stored ones with --status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := jsonrpc.Dial("tcp", opts.rpcAddr)
			if err != nil {
				return err
			}
			defer client.Close()
			var reply gamerpc.ListReply
			if err := client.Call("RoomService.List", &gamerpc.ListArgs{Status: status}, &reply); err != nil {
				return err
			}
			for _, r := range reply.Rooms {
				fmt.Printf("%-36s %-10s %-12s players=%d live=%v\n", r.RoomID, r.GameType, r.Status, r.Players, r.Live)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "stored room status to include")
	return cmd
}

func newSnapshotCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <room-id>",
		Short: "Print a live room's snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := jsonrpc.Dial("tcp", opts.rpcAddr)
			if err != nil {
				return err
			}
			defer client.Close()
			var snap engine.Snapshot
			if err := client.Call("RoomService.Snapshot", &gamerpc.SnapshotArgs{RoomID: args[0], Viewer: opts.playerID}, &snap); err != nil {
				return err
			}
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// parseCommand turns one line of input into a request.
//
//	ready | unready | start | end-round | leave | ping | quit
//	move <json>
func parseCommand(line string) (uint16, any, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch verb {
	case "ready":
		return network.MsgTypeReady, network.ReadyRequest{Ready: true}, nil
	case "unready":
		return network.MsgTypeReady, network.ReadyRequest{Ready: false}, nil
	case "start":
		return network.MsgTypeStartGame, struct{}{}, nil
	case "end-round":
		return network.MsgTypeForceRoundEnd, struct{}{}, nil
	case "leave":
		return network.MsgTypeLeaveRoom, struct{}{}, nil
	case "ping":
		return network.MsgTypeHeartbeat, nil, nil
	case "move":
		raw := json.RawMessage(strings.TrimSpace(rest))
		if !json.Valid(raw) {
			return 0, nil, errors.New(`move must be JSON, e.g. move {"cell":4}`)
		}
		return network.MsgTypeGameAction, network.GameActionRequest{Move: raw}, nil
	case "quit", "exit":
		return 0, nil, errQuit
	}
	return 0, nil, fmt.Errorf("unknown command %q", verb)
}

// describe renders a server push for the terminal.
func describe(p *network.Packet) string {
	switch p.MsgID {
	case network.MsgTypeRoomJoined:
		return "joined: " + string(p.Data)
	case network.MsgTypeRoomState:
		var snap engine.Snapshot
		if err := json.Unmarshal(p.Data, &snap); err != nil {
			return "state: " + string(p.Data)
		}
		state, _ := json.Marshal(snap.State)
		line := fmt.Sprintf("state: %s players=%d moves=%d", snap.Status, len(snap.Players), len(snap.History))
		if snap.Turn != nil {
			line += " turn=" + snap.Turn.PlayerID
		}
		if snap.Round != nil {
			line += fmt.Sprintf(" round=%d", snap.Round.Number)
		}
		if snap.Winner != "" {
			line += " winner=" + snap.Winner
		}
		return line + " " + string(state)
	case network.MsgTypeGameEvent:
		return "event: " + string(p.Data)
	case network.MsgTypeSettlement:
		return "settled: " + string(p.Data)
	case network.MsgTypeError:
		return "error: " + string(p.Data)
	case network.MsgTypeHeartbeat:
		return "pong"
	}
	return fmt.Sprintf("RECV (ID: %d): %s", p.MsgID, p.Data)
}

func send(c *websocket.Conn, msgID uint16, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func play(opts *options, target string, join bool) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	log.Printf("Connecting to %s", opts.server)

	c, _, err := websocket.DefaultDialer.Dial(opts.server, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			p, err := network.Decode(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			log.Println(describe(p))
		}
	}()

	if err := send(c, network.MsgTypeLogin, network.LoginRequest{PlayerID: opts.playerID, Name: opts.name}); err != nil {
		return err
	}
	if join {
		err = send(c, network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: target, Name: opts.name})
	} else {
		err = send(c, network.MsgTypeCreateRoom, network.CreateRoomRequest{GameType: target, Name: opts.name})
	}
	if err != nil {
		return err
	}

	log.Println("Commands: ready, unready, start, move <json>, end-round, leave, ping, quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// Write loop
	for {
		select {
		case <-done:
			return nil
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			return closeConn(c, done)
		case line, ok := <-lines:
			if !ok {
				return closeConn(c, done)
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			msgID, payload, err := parseCommand(line)
			if errors.Is(err, errQuit) {
				return closeConn(c, done)
			}
			if err != nil {
				log.Println(err)
				continue
			}
			if err := send(c, msgID, payload); err != nil {
				return err
			}
		}
	}
}

func closeConn(c *websocket.Conn, done <-chan struct{}) error {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}
