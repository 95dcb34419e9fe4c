package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/gameengine/network"
)

func TestParseCommand(t *testing.T) {
	msgID, payload, err := parseCommand("move {\"cell\":4}")
	require.NoError(t, err)
	assert.Equal(t, uint16(network.MsgTypeGameAction), msgID)
	assert.JSONEq(t, `{"cell":4}`, string(payload.(network.GameActionRequest).Move))

	msgID, payload, err = parseCommand("  unready ")
	require.NoError(t, err)
	assert.Equal(t, uint16(network.MsgTypeReady), msgID)
	assert.Equal(t, network.ReadyRequest{Ready: false}, payload)

	_, _, err = parseCommand("move {oops")
	assert.Error(t, err)
	_, _, err = parseCommand("dance")
	assert.Error(t, err)
	_, _, err = parseCommand("quit")
	assert.ErrorIs(t, err, errQuit)
}

func TestDescribe(t *testing.T) {
	data, err := json.Marshal(map[string]any{"status": "in_progress", "players": []any{map[string]any{"id": "a"}}, "turn": map[string]any{"playerId": "a"}})
	require.NoError(t, err)
	line := describe(&network.Packet{MsgID: network.MsgTypeRoomState, Data: data})
	assert.Contains(t, line, "state: in_progress players=1")
	assert.Contains(t, line, "turn=a")

	assert.Equal(t, "pong", describe(&network.Packet{MsgID: network.MsgTypeHeartbeat}))
	assert.Equal(t, "RECV (ID: 999): x", describe(&network.Packet{MsgID: 999, Data: []byte("x")}))
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["play"])
	assert.True(t, names["rooms"])
	assert.True(t, names["snapshot"])
}
