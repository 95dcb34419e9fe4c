package network

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/room"
)

func TestErrorPayload(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{engine.ErrNotYourTurn, codes.FailedPrecondition},
		{fmt.Errorf("%w: %w", engine.ErrIllegalMove, errors.New("cell taken")), codes.InvalidArgument},
		{engine.ErrRoomFull, codes.ResourceExhausted},
		{fmt.Errorf("add player a: %w", engine.ErrPlayerExists), codes.AlreadyExists},
		{room.ErrRoomNotFound, codes.NotFound},
		{room.ErrSessionEnded, codes.Unavailable},
		{errors.Join(ErrBadRequest, errors.New("unexpected EOF")), codes.InvalidArgument},
		{ErrNotInRoom, codes.FailedPrecondition},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
			payload := ErrorPayload(tt.err)
			assert.Equal(t, tt.code.String(), payload.Code)
			assert.NotEmpty(t, payload.Message)
		})
	}
}

func TestIllegalMoveIsNotTurnError(t *testing.T) {
	assert.NotEqual(t, ErrorPayload(engine.ErrIllegalMove).Message, ErrorPayload(engine.ErrNotYourTurn).Message)
}

func TestNilError(t *testing.T) {
	assert.Equal(t, codes.OK, Code(nil))
}
