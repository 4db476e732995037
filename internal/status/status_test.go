package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		wantErr bool
		final   Status
	}{
		{name: "run then succeed", path: []Status{Running, Success}, final: Success},
		{name: "run then fail", path: []Status{Running, Failed}, final: Failed},
		{name: "launch failure skips running", path: []Status{Failed}, final: Failed},
		{name: "success needs running", path: []Status{Success}, wantErr: true, final: Idle},
		{name: "running twice", path: []Status{Running, Running}, wantErr: true, final: Running},
		{name: "two terminal states", path: []Status{Running, Success, Failed}, wantErr: true, final: Success},
		{name: "back to running after finish", path: []Status{Running, Failed, Running}, wantErr: true, final: Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Machine
			var err error
			for _, s := range tt.path {
				if err = m.Transition(s); err != nil {
					break
				}
			}
			if tt.wantErr {
				var te *TransitionError
				require.True(t, errors.As(err, &te))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.final, m.Current())
		})
	}
}

func TestMachine_ResetAllowsNewSession(t *testing.T) {
	var m Machine
	require.NoError(t, m.Transition(Running))
	require.NoError(t, m.Transition(Success))

	m.Reset()
	assert.Equal(t, Idle, m.Current())
	require.NoError(t, m.Transition(Running))
}

func TestGlyph(t *testing.T) {
	assert.Equal(t, "⠋", Glyph(Running, 0))
	assert.Equal(t, "⠙", Glyph(Running, 11))
	assert.Equal(t, "✓", Glyph(Success, 3))
	assert.Equal(t, "✗", Glyph(Failed, 3))
	assert.Equal(t, "·", Glyph(Idle, 0))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failed", Failed.String())
}
