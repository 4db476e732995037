package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/target"
)

type fakeStarter struct {
	got []engine.Descriptor
}

func (f *fakeStarter) Run(_ context.Context, d engine.Descriptor) (*engine.Session, error) {
	f.got = append(f.got, d)
	return &engine.Session{ID: "s1", Descriptor: d}, nil
}

func fixed(argv ...string) Handler {
	return HandlerFunc(func(target.Target) (engine.Descriptor, error) {
		return engine.Descriptor{Argv: argv}, nil
	})
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(nil,
		Entry{Action: Action{ID: "a", Tab: "x"}, Handler: fixed("true")},
		Entry{Action: Action{ID: "a", Tab: "y"}, Handler: fixed("false")},
	)
	var dup *DuplicateActionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.ID)

	_, err = New(nil, Entry{Action: Action{Tab: "x"}, Handler: fixed("true")})
	assert.ErrorIs(t, err, ErrEmptyID)

	_, err = New(nil, Entry{Action: Action{ID: "a", Tab: "x"}})
	assert.Error(t, err)
}

func TestRegistry_UnknownAction(t *testing.T) {
	r, err := New(nil, Entry{Action: Action{ID: "a", Tab: "x"}, Handler: fixed("true")})
	require.NoError(t, err)

	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownAction)

	starter := &fakeStarter{}
	_, err = r.Dispatch(context.Background(), "nope", Binding{Starter: starter})
	var unknown *UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.ID)
	assert.Empty(t, starter.got, "nothing reaches the engine")
}

func TestRegistry_Order(t *testing.T) {
	r, err := New([]Tab{{ID: "b", Title: "Bee"}, {ID: "a", Title: "Ay"}},
		Entry{Action: Action{ID: "a2", Tab: "a"}, Handler: fixed("true")},
		Entry{Action: Action{ID: "b1", Tab: "b"}, Handler: fixed("true")},
		Entry{Action: Action{ID: "a1", Tab: "a"}, Handler: fixed("true")},
		Entry{Action: Action{ID: "c1", Tab: "c"}, Handler: fixed("true")},
	)
	require.NoError(t, err)

	assert.Equal(t, []Tab{{ID: "b", Title: "Bee"}, {ID: "a", Title: "Ay"}, {ID: "c", Title: "c"}}, r.Tabs())

	var ids []string
	for _, a := range r.Actions("a") {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a2", "a1"}, ids)
	assert.Empty(t, r.Actions("missing"))
}

func TestCommandHandler(t *testing.T) {
	local := target.Target{Name: "laptop"}
	remote := target.Target{Name: "backup", Host: "backup.lan"}

	tests := []struct {
		name   string
		action config.ActionConfig
		target target.Target
		want   engine.Descriptor
		err    error
	}{
		{
			name:   "plain argv",
			action: config.ActionConfig{ID: "ps", Argv: []string{"docker", "ps"}, Dir: "/srv", Timeout: config.Duration(time.Second)},
			want:   engine.Descriptor{Argv: []string{"docker", "ps"}, Dir: "/srv", Timeout: time.Second},
		},
		{
			name:   "command runs in shell mode",
			action: config.ActionConfig{ID: "r", Command: "docker restart $(docker ps -q)"},
			want:   engine.Descriptor{Argv: []string{"docker restart $(docker ps -q)"}, Shell: true},
		},
		{
			name:   "target substitution on a local target",
			action: config.ActionConfig{ID: "switch", Argv: []string{"nixos-rebuild", "switch", "--flake", ".#{target}"}, Elevate: true, RequiresTarget: true},
			target: local,
			want:   engine.Descriptor{Argv: []string{"nixos-rebuild", "switch", "--flake", ".#laptop"}, Elevate: true},
		},
		{
			name:   "missing target",
			action: config.ActionConfig{ID: "switch", Argv: []string{"nixos-rebuild"}, RequiresTarget: true},
			err:    ErrTargetRequired,
		},
		{
			name:   "actions without a target stay local",
			action: config.ActionConfig{ID: "uptime", Argv: []string{"uptime"}},
			target: remote,
			want:   engine.Descriptor{Argv: []string{"uptime"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := CommandHandler(tt.action, nil).Descriptor(tt.target)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestCommandHandler_RemoteTarget(t *testing.T) {
	a := config.ActionConfig{ID: "switch", Argv: []string{"nixos-rebuild", "switch", "--flake", ".#{target}"}, Elevate: true, RequiresTarget: true}
	d, err := CommandHandler(a, []string{"doas"}).Descriptor(target.Target{Name: "backup", Host: "backup.lan"})
	require.NoError(t, err)

	assert.Equal(t, "ssh", d.Argv[0])
	assert.Equal(t, "doas nixos-rebuild switch --flake '.#backup'", d.Argv[len(d.Argv)-1])
	assert.False(t, d.Elevate)
}

func TestCommandHandler_DoesNotShareArgv(t *testing.T) {
	a := config.ActionConfig{ID: "x", Argv: []string{"echo", "{target}"}}
	h := CommandHandler(a, nil)

	d1, err := h.Descriptor(target.Target{Name: "one"})
	require.NoError(t, err)
	d2, err := h.Descriptor(target.Target{Name: "two"})
	require.NoError(t, err)

	assert.Equal(t, []string{"echo", "one"}, d1.Argv)
	assert.Equal(t, []string{"echo", "two"}, d2.Argv)
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	r, err := FromConfig(cfg)
	require.NoError(t, err)

	a, err := r.Lookup("sys-reboot")
	require.NoError(t, err)
	assert.Equal(t, "system", a.Tab)
	assert.True(t, a.Dangerous)

	starter := &fakeStarter{}
	sess, err := r.Dispatch(context.Background(), "switch", Binding{Target: target.Target{Name: "superheavy"}, Starter: starter})
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	require.Len(t, starter.got, 1)
	assert.Equal(t, []string{"nixos-rebuild", "switch", "--flake", ".#superheavy"}, starter.got[0].Argv)

	_, err = r.Dispatch(context.Background(), "switch", Binding{Starter: starter})
	assert.True(t, errors.Is(err, ErrTargetRequired))
	assert.Len(t, starter.got, 1)
}
