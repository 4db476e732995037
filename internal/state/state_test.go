package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon/managectl/internal/engine"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"git-status", "sys-uptime", "git-status"} {
		start := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Record(Run{
			ID:         action + string(rune('a'+i)),
			Action:     action,
			Command:    action,
			Outcome:    "success",
			Lines:      i,
			StartedAt:  start,
			FinishedAt: start.Add(1500 * time.Millisecond),
		}))
	}

	runs, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "git-statusc", runs[0].ID)
	assert.Equal(t, "sys-uptimeb", runs[1].ID)
	assert.Equal(t, 2, runs[0].Lines)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration())
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Minute)))

	last, err := s.LastByAction()
	require.NoError(t, err)
	assert.Len(t, last, 2)
	assert.Equal(t, "git-statusc", last["git-status"].ID)
}

func TestStore_RecordSameIDUpdates(t *testing.T) {
	s := openTemp(t)
	now := time.Now()

	run := Run{ID: "s1", Action: "a", Outcome: "cancelled", ExitCode: 130, StartedAt: now, FinishedAt: now}
	require.NoError(t, s.Record(run))
	run.Outcome, run.ExitCode = "success", 0
	require.NoError(t, s.Record(run))

	runs, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Outcome)
	assert.Equal(t, 0, runs[0].ExitCode)
}

func TestNewRun(t *testing.T) {
	start := time.Now()
	res := engine.Result{
		Session:    "abc",
		Outcome:    engine.Timeout,
		Lines:      3,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}

	r := NewRun("net-trace", "laptop", "traceroute 8.8.8.8", res)
	assert.Equal(t, "abc", r.ID)
	assert.Equal(t, "timeout", r.Outcome)
	assert.Equal(t, engine.CodeTimeout, r.ExitCode)
	assert.Equal(t, "laptop", r.Target)
	assert.Equal(t, time.Second, r.Duration())
}

func TestOpen_UsesStateHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	s, err := Open()
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, filepath.Join(dir, "managectl", "state.db"))
}
