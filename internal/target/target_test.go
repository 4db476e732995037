package target

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/engine"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"nginx", "nginx"},
		{"--type=service", "--type=service"},
		{".#laptop", "'.#laptop'"},
		{"", "''"},
		{"two words", "'two words'"},
		{"it's", `'it'"'"'s'`},
		{"$(reboot)", "'$(reboot)'"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, shellQuote(tt.in))
		})
	}
}

func TestWrap_LocalIsUnchanged(t *testing.T) {
	d := engine.Descriptor{Argv: []string{"systemctl", "reboot"}, Elevate: true, Dir: "/srv"}
	assert.Equal(t, d, Target{Name: "laptop"}.Wrap(d, nil))
}

func TestWrap_Remote(t *testing.T) {
	tgt := Target{Name: "backup", Host: "backup.lan", User: "root", SSHKey: "/k", Port: 2222}
	sshPrefix := []string{
		"ssh", "-t",
		"-o", "ControlMaster=auto",
		"-o", "ControlPath=/tmp/managectl-ssh-%r@%h:%p",
		"-o", "ControlPersist=60",
		"-o", "StrictHostKeyChecking=accept-new",
		"-i", "/k",
		"-p", "2222",
		"root@backup.lan",
	}

	tests := []struct {
		name   string
		in     engine.Descriptor
		remote string
	}{
		{
			name:   "argv is quoted",
			in:     engine.Descriptor{Argv: []string{"git", "commit", "-m", "two words"}},
			remote: "git commit -m 'two words'",
		},
		{
			name:   "elevation runs remotely",
			in:     engine.Descriptor{Argv: []string{"systemctl", "reboot"}, Elevate: true},
			remote: "doas systemctl reboot",
		},
		{
			name:   "shell mode passes the line through",
			in:     engine.Descriptor{Argv: []string{"docker restart $(docker ps -q)"}, Shell: true},
			remote: "docker restart $(docker ps -q)",
		},
		{
			name:   "elevated shell mode",
			in:     engine.Descriptor{Argv: []string{"du -ah / | sort -rh"}, Shell: true, Elevate: true},
			remote: "doas sh -c 'du -ah / | sort -rh'",
		},
		{
			name:   "working directory",
			in:     engine.Descriptor{Argv: []string{"git", "pull"}, Dir: "/etc/nixos"},
			remote: "cd /etc/nixos && git pull",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Timeout = time.Minute
			got := tgt.Wrap(tt.in, []string{"doas"})

			assert.Equal(t, append(append([]string(nil), sshPrefix...), tt.remote), got.Argv)
			assert.False(t, got.Shell)
			assert.False(t, got.Elevate)
			assert.Empty(t, got.Dir)
			assert.Equal(t, time.Minute, got.Timeout)
		})
	}
}

func TestAll(t *testing.T) {
	cfg := &config.Config{
		DefaultTarget: "laptop",
		Targets: map[string]config.TargetConfig{
			"superheavy": {Host: "10.0.0.2"},
			"laptop":     {},
			"backup":     {Host: "backup.lan", User: "root"},
		},
	}
	got := All(cfg)

	assert.Equal(t, []Target{
		{Name: "laptop"},
		{Name: "backup", Host: "backup.lan", User: "root"},
		{Name: "superheavy", Host: "10.0.0.2"},
	}, got)
	assert.False(t, got[0].IsRemote())
	assert.Equal(t, "backup (root@backup.lan)", got[1].String())
	assert.Equal(t, "superheavy (10.0.0.2)", got[2].String())
}
