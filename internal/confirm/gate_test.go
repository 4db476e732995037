package confirm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type selection struct {
	id        string
	dangerous bool
	disarm    bool // navigation instead of a selection
}

func TestGate(t *testing.T) {
	tests := []struct {
		name   string
		steps  []selection
		expect []Decision
	}{
		{
			name:   "safe action runs immediately",
			steps:  []selection{{id: "status"}},
			expect: []Decision{Proceed},
		},
		{
			name:   "dangerous action needs two selections",
			steps:  []selection{{id: "reboot", dangerous: true}, {id: "reboot", dangerous: true}},
			expect: []Decision{AwaitConfirm, Proceed},
		},
		{
			name: "A then B then A needs a fresh confirmation",
			steps: []selection{
				{id: "reboot", dangerous: true},
				{id: "status"},
				{id: "reboot", dangerous: true},
				{id: "reboot", dangerous: true},
			},
			expect: []Decision{AwaitConfirm, Dismissed, AwaitConfirm, Proceed},
		},
		{
			name: "dangerous B does not inherit A",
			steps: []selection{
				{id: "reboot", dangerous: true},
				{id: "wipe", dangerous: true},
				{id: "wipe", dangerous: true},
				{id: "wipe", dangerous: true},
			},
			expect: []Decision{AwaitConfirm, Dismissed, AwaitConfirm, Proceed},
		},
		{
			name: "navigation disarms",
			steps: []selection{
				{id: "reboot", dangerous: true},
				{disarm: true},
				{id: "reboot", dangerous: true},
			},
			expect: []Decision{AwaitConfirm, AwaitConfirm},
		},
		{
			name: "gate is unarmed after confirming",
			steps: []selection{
				{id: "reboot", dangerous: true},
				{id: "reboot", dangerous: true},
				{id: "reboot", dangerous: true},
			},
			expect: []Decision{AwaitConfirm, Proceed, AwaitConfirm},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Gate
			var got []Decision
			for _, s := range tt.steps {
				if s.disarm {
					g.Disarm()
					continue
				}
				got = append(got, g.Select(s.id, s.id, s.dangerous))
			}
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestGate_ArmedRecord(t *testing.T) {
	var g Gate
	_, ok := g.Armed()
	assert.False(t, ok)

	g.Select("reboot", "Reboot system", true)
	rec, ok := g.Armed()
	assert.True(t, ok)
	assert.Equal(t, Record{ID: "reboot", Title: "Reboot system"}, rec)

	g.Disarm()
	_, ok = g.Armed()
	assert.False(t, ok)
}
