package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNodeFromPath(t *testing.T) {
	node, ok := NodeFromPath("commands/dev-1/relay/2")
	assert.True(t, ok)
	assert.Equal(t, NodeIdentity{DeviceID: "dev-1", Channel: ChannelRelay, Slot: "2"}, node)
	assert.Equal(t, "commands/dev-1/relay/2", node.Path())
	assert.Equal(t, "state/dev-1/relay/2", node.StatePath())

	_, ok = NodeFromPath("heartbeats/dev-1")
	assert.False(t, ok)

	_, ok = NodeFromPath("commands/dev-1/relay")
	assert.False(t, ok)
}

func TestNodeCatalog(t *testing.T) {
	gps := NodeIdentity{DeviceID: "d", Channel: ChannelMotor, Slot: "gps"}
	assert.True(t, gps.Recognized())
	assert.True(t, gps.Supports("locate"))
	assert.False(t, gps.Supports(ActionOn))
	assert.False(t, gps.IsRelay())

	assert.False(t, NodeIdentity{DeviceID: "d", Channel: ChannelRelay, Slot: "5"}.Recognized())
}

func TestLivenessEvaluate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	threshold := 10 * time.Minute

	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{name: "never seen", want: false},
		{name: "just inside", last: now.Add(-threshold + time.Second), want: true},
		{name: "at threshold", last: now.Add(-threshold), want: false},
		{name: "future", last: now.Add(time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := LivenessState{LastHeartbeatAt: tt.last}
			assert.Equal(t, tt.want, s.Evaluate(now, threshold))
		})
	}
}

func TestSensorValues(t *testing.T) {
	one, two := 1.0, 2.0

	assert.True(t, (&SensorValues{}).Empty())
	assert.False(t, (&SensorValues{PH: &one}).Empty())

	a := SensorValues{PH: &one, Nitrogen: &two}
	b := SensorValues{PH: &one, Nitrogen: &two}
	assert.True(t, a.Equal(&b))

	b.Nitrogen = nil
	assert.False(t, a.Equal(&b))
}

func TestEffectiveTime(t *testing.T) {
	received := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	source := received.Add(-time.Minute)

	r := SensorReading{SourceTimestamp: source, ReceivedAt: received}
	assert.Equal(t, source, r.EffectiveTime())

	r.BootRelative = true
	assert.Equal(t, received, r.EffectiveTime())
}
