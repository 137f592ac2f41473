package state

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/danmuck/ctrldash/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreHoldsNeutralDefault(t *testing.T) {
	testlog.Start(t)

	snap := NewStore().Snapshot()
	assert.Equal(t, telemetry.UnknownControllerType, snap.Record.ControllerType)
	assert.Empty(t, snap.Record.Axes)
	assert.Empty(t, snap.Record.Buttons)
	assert.Zero(t, snap.Record.TimestampMillis)
	assert.Equal(t, telemetry.NeutralControls(), snap.Controls)
	assert.True(t, snap.LastUpdate.IsZero())
	assert.False(t, snap.Connected())
}

func TestReplaceDiscardsPriorRecord(t *testing.T) {
	s := NewStore()
	m := telemetry.NewMapper()
	at := time.Unix(100, 0)

	first := telemetry.Record{ControllerType: "ps4", Axes: []float64{0.1, 0, 0, 0, -1, 1}, Buttons: []telemetry.Flag{true}, TimestampMillis: 5}
	s.Replace(first, m.Map(first), at)
	second := telemetry.Record{ControllerType: "touch_drive", Axes: []float64{0, 0.5, 0}, TimestampMillis: 0}
	s.Replace(second, m.Map(second), at.Add(time.Second))

	snap := s.Snapshot()
	assert.Equal(t, "touch_drive", snap.Record.ControllerType)
	assert.Empty(t, snap.Record.Buttons)
	assert.Zero(t, snap.Record.TimestampMillis)
	assert.Equal(t, telemetry.NeutralControls(), snap.Controls)
	assert.Equal(t, at.Add(time.Second), snap.LastUpdate)
	assert.Equal(t, uint64(2), snap.Counters.Received)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	rec := telemetry.Record{ControllerType: "ps4", Axes: []float64{1, 2, 3}}
	s.Replace(rec, telemetry.NeutralControls(), time.Now())
	rec.Axes[0] = 99

	snap := s.Snapshot()
	assert.Equal(t, 1.0, snap.Record.Axes[0])
	snap.Record.Axes[1] = 42
	assert.Equal(t, 2.0, s.Snapshot().Record.Axes[1])
}

func TestPatchMergesFixedFields(t *testing.T) {
	s := NewStore()
	at := time.Unix(10, 0)
	gas, brake := 0.6, 0.2
	drive := telemetry.GearDrive
	ts := int64(77)

	s.Patch(telemetry.Patch{Gas: &gas, TimestampMillis: &ts}, at)
	snap := s.Snapshot()
	assert.Equal(t, telemetry.SchemaFixed, snap.Schema)
	assert.Equal(t, telemetry.GearPark, snap.Controls.Gear)
	assert.Equal(t, 0.6, snap.Controls.Gas)
	assert.Equal(t, telemetry.FixedFieldControllerType, snap.Record.ControllerType)
	assert.Equal(t, int64(77), snap.Record.TimestampMillis)

	s.Patch(telemetry.Patch{Brake: &brake, Gear: &drive}, at.Add(time.Second))
	snap = s.Snapshot()
	assert.Equal(t, 0.6, snap.Controls.Gas)
	assert.Equal(t, 0.2, snap.Controls.Brake)
	assert.Equal(t, telemetry.GearDrive, snap.Controls.Gear)
	assert.Equal(t, int64(77), snap.Record.TimestampMillis)
}

func TestPatchAfterGenericStartsFromFixedDefaults(t *testing.T) {
	s := NewStore()
	m := telemetry.NewMapper()
	rec := telemetry.Record{ControllerType: "touch_drive", Axes: []float64{0.5, 0.8, 0.1}, Buttons: make([]telemetry.Flag, 7), TimestampMillis: 9}
	s.Apply(telemetry.Update{Schema: telemetry.SchemaGeneric, Record: rec}, m.Map, time.Now())
	require.Equal(t, 0.8, s.Snapshot().Controls.Gas)

	brake := 1.0
	s.Apply(telemetry.Update{Schema: telemetry.SchemaFixed, Patch: telemetry.Patch{Brake: &brake}}, m.Map, time.Now())
	snap := s.Snapshot()
	assert.Equal(t, 0.0, snap.Controls.Gas)
	assert.Equal(t, 1.0, snap.Controls.Brake)
	assert.Zero(t, snap.Record.TimestampMillis)
}

func TestConnectionLifecycle(t *testing.T) {
	s := NewStore()
	s.SetConnection(Connection{ID: "a", RemoteIP: "10.0.0.2", RemotePort: 5555})
	snap := s.Snapshot()
	require.True(t, snap.Connected())
	assert.Equal(t, "10.0.0.2", snap.Connection.RemoteIP)
	assert.Equal(t, uint64(1), snap.Counters.Connections)

	s.ClearConnection("other")
	assert.True(t, s.Snapshot().Connected())
	s.ClearConnection("a")
	assert.False(t, s.Snapshot().Connected())

	s.RecordDrop()
	assert.Equal(t, uint64(1), s.Snapshot().Counters.Dropped)
}

func TestConcurrentReplaceAndSnapshotAreConsistent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := float64(i)
			rec := telemetry.Record{ControllerType: "ps4", Axes: []float64{v, v, v, v, v, v}, TimestampMillis: int64(i)}
			s.Replace(rec, telemetry.Controls{Steering: v}, time.Now())
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := s.Snapshot()
		if snap.Record.ControllerType != "ps4" {
			continue
		}
		ts := float64(snap.Record.TimestampMillis)
		for _, a := range snap.Record.Axes {
			require.Equal(t, ts, a)
		}
		require.Equal(t, ts, snap.Controls.Steering)
	}
	close(stop)
	wg.Wait()
}
