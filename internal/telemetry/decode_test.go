package telemetry

import (
	"testing"

	"github.com/danmuck/ctrldash/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGenericRecord(t *testing.T) {
	testlog.Start(t)

	u, err := NewDecoder(ModeAuto).Decode([]byte(`{"type":"touch_drive","axes":[0.5,0.8,0.0],"buttons":[0,0,1,false,true,0,0],"timestamp":1700000000123}`))
	require.NoError(t, err)
	assert.Equal(t, SchemaGeneric, u.Schema)
	assert.Equal(t, "touch_drive", u.Record.ControllerType)
	assert.Equal(t, []float64{0.5, 0.8, 0.0}, u.Record.Axes)
	assert.Equal(t, []Flag{false, false, true, false, true, false, false}, u.Record.Buttons)
	assert.Equal(t, int64(1700000000123), u.Record.TimestampMillis)
}

func TestDecodeGenericMissingArraysAreEmpty(t *testing.T) {
	u, err := NewDecoder(ModeAuto).Decode([]byte(`{"type":"ps4"}`))
	require.NoError(t, err)
	assert.NotNil(t, u.Record.Axes)
	assert.NotNil(t, u.Record.Buttons)
	assert.Empty(t, u.Record.Axes)
	assert.Zero(t, u.Record.TimestampMillis)
}

func TestDecodeMalformed(t *testing.T) {
	d := NewDecoder(ModeAuto)
	for _, line := range []string{
		`{"type":`,
		`not json`,
		`[1,2,3]`,
		`{"type":7}`,
		`{"type":"ps4","axes":["a"]}`,
		`{"type":"ps4","buttons":["on"]}`,
		`{"gas":"full"}`,
	} {
		_, err := d.Decode([]byte(line))
		assert.ErrorIs(t, err, ErrMalformed, "line=%s", line)
	}
}

func TestDecodeEmptyAndUnrecognized(t *testing.T) {
	d := NewDecoder(ModeAuto)
	_, err := d.Decode([]byte("   "))
	assert.ErrorIs(t, err, ErrEmptyRecord)

	_, err = d.Decode([]byte(`{"hello":"world"}`))
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestDecodeFixedFieldPatch(t *testing.T) {
	u, err := NewDecoder(ModeAuto).Decode([]byte(`{"steering":{"x":-0.25,"y":0.1},"gear":"D","leftBlinker":true,"timestamp":42}`))
	require.NoError(t, err)
	require.Equal(t, SchemaFixed, u.Schema)

	p := u.Patch
	require.NotNil(t, p.SteeringX)
	assert.Equal(t, -0.25, *p.SteeringX)
	assert.Equal(t, 0.1, *p.SteeringY)
	assert.Equal(t, GearDrive, *p.Gear)
	assert.True(t, *p.LeftBlinker)
	assert.Nil(t, p.Gas)
	assert.Nil(t, p.RightBlinker)
	assert.Equal(t, int64(42), *p.TimestampMillis)
}

func TestPatchApplyKeepsAbsentKeys(t *testing.T) {
	base := FixedFieldDefaults()
	base.Gas = 0.4
	base.AutoMode = true

	brake := 0.9
	out := Patch{Brake: &brake}.Apply(base)
	assert.Equal(t, 0.4, out.Gas)
	assert.Equal(t, 0.9, out.Brake)
	assert.True(t, out.AutoMode)
	assert.Equal(t, GearPark, out.Gear)
}

func TestDecodePinnedModes(t *testing.T) {
	_, err := NewDecoder(ModeGeneric).Decode([]byte(`{"gas":0.5}`))
	assert.ErrorIs(t, err, ErrUnrecognized)

	u, err := NewDecoder(ModeFixed).Decode([]byte(`{"type":"ps4","gas":0.5}`))
	require.NoError(t, err)
	assert.Equal(t, SchemaFixed, u.Schema)
	assert.Equal(t, 0.5, *u.Patch.Gas)
}

func TestParseSchemaMode(t *testing.T) {
	m, err := ParseSchemaMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseSchemaMode(" Fixed ")
	require.NoError(t, err)
	assert.Equal(t, ModeFixed, m)

	_, err = ParseSchemaMode("binary")
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestParseGear(t *testing.T) {
	assert.Equal(t, GearReverse, ParseGear("R"))
	assert.Equal(t, GearUnknown, ParseGear("X"))
	assert.Equal(t, GearUnknown, ParseGear(""))
}
