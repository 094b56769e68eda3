package model

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriState_ZeroValueIsPending(t *testing.T) {
	t.Parallel()

	var ts TriState
	assert.True(t, ts.IsPending())
	_, ok := ts.Bool()
	assert.False(t, ok)
	assert.Equal(t, "pending", ts.String())
}

func TestTriState_FromBoolPtr(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	assert.Equal(t, Pending, FromBoolPtr(nil))
	assert.Equal(t, True, FromBoolPtr(&yes))
	assert.Equal(t, False, FromBoolPtr(&no))
}

func TestTriState_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   TriState
		want string
	}{
		{Pending, "null"},
		{True, "true"},
		{False, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))

			var got TriState
			require.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestTriState_FalseIsNotPending(t *testing.T) {
	t.Parallel()

	var l struct {
		V TriState `json:"v"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"v":false}`), &l))
	assert.Equal(t, False, l.V)
	assert.False(t, l.V.IsPending())
}

func TestTriState_SQL(t *testing.T) {
	t.Parallel()

	v, err := Pending.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = False.Value()
	require.NoError(t, err)
	assert.Equal(t, false, v)

	tests := []struct {
		name string
		src  any
		want TriState
	}{
		{"nil", nil, Pending},
		{"bool true", true, True},
		{"int64 zero", int64(0), False},
		{"int64 one", int64(1), True},
		{"bytes t", []byte("t"), True},
		{"string false", "false", False},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ts TriState
			require.NoError(t, ts.Scan(tt.src))
			assert.Equal(t, tt.want, ts)
		})
	}

	var ts TriState
	err := ts.Scan(3.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model: cannot scan float64 into TriState")
	assert.NotEmpty(t, eris.ToString(err, true))
	assert.Error(t, ts.Scan("maybe"))
}

func TestParseTriState(t *testing.T) {
	t.Parallel()

	got, err := ParseTriState("true")
	require.NoError(t, err)
	assert.Equal(t, True, got)

	got, err = ParseTriState("")
	require.NoError(t, err)
	assert.Equal(t, Pending, got)

	_, err = ParseTriState("yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `model: invalid tri-state "yes"`)
}
