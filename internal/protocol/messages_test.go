package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(TypeCommit, CommitData{Choice: "rock", Value: 100})
	require.NoError(t, err)
	assert.False(t, msg.Timestamp.IsZero())

	data, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, TypeCommit, decoded.Type)

	var commit CommitData
	require.NoError(t, decoded.DecodeData(&commit))
	assert.Equal(t, "rock", commit.Choice)
	assert.EqualValues(t, 100, commit.Value)
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Unmarshal([]byte(`{"type":"reveal","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Unmarshal([]byte(`{not json`))
	assert.Error(t, err)
}

func TestMessageWithoutPayload(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(TypeDistribute, nil)
	require.NoError(t, err)

	data, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, TypeDistribute, decoded.Type)

	var payload CommitData
	assert.ErrorIs(t, decoded.DecodeData(&payload), ErrEmptyPayload)
}
