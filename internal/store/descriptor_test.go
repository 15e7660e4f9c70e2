package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_RoundTrip(t *testing.T) {
	info := RunInfo{
		Backend: BackendPostgres,
		RunID:   uuid.New(),
		Number:  42,
		DataSet: "physics-2026",
	}
	desc, err := info.Encode()
	require.NoError(t, err)

	decoded, err := DecodeDescriptor(desc)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
}

func TestDescriptor_Comparable(t *testing.T) {
	info := RunInfo{Backend: BackendMemory, RunID: uuid.New(), Number: 0, DataSet: "ds"}
	a, err := info.Encode()
	require.NoError(t, err)
	b, err := info.Encode()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDescriptor_BadMagic(t *testing.T) {
	info := RunInfo{Backend: BackendMemory, RunID: uuid.New(), DataSet: "ds"}
	desc, err := info.Encode()
	require.NoError(t, err)

	desc[0] = 'X'
	_, err = DecodeDescriptor(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestDescriptor_BadVersion(t *testing.T) {
	info := RunInfo{Backend: BackendMemory, RunID: uuid.New(), DataSet: "ds"}
	desc, err := info.Encode()
	require.NoError(t, err)

	desc[4] = 99
	_, err = DecodeDescriptor(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestDescriptor_UninitializedIsGarbage(t *testing.T) {
	var desc RunDescriptor
	_, err := DecodeDescriptor(desc)
	assert.Error(t, err)
}

func TestDescriptor_DataSetNameTooLong(t *testing.T) {
	info := RunInfo{
		Backend: BackendMemory,
		RunID:   uuid.New(),
		DataSet: "a-dataset-name-well-beyond-the-thirty-two-byte-limit",
	}
	_, err := info.Encode()
	assert.Error(t, err)
}
