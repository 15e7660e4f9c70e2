package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConnection_SingleAddress(t *testing.T) {
	cfg, err := DecodeConnection(strings.NewReader(
		"address: postgres://user@localhost:5432/bench\nusername: u\npassword: s\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres://user@localhost:5432/bench"}, cfg.Endpoints())
	assert.Equal(t, "u", cfg.Username)
}

func TestDecodeConnection_AddressList(t *testing.T) {
	cfg, err := DecodeConnection(strings.NewReader(
		"addresses:\n  - http://es1:9200\n  - http://es2:9200\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Endpoints())
}

func TestDecodeConnection_ListWinsOverSingle(t *testing.T) {
	cfg, err := DecodeConnection(strings.NewReader(
		"address: http://single:9200\naddresses: [http://a:9200]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:9200"}, cfg.Endpoints())
}

func TestDecodeConnection_Malformed(t *testing.T) {
	_, err := DecodeConnection(strings.NewReader("- a\n- list\n"))
	assert.Error(t, err)
}

func TestEndpoints_Empty(t *testing.T) {
	assert.Nil(t, ConnectionConfig{}.Endpoints())
}
