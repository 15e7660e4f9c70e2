package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Default(t *testing.T) {
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "8700", cfg.Port)
}

func TestLoadServerConfig_FromEnv(t *testing.T) {
	t.Setenv("COORDD_PORT", "9100")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
}

func TestLoadServerConfig_InvalidPort(t *testing.T) {
	t.Setenv("COORDD_PORT", "not-a-port")
	_, err := LoadServerConfig()
	assert.Error(t, err)

	t.Setenv("COORDD_PORT", "70000")
	_, err = LoadServerConfig()
	assert.Error(t, err)
}
