package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeouts(t *testing.T) {
	cfg := Config{ReadTimeoutSeconds: 5, WriteTimeoutSeconds: 0}
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout())
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())

	cfg.ShutdownTimeoutSeconds = 3
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout())
}

func TestLocation(t *testing.T) {
	loc, err := Config{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = Config{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = Config{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
