package integrity

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"diary-sync/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, client *mocks.Client) *fiber.App {
	app := fiber.New()
	feature := NewFeature(setupService(t, client))
	assert.Equal(t, "integrity", feature.Name())
	assert.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app
}

func decode(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleSchemaCheck(t *testing.T) {
	app := setupTestApp(t, nil)

	status, body := decode(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["matched"])
}

func TestHandleRemoteCheck(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		app := setupTestApp(t, nil)
		status, body := decode(t, app, "/integrity/remote")
		assert.Equal(t, 200, status)
		assert.NotContains(t, body, "bucket")
		remote := body["remote"].(map[string]any)
		assert.Equal(t, true, remote["reachable"])
	})

	t.Run("Fix Bucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "diary").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "diary", mock.Anything).Return(nil)
		app := setupTestApp(t, client)

		status, body := decode(t, app, "/integrity/remote?fix=true")
		assert.Equal(t, 200, status)
		bucket := body["bucket"].(map[string]any)
		assert.Equal(t, true, bucket["exists"])
		assert.Equal(t, true, bucket["created"])
	})

	t.Run("Bucket Error", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "diary").Return(false, assert.AnError)
		app := setupTestApp(t, client)

		status, body := decode(t, app, "/integrity/remote")
		assert.Equal(t, 500, status)
		assert.NotEmpty(t, body["error"])
	})
}

func TestHandleEpisodeCheck(t *testing.T) {
	app := setupTestApp(t, nil)
	status, body := decode(t, app, "/integrity/episodes")
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(0), body["pending"])
}

func TestHandleIntegrityCheck(t *testing.T) {
	client := new(mocks.Client)
	// A failing bucket is reported inside the combined report.
	client.On("BucketExists", mock.Anything, "diary").Return(false, assert.AnError)
	app := setupTestApp(t, client)

	status, body := decode(t, app, "/integrity")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "schema")
	assert.Contains(t, body, "episodes")
	remote := body["remote"].(map[string]any)
	bucket := remote["bucket"].(map[string]any)
	assert.Equal(t, "error", bucket["status"])
}
