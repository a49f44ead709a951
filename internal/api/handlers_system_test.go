package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/neonclock/internal/config"
)

func TestHandleSystemInfo(t *testing.T) {
	ts := newTestServer(t, withNotifier("ntfy://ntfy.sh/clock", "discord://token@id"))

	w := ts.do(http.MethodGet, "/api/system/info", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var info SystemInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))

	assert.Equal(t, config.Version, info.Version)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Contains(t, []string{"docker", "native"}, info.Environment)
	assert.True(t, info.StartedAt.Equal(testStart))

	assert.Equal(t, "8080", info.Config.Port)
	assert.Equal(t, 60, info.Config.FrameRate)
	assert.False(t, info.Config.WeatherLocationSet)
	assert.False(t, info.Config.AuthEnabled)
	assert.Equal(t, []string{"ntfy", "discord"}, info.Config.NotificationServices)
}

func TestHandleSystemInfo_NoSecrets(t *testing.T) {
	ts := newTestServer(t, withCredentials(t, "super-secret-key", ""))

	w := ts.do(http.MethodGet, "/api/system/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "super-secret-key")
	assert.Contains(t, w.Body.String(), `"auth_enabled":true`)
}

func TestSystemInfoLinksAreValid(t *testing.T) {
	ts := newTestServer(t)

	var info SystemInfo
	require.NoError(t, json.Unmarshal(ts.do(http.MethodGet, "/api/system/info", nil).Body.Bytes(), &info))

	for _, link := range []string{info.Links.GitHub, info.Links.Issues, info.Links.Releases} {
		assert.True(t, strings.HasPrefix(link, "https://github.com/mescon/neonclock"), link)
	}
}
