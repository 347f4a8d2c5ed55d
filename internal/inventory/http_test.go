package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/netopscore/internal/interfaces"
)

func TestFindDevice_ReturnsFirstMatchFromQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/api/devices", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]interfaces.Device{{ID: "dev-1", Name: "core-sw-1"}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "token-abc", 0)
	device, err := c.FindDevice(t.Context(), interfaces.FindDeviceQuery{Name: "core-sw-1"})
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, "dev-1", device.ID)
	assert.Contains(t, gotQuery, "name=core-sw-1")
}

func TestFindDevice_ReturnsNilWhenNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]interfaces.Device{})
	}))
	defer server.Close()

	c := NewClient(server.URL, "", 0)
	device, err := c.FindDevice(t.Context(), interfaces.FindDeviceQuery{Name: "missing"})
	require.NoError(t, err)
	assert.Nil(t, device)
}

func TestCreateDevice_SendsBearerAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(interfaces.Device{ID: "dev-2", Name: "new-device"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret-token", 0)
	created, err := c.CreateDevice(t.Context(), interfaces.Device{Name: "new-device"})
	require.NoError(t, err)
	assert.Equal(t, "dev-2", created.ID)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestDo_StatusErrorIsSurfacedAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", 0)
	_, err := c.FindDevice(t.Context(), interfaces.FindDeviceQuery{Name: "x"})
	assert.Error(t, err)
}

func TestFindOrCreate_DecodesIDAndCreatedFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/manufacturers/find-or-create", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "mfr-1", "created": true})
	}))
	defer server.Close()

	c := NewClient(server.URL, "", 0)
	id, created, err := c.FindOrCreate(t.Context(), "manufacturer", "Cisco", map[string]interface{}{"name": "Cisco"})
	require.NoError(t, err)
	assert.Equal(t, "mfr-1", id)
	assert.True(t, created)
}

func TestSetPrimaryIPv4_SendsPatchWithNoResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", 0)
	err := c.SetPrimaryIPv4(t.Context(), "dev-1", "ip-1")
	assert.NoError(t, err)
}
