package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// widget is the entity used throughout the core tests.
type widget struct {
	Id     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

func (w *widget) CollectionPath() string {
	return "widgets/"
}

func (w *widget) CollectionKey() string {
	if w.Id == 0 {
		return ""
	}
	return fmt.Sprintf("widgets/%d/", w.Id)
}

func testClient(t *testing.T, handler http.Handler, withCache bool) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &Config{
		Address:         srv.URL,
		ApiVersion:      1,
		DeviceSignature: "test-device",
		HttpClient:      srv.Client(),
		Timeout:         10 * time.Second,
	}
	if withCache {
		cfg.CachePath = t.TempDir()
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

// writeEnvelope writes a platform response envelope.
func writeEnvelope(w http.ResponseWriter, httpStatus, code int, text string, payload any) {
	resp := map[string]any{
		"result_code": code,
		"result_text": text,
		"notes":       "",
	}
	if payload != nil {
		resp["data"] = map[string]any{"payload": payload}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
