package deployments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestyard/nest-go/api"
	"github.com/nestyard/nest-go/apps"
)

func testClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := api.NewClient(&api.Config{
		Address:         srv.URL,
		ApiVersion:      1,
		DeviceSignature: "test-device",
		HttpClient:      srv.Client(),
		Timeout:         10 * time.Second,
		CachePath:       t.TempDir(),
	})
	require.NoError(t, err)
	return c
}

func TestDeploymentNestedPaths(t *testing.T) {
	assert := assert.New(t)

	app := &apps.App{Id: 1}
	d := &Deployment{App: app, Id: 7}
	assert.Equal("apps/1/deployments/", d.CollectionPath())
	assert.Equal("apps/1/deployments/7/", d.CollectionKey())

	// No owner, no addressable path.
	assert.Equal("", (&Deployment{Id: 7}).CollectionKey())
	assert.Equal("", (&Deployment{App: app}).CollectionKey())
}

func TestDeploymentCreateUnderApp(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/apps/1/deployments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPost, r.Method)

		sent := new(Deployment)
		require.NoError(json.NewDecoder(r.Body).Decode(sent))
		assert.Equal(int64(9), sent.ForestId)

		resp := map[string]any{
			"result_code": 0,
			"result_text": "ok",
			"data": map[string]any{"payload": map[string]any{
				"id": 7, "forest_id": 9, "status": "deploying",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	c := testClient(t, mux)
	app := &apps.App{Id: 1}

	st, err := NewClient(c).Create(context.Background(), &Deployment{App: app, ForestId: 9})
	require.NoError(err)
	require.True(st.Ok())

	created, ok := st.Payload.One()
	require.True(ok)
	assert.Equal(int64(7), created.Id)
	// The owner rides through decoding, so the created deployment is
	// addressable and its snapshot lands under the nested key.
	assert.Equal(app, created.App)
	cached := new(Deployment)
	assert.True(c.Cache().Load("apps/1/deployments/7/", cached))
	assert.Equal("deploying", cached.Status)
}
