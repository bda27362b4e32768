package contacts

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

func TestContactNestedPaths(t *testing.T) {
	assert := assert.New(t)

	app := &apps.App{Id: 1}
	c := &Contact{App: app, Id: 5}
	assert.Equal("apps/1/contacts/", c.CollectionPath())
	assert.Equal("apps/1/contacts/5/", c.CollectionKey())

	assert.Equal("", (&Contact{Id: 5}).CollectionKey())
	assert.Equal("", (&Contact{App: app}).CollectionKey())
}

func TestContactInviteAndList(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	app := &apps.App{Id: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/apps/1/contacts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			sent := new(Contact)
			require.NoError(json.NewDecoder(r.Body).Decode(sent))
			assert.Equal("ops@nest.test", sent.Email)

			resp := map[string]any{
				"result_code": 0,
				"result_text": "ok",
				"data": map[string]any{"payload": map[string]any{
					"id": 5, "email": "ops@nest.test", "status": "invited",
				}},
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodGet:
			resp := map[string]any{
				"result_code": 0,
				"result_text": "ok",
				"data": map[string]any{"payload": []map[string]any{
					{"id": 5, "email": "ops@nest.test", "status": "accepted"},
					{"id": 6, "email": "dev@nest.test", "status": "invited"},
				}},
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	c := testClient(t, mux)
	contactClient := NewClient(c)

	st, err := contactClient.Create(ctx, &Contact{App: app, Email: "ops@nest.test"})
	require.NoError(err)
	require.True(st.Ok())
	invited, ok := st.Payload.One()
	require.True(ok)
	assert.Equal(int64(5), invited.Id)
	// The owner rides through decoding; the snapshot lands under the app.
	assert.Equal(app, invited.App)
	assert.True(c.Cache().Load("apps/1/contacts/5/", new(Contact)))

	st, err = contactClient.List(ctx, app)
	require.NoError(err)
	require.True(st.Ok())
	items, ok := st.Payload.Many()
	require.True(ok)
	require.Len(items, 2)
	assert.Equal("accepted", items[0].Status)
	assert.True(c.Cache().Load("apps/1/contacts/6/", new(Contact)))
}

func TestContactClientArgumentChecks(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	c := NewClient(testClient(t, http.NewServeMux()))

	_, err := c.Create(ctx, &Contact{Email: "ops@nest.test"})
	require.Error(err)
	_, err = c.Read(ctx, &Contact{App: &apps.App{Id: 1}})
	require.Error(err)
	_, err = c.List(ctx, nil)
	require.Error(err)
	_, err = c.Delete(ctx, &Contact{Id: 5})
	require.Error(err)
}
