package argocd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

const testToken = "s3cr3t"

type fakeArgo struct {
	t        *testing.T
	apps     map[string]string
	manifest string
	puts     []map[string]interface{}
	patches  []*http.Request
	bodies   []string
	status   int
}

func (f *fakeArgo) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "admin" || req.Password != "pw" {
			http.Error(w, `{"error":"invalid username or password"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(sessionResponse{Token: testToken})
	})

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(tokenCookie)
			if err != nil || cookie.Value != testToken {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			if f.status != 0 {
				http.Error(w, "upstream broke", f.status)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /api/v1/applications/{name}", authed(func(w http.ResponseWriter, r *http.Request) {
		app, ok := f.apps[r.PathValue("name")]
		if !ok {
			http.Error(w, `{"error":"application not found"}`, http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, app)
	}))

	mux.HandleFunc("PUT /api/v1/applications/{name}", authed(func(w http.ResponseWriter, r *http.Request) {
		var obj map[string]interface{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&obj))
		f.puts = append(f.puts, obj)
		_ = json.NewEncoder(w).Encode(obj)
	}))

	mux.HandleFunc("GET /api/v1/applications/{name}/resource", authed(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(resourceResponse{Manifest: f.manifest})
	}))

	mux.HandleFunc("POST /api/v1/applications/{name}/resource", authed(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.patches = append(f.patches, r)
		f.bodies = append(f.bodies, string(body))
		_, _ = io.WriteString(w, `{}`)
	}))

	return mux
}

const shopApp = `{
  "metadata": {"name": "shop.staging", "resourceVersion": "42"},
  "spec": {"project": "default", "syncPolicy": {"automated": {"prune": false, "selfHeal": false}}},
  "status": {"resources": [
    {"kind": "Deployment", "name": "shop-staging", "namespace": "shop", "group": "apps", "version": "v1"},
    {"kind": "Service", "name": "shop-staging", "namespace": "shop", "version": "v1"}
  ]}
}`

func newTestClient(t *testing.T, f *fakeArgo) *Client {
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		URL:         srv.URL + "/api/v1/",
		Username:    "admin",
		Password:    "pw",
		Timeout:     5 * time.Second,
		MaxFailures: 2,
	})
	require.NoError(t, c.Login(context.Background()))
	return c
}

func TestClient_LoginFailure(t *testing.T) {
	f := &fakeArgo{t: t}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL + "/api/v1", Username: "admin", Password: "wrong"})
	err := c.Login(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestClient_RequiresSession(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1"})
	_, err := c.GetApplication(context.Background(), "shop")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClient_GetApplication(t *testing.T) {
	c := newTestClient(t, &fakeArgo{apps: map[string]string{"shop.staging": shopApp}})

	app, err := c.GetApplication(context.Background(), "shop.staging")
	require.NoError(t, err)
	assert.Equal(t, "shop.staging", app.Name())

	enabled, err := app.AutoSyncEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	resources, err := app.Resources()
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, models.Deployment{Kind: "Deployment", Name: "shop-staging", Namespace: "shop", Group: "apps", Version: "v1"}, resources[0])
}

func TestClient_GetApplicationNotFound(t *testing.T) {
	c := newTestClient(t, &fakeArgo{apps: map[string]string{}})

	_, err := c.GetApplication(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrRequestFailed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "application not found")
}

func TestClient_UpdateApplicationKeepsObject(t *testing.T) {
	f := &fakeArgo{apps: map[string]string{"shop.staging": shopApp}}
	c := newTestClient(t, f)
	ctx := context.Background()

	app, err := c.GetApplication(ctx, "shop.staging")
	require.NoError(t, err)

	app.SetAutoSync(false)
	require.NoError(t, c.UpdateApplication(ctx, app))

	require.Len(t, f.puts, 1)
	put := f.puts[0]
	assert.Equal(t, map[string]interface{}{}, put["spec"].(map[string]interface{})["syncPolicy"])
	assert.Equal(t, "default", put["spec"].(map[string]interface{})["project"])
	assert.Equal(t, "42", put["metadata"].(map[string]interface{})["resourceVersion"])
}

func TestClient_Replicas(t *testing.T) {
	f := &fakeArgo{manifest: `{"kind":"Deployment","spec":{"replicas":3}}`}
	c := newTestClient(t, f)
	ctx := context.Background()
	d := models.Deployment{Kind: "Deployment", Name: "shop-staging", Namespace: "shop", Group: "apps", Version: "v1"}

	replicas, err := c.GetReplicas(ctx, "shop.staging", d)
	require.NoError(t, err)
	assert.Equal(t, int64(3), replicas)

	require.NoError(t, c.PatchReplicas(ctx, "shop.staging", d, 0))
	require.Len(t, f.patches, 1)

	q := f.patches[0].URL.Query()
	assert.Equal(t, "application/merge-patch+json", q.Get("patchType"))
	assert.Equal(t, "shop-staging", q.Get("resourceName"))
	assert.Equal(t, "shop", q.Get("namespace"))
	assert.Equal(t, "apps", q.Get("group"))
	assert.Equal(t, `"{\"spec\":{\"replicas\":0}}"`, f.bodies[0])
}

func TestClient_ReplicasUnexpectedShape(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"empty manifest", ""},
		{"no replicas", `{"kind":"Deployment","spec":{}}`},
		{"not json", `spec: replicas`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeArgo{manifest: tt.manifest})
			_, err := c.GetReplicas(context.Background(), "shop", models.Deployment{Name: "shop"})
			assert.ErrorIs(t, err, models.ErrUnexpectedShape)
		})
	}
}

func TestClient_CircuitOpensOnServerErrors(t *testing.T) {
	f := &fakeArgo{apps: map[string]string{"shop": shopApp}}
	c := newTestClient(t, f)
	ctx := context.Background()

	f.status = http.StatusBadGateway
	for i := 0; i < 2; i++ {
		_, err := c.GetApplication(ctx, "shop")
		assert.ErrorIs(t, err, ErrRequestFailed)
	}

	f.status = 0
	_, err := c.GetApplication(ctx, "shop")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestApplication_Shapes(t *testing.T) {
	t.Run("missing sync policy means disabled", func(t *testing.T) {
		app, err := ParseApplication([]byte(`{"metadata":{"name":"a"},"spec":{},"status":{}}`))
		require.NoError(t, err)
		enabled, err := app.AutoSyncEnabled()
		require.NoError(t, err)
		assert.False(t, enabled)

		resources, err := app.Resources()
		require.NoError(t, err)
		assert.Empty(t, resources)
	})

	t.Run("missing spec", func(t *testing.T) {
		app, err := ParseApplication([]byte(`{"metadata":{"name":"a"}}`))
		require.NoError(t, err)
		_, err = app.AutoSyncEnabled()
		assert.ErrorIs(t, err, models.ErrUnexpectedShape)
	})

	t.Run("missing status", func(t *testing.T) {
		app, err := ParseApplication([]byte(`{"metadata":{"name":"a"},"spec":{}}`))
		require.NoError(t, err)
		_, err = app.Resources()
		assert.ErrorIs(t, err, models.ErrUnexpectedShape)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := ParseApplication([]byte(`[1,2]`))
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("toggle", func(t *testing.T) {
		app := NewApplication("a", false)
		enabled, _ := app.AutoSyncEnabled()
		assert.False(t, enabled)

		app.SetAutoSync(true)
		enabled, _ = app.AutoSyncEnabled()
		assert.True(t, enabled)
	})
}
