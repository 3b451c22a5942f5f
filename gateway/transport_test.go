package gateway_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-docshare-client/gateway"
	"github.com/jrsteele09/go-docshare-client/session"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/token/refresh"
	tokenfakerepo "github.com/jrsteele09/go-docshare-client/token/repofake"
	"github.com/stretchr/testify/require"
)

type seen struct {
	auth      string
	requestID string
	body      string
}

type testFixture struct {
	server    *httptest.Server
	store     *session.Store
	client    *http.Client
	handler   http.HandlerFunc
	refreshes atomic.Int64
	expired   atomic.Int64
	grant     func() (refresh.Grant, error)

	mu   sync.Mutex
	seen []seen
}

func setupTestFixture(t *testing.T, stored token.Pair) *testFixture {
	t.Helper()
	f := &testFixture{
		grant: func() (refresh.Grant, error) { return refresh.Grant{Access: "A2"}, nil },
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.seen = append(f.seen, seen{
			auth:      r.Header.Get("Authorization"),
			requestID: r.Header.Get(gateway.RequestIDHeader),
			body:      string(body),
		})
		f.mu.Unlock()
		f.handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	store, err := session.New(tokenfakerepo.NewFakeTokenRepoWith(stored))
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	require.NoError(t, err)
	f.store = store

	coordinator, err := refresh.NewCoordinator(store,
		func(context.Context, string) (refresh.Grant, error) {
			f.refreshes.Add(1)
			return f.grant()
		},
		refresh.WithSessionExpired(func(error) { f.expired.Add(1) }),
	)
	require.NoError(t, err)

	transport, err := gateway.New(store, coordinator)
	require.NoError(t, err)
	f.client = &http.Client{Transport: transport}
	return f
}

// acceptOnly answers 401 unless the request carries one of the given tokens.
func acceptOnly(tokens ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, tok := range tokens {
			if r.Header.Get("Authorization") == "Bearer "+tok {
				_, _ = io.WriteString(w, `{"ok":true}`)
				return
			}
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Given token not valid for any token type"}`)
	}
}

func (f *testFixture) requests() []seen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seen(nil), f.seen...)
}

func (f *testFixture) get(t *testing.T, ctx context.Context) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/api/profile/", nil)
	require.NoError(t, err)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestTransport_AttachesToken(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	f.handler = acceptOnly("A1")

	resp := f.get(t, context.Background())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "Bearer A1", reqs[0].auth)
	require.NotEmpty(t, reqs[0].requestID)
	require.Equal(t, int64(0), f.refreshes.Load())
}

func TestTransport_AnonymousRequest(t *testing.T) {
	f := setupTestFixture(t, token.Pair{})
	f.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}

	resp := f.get(t, context.Background())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, f.requests()[0].auth)
}

func TestTransport_RefreshOn401(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	f.handler = acceptOnly("A2")

	resp := f.get(t, context.Background())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.requests()
	require.Len(t, reqs, 2)
	require.Equal(t, "Bearer A1", reqs[0].auth)
	require.Equal(t, "Bearer A2", reqs[1].auth)
	require.Equal(t, reqs[0].requestID, reqs[1].requestID)
	require.Equal(t, "A2", f.store.AccessToken())
	require.Equal(t, int64(1), f.refreshes.Load())
}

func TestTransport_RetriedOutcomeIsTerminal(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	f.handler = acceptOnly()

	resp := f.get(t, context.Background())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, f.requests(), 2)
	require.Equal(t, int64(1), f.refreshes.Load())
	// the refresh itself succeeded, so the session stays
	require.Equal(t, "A2", f.store.AccessToken())
}

func TestTransport_RefreshFailureReturnsOriginal401(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	f.handler = acceptOnly()
	f.grant = func() (refresh.Grant, error) {
		return refresh.Grant{}, io.ErrUnexpectedEOF
	}

	resp := f.get(t, context.Background())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Given token not valid")

	require.Len(t, f.requests(), 1)
	snap := f.store.Snapshot()
	require.True(t, snap.Tokens.IsZero())
	require.Nil(t, snap.User)
	require.Equal(t, int64(1), f.expired.Load())
}

func TestTransport_NonAuthErrorsPassThrough(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	f.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}

	resp := f.get(t, context.Background())
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Len(t, f.requests(), 1)
	require.Equal(t, int64(0), f.refreshes.Load())
}

func TestTransport_BodyReplayed(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	f.handler = acceptOnly("A2")

	t.Run("with GetBody", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPatch, f.server.URL+"/api/profile/", strings.NewReader(`{"bio":"x"}`))
		require.NoError(t, err)
		resp, err := f.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("without GetBody", func(t *testing.T) {
		require.NoError(t, f.store.ApplyRefresh(context.Background(), "R1", "A3", ""))
		f.handler = acceptOnly("A2")

		req, err := http.NewRequest(http.MethodPatch, f.server.URL+"/api/profile/", io.NopCloser(strings.NewReader(`{"bio":"y"}`)))
		require.NoError(t, err)
		req.GetBody = nil
		resp, err := f.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	reqs := f.requests()
	require.Len(t, reqs, 4)
	for _, r := range reqs[:2] {
		require.Equal(t, `{"bio":"x"}`, r.body)
	}
	for _, r := range reqs[2:] {
		require.Equal(t, `{"bio":"y"}`, r.body)
	}
}

func TestTransport_ContextControls(t *testing.T) {
	t.Run("WithToken overrides and never refreshes", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		f.handler = acceptOnly("NEW")

		resp := f.get(t, gateway.WithToken(context.Background(), "NEW"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Bearer NEW", f.requests()[0].auth)

		resp = f.get(t, gateway.WithToken(context.Background(), "OTHER"))
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, int64(0), f.refreshes.Load())
		require.Equal(t, int64(0), f.expired.Load())
	})

	t.Run("WithoutRefresh", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
		f.handler = acceptOnly()

		resp := f.get(t, gateway.WithoutRefresh(context.Background()))
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, int64(0), f.refreshes.Load())
		require.Equal(t, "A1", f.store.AccessToken())
	})
}

func TestTransport_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})

	const callers = 8
	var arrived sync.WaitGroup
	arrived.Add(callers)
	var once sync.Once
	gate := make(chan struct{})

	f.handler = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer A1" {
			// hold every first attempt until all callers got here
			arrived.Done()
			<-gate
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		acceptOnly("A2")(w, r)
	}
	go func() {
		arrived.Wait()
		once.Do(func() { close(gate) })
	}()

	var wg sync.WaitGroup
	statuses := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/documents/", nil)
			if err != nil {
				return
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for _, status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}
	require.Equal(t, int64(1), f.refreshes.Load())
	require.Equal(t, "A2", f.store.AccessToken())
}

func TestTransport_RateLimit(t *testing.T) {
	store, err := session.New(tokenfakerepo.NewFakeTokenRepo())
	require.NoError(t, err)
	coordinator, err := refresh.NewCoordinator(store, func(context.Context, string) (refresh.Grant, error) {
		return refresh.Grant{}, nil
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	transport, err := gateway.New(store, coordinator, gateway.WithRateLimit(20, 1))
	require.NoError(t, err)
	client := &http.Client{Transport: transport}

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
