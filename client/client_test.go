package client_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-docshare-client/client"
	"github.com/jrsteele09/go-docshare-client/internal/config"
	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/internal/fakeapi"
	"github.com/jrsteele09/go-docshare-client/internal/utils"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testFixture struct {
	fake    *fakeapi.Server
	repo    *token.InMemoryRepo
	client  *client.Client
	expired atomic.Int32
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fake := fakeapi.New(fakeapi.WithBcryptCost(bcrypt.MinCost))
	_, err := fake.AddUser("alice", "secret123", users.User{Email: "alice@example.com"})
	require.NoError(t, err)

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg, err := config.NewFromMap(map[string]string{
		"DOCSHARE_API_URL":     server.URL + "/api",
		"DOCSHARE_TOKEN_STORE": "memory",
	})
	require.NoError(t, err)

	f := &testFixture{fake: fake, repo: token.NewInMemoryRepo("default")}
	f.client, err = client.New(context.Background(), cfg,
		client.WithTokenRepo(f.repo),
		client.WithHTTPTransport(server.Client().Transport),
		client.WithSessionExpired(func(error) { f.expired.Add(1) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, f.client.Close()) })
	return f
}

func (f *testFixture) login(t *testing.T) token.Pair {
	t.Helper()
	res := f.client.Auth.Login(context.Background(), "alice", "secret123")
	require.True(t, res.Success, res.Error)
	return f.client.Session.Tokens()
}

func (f *testFixture) persisted(t *testing.T) token.Pair {
	t.Helper()
	pair, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	return pair
}

func TestNew_MemoryStoreFromConfig(t *testing.T) {
	cfg, err := config.NewFromMap(map[string]string{"DOCSHARE_TOKEN_STORE": "memory"})
	require.NoError(t, err)

	c, err := client.New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, c.Auth)
	require.False(t, c.Session.Authenticated())
	require.NoError(t, c.Close())
}

func TestNew_FileStoreFromConfig(t *testing.T) {
	cfg, err := config.NewFromMap(map[string]string{
		"DOCSHARE_TOKEN_FILE":       t.TempDir() + "/session.json",
		"DOCSHARE_TOKEN_PASSPHRASE": "correct horse",
	})
	require.NoError(t, err)

	c, err := client.New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestNew_InvalidAPIURL(t *testing.T) {
	cfg, err := config.NewFromMap(map[string]string{
		"DOCSHARE_API_URL":     "ftp://example.com",
		"DOCSHARE_TOKEN_STORE": "memory",
	})
	require.NoError(t, err)

	_, err = client.New(context.Background(), cfg)
	require.Error(t, err)
}

func TestLoginAndLogout(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair := f.login(t)
	require.True(t, pair.Complete())
	require.Equal(t, pair, f.persisted(t))
	require.Equal(t, "alice", f.client.Auth.CurrentUser().User.Username)

	f.client.Auth.Logout(ctx)
	require.False(t, f.client.Session.Authenticated())
	require.Nil(t, f.client.Session.Profile())
	require.True(t, f.persisted(t).IsZero())

	// idempotent
	f.client.Auth.Logout(ctx)
	require.False(t, f.client.Session.Authenticated())
	require.Zero(t, f.expired.Load())
}

func TestFailedLoginLeavesSessionUntouched(t *testing.T) {
	f := setupTestFixture(t)
	before := f.login(t)

	res := f.client.Auth.Login(context.Background(), "alice", "wrong")
	require.False(t, res.Success)
	require.Equal(t, "No active account found with the given credentials", res.Error)
	require.Equal(t, dserrors.KindCredential, res.Kind)
	require.Equal(t, before, f.client.Session.Tokens())
	require.Equal(t, before, f.persisted(t))
}

func TestRegisterNeverTouchesSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	res := f.client.Auth.Register(ctx, users.Registration{
		Username: "carol", Email: "carol@example.com", Password: "longenough", PasswordConfirm: "longenough",
	})
	require.True(t, res.Success, res.Error)
	require.False(t, f.client.Session.Authenticated())
	require.True(t, f.persisted(t).IsZero())

	res = f.client.Auth.Register(ctx, users.Registration{
		Username: "carol", Email: "carol@example.com", Password: "longenough", PasswordConfirm: "longenough",
	})
	require.False(t, res.Success)
	require.Contains(t, res.FieldErrors, "username")
	require.False(t, f.client.Session.Authenticated())
}

func TestRefreshOnExpiredAccess(t *testing.T) {
	f := setupTestFixture(t)
	before := f.login(t)
	f.fake.ExpireAccessTokens()

	profile, err := f.client.API.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", profile.User.Username)

	after := f.client.Session.Tokens()
	require.NotEqual(t, before.Access, after.Access)
	require.Equal(t, before.Refresh, after.Refresh)
	require.Equal(t, after, f.persisted(t))
	require.Equal(t, 1, f.fake.Hits("POST", "/auth/refresh/"))

	// the retry carried the new access token and the same request id
	reqs := f.fake.Requests()
	last, prev := reqs[len(reqs)-1], reqs[len(reqs)-3]
	require.Equal(t, "/profile/", last.Path)
	require.Equal(t, "/profile/", prev.Path)
	require.Equal(t, "Bearer "+after.Access, last.Authorization)
	require.Equal(t, "Bearer "+before.Access, prev.Authorization)
	require.Equal(t, prev.RequestID, last.RequestID)
	require.Zero(t, f.expired.Load())
}

func TestRejectedRefreshClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.fake.ExpireAccessTokens()
	f.fake.RevokeRefreshTokens()

	_, err := f.client.API.Profile(context.Background())
	require.Error(t, err)
	require.Equal(t, dserrors.KindCredential, dserrors.Classify(err))

	require.False(t, f.client.Session.Authenticated())
	require.Nil(t, f.client.Session.Profile())
	require.True(t, f.client.Session.Tokens().IsZero())
	require.True(t, f.persisted(t).IsZero())
	require.EqualValues(t, 1, f.expired.Load())
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.fake.ExpireAccessTokens()

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.API.Profile(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.fake.Hits("POST", "/auth/refresh/"))
	require.True(t, f.client.Session.Authenticated())
}

func TestConcurrentUnauthorizedWithRejectedRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.fake.ExpireAccessTokens()
	f.fake.RevokeRefreshTokens()

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.API.Profile(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
	}
	require.Equal(t, 1, f.fake.Hits("POST", "/auth/refresh/"))
	require.EqualValues(t, 1, f.expired.Load())
	require.False(t, f.client.Session.Authenticated())
}

func TestUpdateProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	ctx := context.Background()

	t.Run("success replaces the cached profile", func(t *testing.T) {
		res := f.client.Auth.UpdateProfile(ctx, users.ProfileUpdate{Bio: utils.Ptr("maths lecturer")})
		require.True(t, res.Success, res.Error)
		require.Equal(t, "maths lecturer", f.client.Auth.CurrentUser().Bio)
	})

	t.Run("failure leaves it unchanged", func(t *testing.T) {
		f.fake.FailNext("PATCH", "/profile/", 500)
		res := f.client.Auth.UpdateProfile(ctx, users.ProfileUpdate{Bio: utils.Ptr("changed")})
		require.False(t, res.Success)
		require.Equal(t, dserrors.KindTransient, res.Kind)
		require.Equal(t, "maths lecturer", f.client.Auth.CurrentUser().Bio)
		require.True(t, f.client.Session.Authenticated())
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored token", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.client.Auth.Restore(ctx)
		require.False(t, res.Authenticated)
		require.Empty(t, res.Error)
		require.Zero(t, f.fake.Hits("GET", "/profile/"))
	})

	t.Run("valid stored tokens", func(t *testing.T) {
		f := setupTestFixture(t)
		pair, err := f.fake.IssueTokens("alice")
		require.NoError(t, err)
		require.NoError(t, f.repo.Save(ctx, pair))

		res := f.client.Auth.Restore(ctx)
		require.True(t, res.Authenticated)
		require.Equal(t, "alice", res.User.User.Username)
		require.Equal(t, "alice", f.client.Session.Profile().User.Username)
	})

	t.Run("expired access is refreshed", func(t *testing.T) {
		f := setupTestFixture(t)
		pair, err := f.fake.IssueTokens("alice")
		require.NoError(t, err)
		require.NoError(t, f.repo.Save(ctx, pair))
		f.fake.ExpireAccessTokens()

		res := f.client.Auth.Restore(ctx)
		require.True(t, res.Authenticated)
		require.NotEqual(t, pair.Access, f.persisted(t).Access)
	})

	t.Run("rejected tokens clear the session", func(t *testing.T) {
		f := setupTestFixture(t)
		pair, err := f.fake.IssueTokens("alice")
		require.NoError(t, err)
		require.NoError(t, f.repo.Save(ctx, pair))
		f.fake.ExpireAccessTokens()
		f.fake.RevokeRefreshTokens()

		res := f.client.Auth.Restore(ctx)
		require.False(t, res.Authenticated)
		require.Equal(t, dserrors.KindCredential, res.Kind)
		require.True(t, f.persisted(t).IsZero())
		require.False(t, f.client.Session.Authenticated())
		require.EqualValues(t, 1, f.expired.Load())
	})
}
