package fakeapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-docshare-client/internal/fakeapi"
	"github.com/jrsteele09/go-docshare-client/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testFixture struct {
	fake   *fakeapi.Server
	server *httptest.Server
}

func setupTestFixture(t *testing.T, options ...fakeapi.Option) *testFixture {
	t.Helper()
	fake := fakeapi.New(append([]fakeapi.Option{fakeapi.WithBcryptCost(bcrypt.MinCost)}, options...)...)
	_, err := fake.AddUser("alice", "secret123", users.User{Email: "alice@example.com"})
	require.NoError(t, err)
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return &testFixture{fake: fake, server: server}
}

func (f *testFixture) call(t *testing.T, method, path, bearer, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+"/api"+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestLoginAndRefresh(t *testing.T) {
	f := setupTestFixture(t)

	status, body := f.call(t, http.MethodPost, "/auth/login/", "", `{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "No active account found with the given credentials", body["detail"])

	status, body = f.call(t, http.MethodPost, "/auth/login/", "", `{"username":"alice","password":"secret123"}`)
	require.Equal(t, http.StatusOK, status)
	access, refresh := body["access"].(string), body["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	status, body = f.call(t, http.MethodGet, "/profile/", access, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alice", body["user"].(map[string]interface{})["username"])

	f.fake.ExpireAccessTokens()
	status, _ = f.call(t, http.MethodGet, "/profile/", access, "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = f.call(t, http.MethodPost, "/auth/refresh/", "", `{"refresh":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, status)
	_, rotated := body["refresh"]
	require.False(t, rotated)

	status, _ = f.call(t, http.MethodGet, "/profile/", body["access"].(string), "")
	require.Equal(t, http.StatusOK, status)

	f.fake.RevokeRefreshTokens()
	status, _ = f.call(t, http.MethodPost, "/auth/refresh/", "", `{"refresh":"`+refresh+`"}`)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, 2, f.fake.Hits(http.MethodPost, "/auth/refresh/"))
}

func TestRefreshRotation(t *testing.T) {
	f := setupTestFixture(t, fakeapi.WithRefreshRotation())
	pair, err := f.fake.IssueTokens("alice")
	require.NoError(t, err)

	status, body := f.call(t, http.MethodPost, "/auth/refresh/", "", `{"refresh":"`+pair.Refresh+`"}`)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["refresh"])

	status, _ = f.call(t, http.MethodPost, "/auth/refresh/", "", `{"refresh":"`+pair.Refresh+`"}`)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAccessTokenExpiry(t *testing.T) {
	var offset atomic.Int64
	f := setupTestFixture(t,
		fakeapi.WithAccessTTL(time.Minute),
		fakeapi.WithNowTime(func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }),
	)
	pair, err := f.fake.IssueTokens("alice")
	require.NoError(t, err)

	offset.Store(int64(2 * time.Minute))
	status, body := f.call(t, http.MethodGet, "/documents/", pair.Access, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Given token not valid for any token type", body["detail"])
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	status, body := f.call(t, http.MethodPost, "/auth/register/", "",
		`{"username":"alice","password":"short","password_confirm":"short"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, "username")
	require.Contains(t, body, "password")

	status, body = f.call(t, http.MethodPost, "/auth/register/", "",
		`{"username":"bob","password":"longenough","password_confirm":"different"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, "non_field_errors")

	status, body = f.call(t, http.MethodPost, "/auth/register/", "",
		`{"username":"bob","email":"bob@example.com","password":"longenough","password_confirm":"longenough"}`)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "bob", body["username"])
}

func TestFailureInjection(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.FailNext(http.MethodGet, "/stats/", http.StatusServiceUnavailable)

	status, _ := f.call(t, http.MethodGet, "/stats/", "", "")
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, body := f.call(t, http.MethodGet, "/stats/", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(8), body["total_courses"])
	require.Equal(t, float64(1), body["total_users"])
	require.Equal(t, 2, f.fake.Hits(http.MethodGet, "/stats/"))
}

func TestAnonymousWrites(t *testing.T) {
	f := setupTestFixture(t)
	status, body := f.call(t, http.MethodPost, "/courses/", "", `{"name":"Musique","domain":"musique"}`)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Authentication credentials were not provided.", body["detail"])
}
