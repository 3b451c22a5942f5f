package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/session"
	"github.com/jrsteele09/go-docshare-client/token"
	tokenfakerepo "github.com/jrsteele09/go-docshare-client/token/repofake"
	"github.com/jrsteele09/go-docshare-client/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	repo  *tokenfakerepo.FakeTokenRepo
	store *session.Store
}

func setupTestFixture(t *testing.T, stored token.Pair) *testFixture {
	t.Helper()
	repo := tokenfakerepo.NewFakeTokenRepoWith(stored)
	store, err := session.New(repo)
	require.NoError(t, err)
	return &testFixture{repo: repo, store: store}
}

func alice() *users.Profile {
	return &users.Profile{User: users.User{ID: 1, Username: "alice"}, Bio: "maths"}
}

func TestStore_Load(t *testing.T) {
	t.Run("complete pair", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
		pair, err := f.store.Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, token.Pair{Access: "A1", Refresh: "R1"}, pair)
		require.True(t, f.store.Authenticated())
		require.Nil(t, f.store.Profile())
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		pair, err := f.store.Load(context.Background())
		require.NoError(t, err)
		require.True(t, pair.IsZero())
		require.False(t, f.store.Authenticated())
	})

	t.Run("repo error", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		f.repo.FailWith(errors.New("disk gone"))
		_, err := f.store.Load(context.Background())
		require.ErrorContains(t, err, "disk gone")
	})
}

func TestStore_Establish(t *testing.T) {
	t.Run("persists then sets memory", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		require.NoError(t, f.store.Establish(context.Background(), token.Pair{Access: "A1", Refresh: "R1"}, alice()))

		require.Equal(t, token.Pair{Access: "A1", Refresh: "R1"}, f.repo.Stored())
		snap := f.store.Snapshot()
		require.True(t, snap.Authenticated())
		require.Equal(t, "alice", snap.User.User.Username)
	})

	t.Run("persist failure leaves state untouched", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		f.repo.FailWith(errors.New("read only"))
		err := f.store.Establish(context.Background(), token.Pair{Access: "A1", Refresh: "R1"}, alice())
		require.Error(t, err)
		require.False(t, f.store.Authenticated())
		require.Nil(t, f.store.Profile())
	})

	t.Run("incomplete pair rejected", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		err := f.store.Establish(context.Background(), token.Pair{Access: "A1"}, alice())
		require.Error(t, err)
		require.Equal(t, 0, f.repo.Saves())
	})
}

func TestStore_ApplyRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps refresh token", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
		_, err := f.store.Load(ctx)
		require.NoError(t, err)
		f.store.SetProfile(alice())

		require.NoError(t, f.store.ApplyRefresh(ctx, "R1", "A2", ""))
		require.Equal(t, token.Pair{Access: "A2", Refresh: "R1"}, f.store.Tokens())
		require.Equal(t, token.Pair{Access: "A2", Refresh: "R1"}, f.repo.Stored())
		require.NotNil(t, f.store.Profile())
	})

	t.Run("rotated refresh token", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
		_, err := f.store.Load(ctx)
		require.NoError(t, err)

		require.NoError(t, f.store.ApplyRefresh(ctx, "R1", "A2", "R2"))
		require.Equal(t, token.Pair{Access: "A2", Refresh: "R2"}, f.store.Tokens())
	})

	t.Run("without a session", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		err := f.store.ApplyRefresh(ctx, "R1", "A2", "")
		require.ErrorIs(t, err, dserrors.ErrSessionReplaced)
		require.False(t, f.store.Authenticated())
		require.Equal(t, 0, f.repo.Saves())
	})

	t.Run("stale refresh token leaves a newer login alone", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		require.NoError(t, f.store.Establish(ctx, token.Pair{Access: "B1", Refresh: "RB"}, alice()))
		saves := f.repo.Saves()

		err := f.store.ApplyRefresh(ctx, "R1", "A2", "")
		require.ErrorIs(t, err, dserrors.ErrSessionReplaced)
		require.Equal(t, token.Pair{Access: "B1", Refresh: "RB"}, f.store.Tokens())
		require.Equal(t, token.Pair{Access: "B1", Refresh: "RB"}, f.repo.Stored())
		require.Equal(t, saves, f.repo.Saves())
		require.NotNil(t, f.store.Profile())
	})
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
	_, err := f.store.Load(ctx)
	require.NoError(t, err)
	f.store.SetProfile(alice())

	had, err := f.store.Clear(ctx)
	require.NoError(t, err)
	require.True(t, had)
	require.False(t, f.store.Authenticated())
	require.Nil(t, f.store.Profile())
	require.True(t, f.repo.Stored().IsZero())

	had, err = f.store.Clear(ctx)
	require.NoError(t, err)
	require.False(t, had)

	t.Run("memory cleared when repo fails", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
		_, err := f.store.Load(ctx)
		require.NoError(t, err)
		f.repo.FailWith(errors.New("locked"))

		had, err := f.store.Clear(ctx)
		require.Error(t, err)
		require.True(t, had)
		require.False(t, f.store.Authenticated())
	})
}

func TestStore_ProfileIsCopied(t *testing.T) {
	f := setupTestFixture(t, token.Pair{})
	p := alice()
	f.store.SetProfile(p)
	p.Bio = "changed"

	got := f.store.Profile()
	require.Equal(t, "maths", got.Bio)
	got.Bio = "changed again"
	require.Equal(t, "maths", f.store.Profile().Bio)
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, token.Pair{})

	var mu sync.Mutex
	var seen []bool
	unsubscribe := f.store.Subscribe(func(s session.Snapshot) {
		mu.Lock()
		seen = append(seen, s.Authenticated())
		mu.Unlock()
	})

	require.NoError(t, f.store.Establish(ctx, token.Pair{Access: "A1", Refresh: "R1"}, alice()))
	_, err := f.store.Clear(ctx)
	require.NoError(t, err)

	unsubscribe()
	require.NoError(t, f.store.Establish(ctx, token.Pair{Access: "A2", Refresh: "R2"}, alice()))
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []bool{true, false}, seen)
}

func TestStore_ListenerMayReadAndMutate(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, token.Pair{})

	calls := 0
	f.store.Subscribe(func(s session.Snapshot) {
		calls++
		if s.Authenticated() {
			_, _ = f.store.Clear(ctx)
		}
	})

	require.NoError(t, f.store.Establish(ctx, token.Pair{Access: "A1", Refresh: "R1"}, alice()))
	require.False(t, f.store.Authenticated())
	require.Equal(t, 2, calls)
}

func TestNew_RequiresRepo(t *testing.T) {
	_, err := session.New(nil)
	require.Error(t, err)
}

func TestStore_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the session that used the token", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{Access: "A1", Refresh: "R1"})
		_, err := f.store.Load(ctx)
		require.NoError(t, err)

		had, err := f.store.Expire(ctx, "R1")
		require.NoError(t, err)
		require.True(t, had)
		require.False(t, f.store.Authenticated())
		require.True(t, f.repo.Stored().IsZero())
	})

	t.Run("keeps a later login", func(t *testing.T) {
		f := setupTestFixture(t, token.Pair{})
		require.NoError(t, f.store.Establish(ctx, token.Pair{Access: "B1", Refresh: "RB"}, alice()))

		had, err := f.store.Expire(ctx, "R1")
		require.ErrorIs(t, err, dserrors.ErrSessionReplaced)
		require.False(t, had)
		require.Equal(t, token.Pair{Access: "B1", Refresh: "RB"}, f.store.Tokens())
		require.NotNil(t, f.store.Profile())
	})
}
