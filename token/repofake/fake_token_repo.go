package tokenfakerepo

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-docshare-client/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo keeps the pair in memory and records how it was used.
type FakeTokenRepo struct {
	pair   token.Pair
	saves  int
	clears int
	err    error // returned by every call when set
	lock   sync.RWMutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{}
}

// NewFakeTokenRepoWith returns a repo that already holds pair.
func NewFakeTokenRepoWith(pair token.Pair) *FakeTokenRepo {
	return &FakeTokenRepo{pair: pair}
}

func (tr *FakeTokenRepo) Load(_ context.Context) (token.Pair, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	if tr.err != nil {
		return token.Pair{}, tr.err
	}
	if !tr.pair.Complete() {
		return token.Pair{}, nil
	}
	return tr.pair, nil
}

func (tr *FakeTokenRepo) Save(_ context.Context, pair token.Pair) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.err != nil {
		return tr.err
	}
	if !pair.Complete() {
		return errors.New("incomplete token pair")
	}
	tr.pair = pair
	tr.saves++
	return nil
}

func (tr *FakeTokenRepo) Clear(_ context.Context) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.err != nil {
		return tr.err
	}
	tr.pair = token.Pair{}
	tr.clears++
	return nil
}

// Stored returns the raw stored pair, including incomplete ones.
func (tr *FakeTokenRepo) Stored() token.Pair {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return tr.pair
}

// Saves returns how many successful Save calls were made.
func (tr *FakeTokenRepo) Saves() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return tr.saves
}

// Clears returns how many successful Clear calls were made.
func (tr *FakeTokenRepo) Clears() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return tr.clears
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (tr *FakeTokenRepo) FailWith(err error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.err = err
}
