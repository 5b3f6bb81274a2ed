package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExpirer struct {
	removed int64
	err     error
	calls   int
}

func (f *fakeExpirer) CleanExpired(context.Context) (int64, error) {
	f.calls++
	return f.removed, f.err
}

func TestCacheJanitor_Sweep(t *testing.T) {
	cache := &fakeExpirer{removed: 3}
	j := NewCacheJanitor(cache, slog.Default(), 0)
	assert.Equal(t, int64(3), j.sweep(context.Background()))

	cache.err = errors.New("db down")
	assert.Equal(t, int64(0), j.sweep(context.Background()))
	assert.Equal(t, 2, cache.calls)
}
