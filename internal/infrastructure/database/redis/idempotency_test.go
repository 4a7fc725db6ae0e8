package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the few commands the store uses
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIdempotencyLifecycle(t *testing.T) {
	rdb := &fakeRedis{data: map[string]string{}}
	store := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()

	id, claimed, err := store.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Zero(t, id)
	assert.Equal(t, "pending", rdb.data["idem:order:create:abc"])

	id, claimed, err = store.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Zero(t, id, "in flight")

	require.NoError(t, store.Complete(ctx, "abc", 42))
	id, claimed, err = store.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, uint(42), id)

	_, _, err = store.Claim(ctx, "xyz")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "xyz"))
	_, claimed, err = store.Claim(ctx, "xyz")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyScopesDoNotCollide(t *testing.T) {
	rdb := &fakeRedis{data: map[string]string{}}
	store := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, "session:aaa:checkout-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.Complete(ctx, "session:aaa:checkout-1", 7))

	id, claimed, err := store.Claim(ctx, "session:bbb:checkout-1")
	require.NoError(t, err)
	assert.True(t, claimed, "another session reusing the key starts fresh")
	assert.Zero(t, id)
	assert.Equal(t, "7", rdb.data["idem:order:create:session:aaa:checkout-1"])
	assert.Equal(t, "pending", rdb.data["idem:order:create:session:bbb:checkout-1"])
}

func TestIdempotencyErrors(t *testing.T) {
	down := errors.New("connection refused")
	store := NewIdempotencyStore(&fakeRedis{data: map[string]string{}, err: down}, 0)
	_, _, err := store.Claim(context.Background(), "abc")
	assert.ErrorIs(t, err, down)

	corrupt := &fakeRedis{data: map[string]string{"idem:order:create:bad": "??"}}
	_, _, err = NewIdempotencyStore(corrupt, time.Minute).Claim(context.Background(), "bad")
	assert.ErrorContains(t, err, "corrupt idempotency value")
}
