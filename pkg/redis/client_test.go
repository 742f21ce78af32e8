package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kardex-pos/pkg/config"
)

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	ok, err := client.SetNX(ctx, "kx:idempotency:sale:abc", "pending", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.SetNX(ctx, "kx:idempotency:sale:abc", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Set(ctx, "kx:idempotency:sale:abc", "done", time.Minute))
	value, err := client.Get(ctx, "kx:idempotency:sale:abc")
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	require.NoError(t, client.Del(ctx, "kx:idempotency:sale:abc"))
	_, err = client.Get(ctx, "kx:idempotency:sale:abc")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestReleaseIfOwner(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	fake.data["kx:lock:outbox-retention:prod"] = "owner-1"

	released, err := client.ReleaseIfOwner(ctx, "kx:lock:outbox-retention:prod", "owner-2")
	require.NoError(t, err)
	assert.False(t, released)
	assert.Contains(t, fake.data, "kx:lock:outbox-retention:prod")

	released, err = client.ReleaseIfOwner(ctx, "kx:lock:outbox-retention:prod", "owner-1")
	require.NoError(t, err)
	assert.True(t, released)
	assert.NotContains(t, fake.data, "kx:lock:outbox-retention:prod")
}

func TestUninitializedClient(t *testing.T) {
	var nilClient *Client
	assert.Error(t, nilClient.Ping(context.Background()))
	assert.NoError(t, nilClient.Close())

	empty := &Client{}
	_, err := empty.SetNX(context.Background(), "k", "v", time.Second)
	assert.ErrorIs(t, err, errNotConnected)
	assert.NoError(t, empty.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "kx:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "kx:lock:cron-worker:prod", client.LockKey("cron-worker", "prod"))
	assert.Equal(t, "kx:lock:cron-worker", client.LockKey("cron-worker", " "))
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := options(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{URL: "redis://cache:6380/4?pool_size=3", Address: "ignored:1", PoolSize: 9})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 4, opts.DB)
	assert.Equal(t, 3, opts.PoolSize)

	_, err = options(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

// fakeCommands is an in-memory stand-in. Scripts are emulated for the single
// compare-and-delete script the client runs.
type fakeCommands struct {
	data map[string]string
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeCommands) compareAndDelete(keys []string, args []any) *redis.Cmd {
	if len(keys) == 1 && len(args) == 1 && f.data[keys[0]] == fmt.Sprint(args[0]) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeCommands) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.compareAndDelete(keys, args)
}

func (f *fakeCommands) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.compareAndDelete(keys, args)
}

func (f *fakeCommands) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeCommands) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeCommands) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeCommands) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}
