package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeServer struct {
	name     string
	rec      *recorder
	startErr error
}

func (f *fakeServer) Name() string { return f.name }

func (f *fakeServer) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.rec.add("start " + f.name)
	return nil
}

func (f *fakeServer) Stop(context.Context) error {
	f.rec.add("stop " + f.name)
	return nil
}

func TestManager_RunOrdersShutdown(t *testing.T) {
	rec := &recorder{}
	m := NewManager(time.Second)
	m.AddServer(&fakeServer{name: "a", rec: rec})
	m.AddServer(&fakeServer{name: "b", rec: rec})
	m.AddCloser("db", func(context.Context) error {
		rec.add("close db")
		return nil
	})
	m.AddCloser("pool", func(context.Context) error {
		rec.add("close pool")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.list()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a", "close pool", "close db"}, rec.list())
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	m := NewManager(0)
	m.AddServer(&fakeServer{name: "a", rec: rec})
	m.AddServer(&fakeServer{name: "b", rec: rec, startErr: errors.New("bind: address in use")})

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	assert.Equal(t, []string{"start a", "stop a"}, rec.list())
}

func TestManager_CloserErrorsAreJoined(t *testing.T) {
	m := NewManager(0)
	m.AddCloser("redis", func(context.Context) error { return errors.New("closed twice") })
	m.AddCloser("milvus", func(context.Context) error { return nil })

	err := m.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}
