package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type resultLog struct {
	mu      sync.Mutex
	results []*Result
}

func (l *resultLog) handle(res *Result, err error) {
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, res)
}

func (l *resultLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

func (l *resultLog) last() *Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.results[len(l.results)-1]
}

func TestWatcher_RerunsAfterChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := writeTree(t, map[string]string{
		"background.js": "console.log('hi');",
	})
	log := &resultLog{}

	w, err := NewWatcher(
		NewRunner(), dir, sampleRuleSet(t), log.handle,
		WithDebounce(20*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Equal(t, 1, log.len(), "initial run happens on start")
	assert.False(t, log.last().Report.OK())

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "manifest.json"),
		[]byte(`{"manifest_version": 3}`), 0o644,
	))

	require.Eventually(t, func() bool {
		return log.len() >= 2 && log.last().Report.Totals.Failed == 0
	}, 5*time.Second, 10*time.Millisecond)

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.GreaterOrEqual(t, stats.Runs, 2)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	log := &resultLog{}

	w, err := NewWatcher(
		NewRunner(), dir, sampleRuleSet(t), log.handle,
		WithDebounce(20*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	sub := filepath.Join(dir, "icons")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool {
		return log.len() >= 2
	}, 5*time.Second, 10*time.Millisecond)

	before := log.len()
	require.NoError(t, os.WriteFile(
		filepath.Join(sub, "icon16.png"), []byte("png"), 0o644,
	))
	require.Eventually(t, func() bool {
		return log.len() > before
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, err := NewWatcher(NewRunner(), t.TempDir(), sampleRuleSet(t), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
	assert.Equal(t, 1, w.Stats().Runs)
}

func TestWatch_ReturnsWhenContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	dir := validTree(t)
	rs := sampleRuleSet(t)
	log := &resultLog{}
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, NewRunner(), dir, rs,
			log.handle, WithDebounce(10*time.Millisecond))
	}()

	require.Eventually(t, func() bool {
		return log.len() == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	err := Watch(
		context.Background(), NewRunner(),
		filepath.Join(t.TempDir(), "missing"), sampleRuleSet(t), nil,
	)
	assert.Error(t, err)
}
