package goroutine

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_RecoversPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	g := NewGroup(logrus.NewEntry(log))

	g.Go("exploder", func() { panic("boom") })
	require.NoError(t, g.Wait(time.Second))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "exploder", entry.Data["goroutine"])
	assert.Equal(t, "boom", entry.Data["panic"])
}

func TestGroup_WaitTimeout(t *testing.T) {
	log, _ := test.NewNullLogger()
	g := NewGroup(logrus.NewEntry(log))

	ctx, cancel := context.WithCancel(context.Background())
	g.GoContext(ctx, "loop", func(ctx context.Context) { <-ctx.Done() })

	assert.Error(t, g.Wait(20*time.Millisecond))
	cancel()
	assert.NoError(t, g.Wait(time.Second))
}
