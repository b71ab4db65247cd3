package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerWhileLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	observed := zap.New(core)
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Info("tick", zap.Int("n", j))
			}
		}()
	}
	for i := 0; i < 50; i++ {
		SetLogger(zap.NewNop())
		SetLogger(observed)
	}
	wg.Wait()

	SetLogger(observed)
	before := logs.Len()
	Info("after swap", zap.String("k", "v"))
	require.Equal(t, before+1, logs.Len())
	last := logs.All()[logs.Len()-1]
	assert.Equal(t, "after swap", last.Message)
	assert.Equal(t, "v", last.ContextMap()["k"])
}

func TestSetLoggerNil(t *testing.T) {
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	SetLogger(nil)
	assert.NotPanics(t, func() { Error("dropped") })
}
