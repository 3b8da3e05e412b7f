package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_Stop(t *testing.T) {
	sm := NewSignalManager(context.Background())

	ctx := sm.Context()
	assert.NoError(t, ctx.Err())

	sm.Stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Nil(t, sm.Signal())
	sm.Stop()
}

func TestSignalManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManager(parent)
	defer sm.Stop()

	cancel()
	assert.ErrorIs(t, sm.Context().Err(), context.Canceled)
	assert.Nil(t, sm.Signal())
}

func TestSignalManager_RecordsSignal(t *testing.T) {
	sm := NewSignalManager(context.Background())
	defer sm.Stop()

	sm.sigCh <- os.Interrupt

	select {
	case <-sm.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by signal")
	}
	assert.Eventually(t, func() bool { return sm.Signal() == os.Interrupt }, time.Second, 10*time.Millisecond)
}

func TestSignalManager_NilReceiver(t *testing.T) {
	var sm *SignalManager
	assert.Nil(t, sm.Signal())
	assert.NotPanics(t, sm.Stop)
}
