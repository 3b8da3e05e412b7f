package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalManager derives a context that is cancelled by SIGINT or SIGTERM and
// remembers which signal cancelled it.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	sigCh  chan os.Signal
	stop   sync.Once

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalManager creates a manager and immediately starts listening for signals.
func NewSignalManager(parent context.Context) *SignalManager {
	ctx, cancel := context.WithCancel(parent)
	sm := &SignalManager{
		ctx:    ctx,
		cancel: cancel,
		sigCh:  make(chan os.Signal, 1),
	}
	signal.Notify(sm.sigCh, os.Interrupt, syscall.SIGTERM)
	go sm.wait()
	return sm
}

func (sm *SignalManager) wait() {
	select {
	case sig := <-sm.sigCh:
		sm.mu.Lock()
		sm.sig = sig
		sm.mu.Unlock()
		sm.cancel()
	case <-sm.ctx.Done():
	}
	sm.stop.Do(func() { signal.Stop(sm.sigCh) })
}

// Context returns the signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Signal returns the signal that cancelled the context, or nil.
func (sm *SignalManager) Signal() os.Signal {
	if sm == nil {
		return nil
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.sig
}

// Stop stops listening and cancels the context.
func (sm *SignalManager) Stop() {
	if sm == nil {
		return
	}
	sm.cancel()
	sm.stop.Do(func() { signal.Stop(sm.sigCh) })
}
