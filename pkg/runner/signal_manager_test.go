package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManager(parent)
	defer sm.Stop()

	assert.NoError(t, sm.Context().Err())
	cancel()
	<-sm.Context().Done()
	assert.False(t, sm.Interrupted(), "a cancelled parent is not an interrupt")
}

func TestSignalManager_ResetRearms(t *testing.T) {
	sm := NewSignalManager(context.Background())
	first := sm.Context()
	sm.Reset()
	defer sm.Stop()

	assert.Error(t, first.Err(), "the previous context is released")
	assert.NoError(t, sm.Context().Err())
	assert.False(t, sm.Interrupted())
}
