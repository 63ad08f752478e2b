package locks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_SerializesSameOrder(t *testing.T) {
	locker := NewMemoryLocker()

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "o1")
			if err != nil {
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestMemoryLocker_IndependentOrdersDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker()

	release1, err := locker.Acquire(context.Background(), "o1")
	require.NoError(t, err)
	defer release1()

	release2, err := locker.Acquire(context.Background(), "o2")
	require.NoError(t, err)
	release2()
}
