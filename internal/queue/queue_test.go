package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_Priority(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(0)

	require.NoError(t, q.Push(&Task{JobID: "a"}))
	require.NoError(t, q.Push(&Task{JobID: "b", Priority: 5}))
	require.NoError(t, q.Push(&Task{JobID: "c"}))
	assert.Equal(t, 3, q.Size())

	var order []string
	for i := 0; i < 3; i++ {
		task, err := q.Pop(ctx)
		require.NoError(t, err)
		order = append(order, task.JobID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, order)
}

func TestInMemoryQueue_Bounded(t *testing.T) {
	q := NewInMemoryQueue(1)
	require.NoError(t, q.Push(&Task{JobID: "a"}))
	assert.ErrorIs(t, q.Push(&Task{JobID: "b"}), ErrQueueFull)
}

func TestInMemoryQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue(0)

	got := make(chan *Task, 1)
	go func() {
		task, err := q.Pop(context.Background())
		if err == nil {
			got <- task
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(&Task{JobID: "late"}))

	select {
	case task := <-got:
		assert.Equal(t, "late", task.JobID)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake after push")
	}
}

func TestInMemoryQueue_ContextCancel(t *testing.T) {
	q := NewInMemoryQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(0)
	require.NoError(t, q.Push(&Task{JobID: "queued"}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		q.Close()
	}()

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", task.JobID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.ErrorIs(t, q.Push(&Task{}), ErrQueueClosed)

	wg.Wait()
	assert.NoError(t, q.Close())
}
