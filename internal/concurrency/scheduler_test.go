package concurrency_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-ws/internal/concurrency"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTasksInDueOrder(t *testing.T) {
	s := concurrency.NewScheduler()
	go s.Run()
	defer s.Stop()

	var order []int
	done := make(chan struct{})

	s.Schedule(time.Now().Add(30*time.Millisecond), func() { order = append(order, 2) })
	s.Schedule(time.Now().Add(10*time.Millisecond), func() {
		order = append(order, 1)
	})
	s.Schedule(time.Now().Add(50*time.Millisecond), func() {
		order = append(order, 3)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not run all tasks in time")
	}
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestSchedulerStopReturnsAfterRun(t *testing.T) {
	s := concurrency.NewScheduler()
	go s.Run()
	s.Stop()
}
