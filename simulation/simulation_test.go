package simulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/cell"
	"github.com/momentics/hioload-ws/config"
	"github.com/momentics/hioload-ws/simulation"
	"github.com/stretchr/testify/require"
)

func TestWorkerLoopHonorsYieldFlag(t *testing.T) {
	a := allocator.New(2)
	c := cell.New(a, 10, []int{0}, 2)
	stream := simulation.NewEventStream(4, 16)
	loop := simulation.NewWorkerLoop(c, 0, stream, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	granted := a.Alloc(c, -1, 1)
	c.AddCores(granted)
	require.Eventually(t, func() bool {
		return loop.Worker().State() == cell.Running
	}, time.Second, time.Millisecond)

	processed := c.YieldCores([]int{0}, false)
	require.Equal(t, 1, processed)

	require.Eventually(t, func() bool {
		return loop.Worker().State() == cell.Idle
	}, time.Second, time.Millisecond, "worker loop must observe and honor its yield flag")
	require.False(t, c.Channel(0).YieldFlag())
}

func TestWorkerLoopHonorsBorrowedCoreReclaim(t *testing.T) {
	a := allocator.New(2)
	owner := cell.New(a, 10, []int{0}, 2)
	owner.RegisterWorker(0)
	a.Alloc(owner, -1, 1)
	a.Yield(owner, 0) // owner parks so the borrower below can idle-borrow it

	borrower := cell.New(a, 10, nil, 2)
	stream := simulation.NewEventStream(4, 16)
	loop := simulation.NewWorkerLoop(borrower, 0, stream, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	granted := a.Alloc(borrower, -1, 1) // idle-borrows cpu 0 from owner
	require.Equal(t, uint64(1), granted.Bits())
	require.Equal(t, borrower.ID(), a.Borrower(0).ID())
	borrower.AddCores(granted)

	require.Eventually(t, func() bool {
		return loop.Worker().State() == cell.Running
	}, time.Second, time.Millisecond)

	processed := borrower.YieldCores([]int{0}, false)
	require.Equal(t, 1, processed)

	require.Eventually(t, func() bool {
		return a.Borrower(0) == nil
	}, time.Second, time.Millisecond, "worker loop must observe the flag and return the borrowed core to its owner")
	require.True(t, owner.CurrentMask().Test(0), "owner must regain current_mask on the returned core")
	require.Eventually(t, func() bool {
		return loop.Worker().State() == cell.Idle
	}, time.Second, time.Millisecond)
}

func TestEventStreamDispatchesPostedEvents(t *testing.T) {
	stream := simulation.NewEventStream(4, 16)
	received := make(chan simulation.Event, 1)
	stream.RegisterHandler(recorderFunc(func(ev simulation.Event) {
		received <- ev
	}))

	go stream.Run()
	defer stream.Stop()

	require.True(t, stream.Post(simulation.Event{Kind: simulation.AllocEvent, CellID: "A", CPU: 3}))

	select {
	case ev := <-received:
		require.Equal(t, simulation.AllocEvent, ev.Kind)
		require.Equal(t, "A", ev.CellID)
		require.Equal(t, 3, ev.CPU)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched event")
	}
}

type recorderFunc func(simulation.Event)

func (f recorderFunc) HandleEvent(ev simulation.Event) { f(ev) }

func TestSchedulerTicksAndKicks(t *testing.T) {
	ticks := make(chan struct{}, 8)
	s := simulation.NewScheduler(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	go s.Run()
	defer s.Stop()

	s.Kick()
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("expected at least one heartbeat tick")
	}
}

func TestDriverRunsWorkersAgainstTopology(t *testing.T) {
	topo := &config.Topology{
		NumCPU: 2,
		Habitats: []config.HabitatSpec{
			{CellID: "A", Prio: 10, CPUs: []int{0, 1}},
		},
	}
	d := simulation.New(topo, simulation.WithHeartbeat(5*time.Millisecond))
	require.Len(t, d.Cells(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	c := d.Cells()[0]
	granted := d.Allocator().Alloc(c, -1, 2)
	require.Equal(t, 2, granted.Count())
	c.AddCores(granted)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver did not shut down after context cancellation")
	}
}
