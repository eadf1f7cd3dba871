package scheduler_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veschin/d2-web-extension-sub000/internal/scheduler"
)

func TestHighPriorityTasksRunInOrder(t *testing.T) {
	s := scheduler.NewScheduler(4)
	s.RunScheduler()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		s.ScheduleHighPriorityTask(scheduler.Task{
			Name: "index",
			Execute: func() error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, i)
				return nil
			},
		})
	}
	s.StopScheduler()

	if len(order) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestFailingTaskDoesNotStopScheduler(t *testing.T) {
	s := scheduler.NewScheduler(2)
	s.RunScheduler()

	var ran atomic.Int32
	s.ScheduleHighPriorityTask(scheduler.Task{Name: "fail", Execute: func() error {
		ran.Add(1)
		return errors.New("boom")
	}})
	s.ScheduleHighPriorityTask(scheduler.Task{Name: "ok", Execute: func() error {
		ran.Add(1)
		return nil
	}})
	s.StopScheduler()

	if got := ran.Load(); got != 2 {
		t.Errorf("ran %d tasks, want 2", got)
	}
}

func TestStoppedSchedulerRejectsTasks(t *testing.T) {
	s := scheduler.NewScheduler(1)
	s.RunScheduler()
	s.StopScheduler()
	s.StopScheduler()

	if s.ScheduleHighPriorityTask(scheduler.Task{Name: "late", Execute: func() error { return nil }}) {
		t.Error("task accepted after stop")
	}
}

func TestPeriodicTask(t *testing.T) {
	s := scheduler.NewScheduler(4)
	s.RunScheduler()

	var runs atomic.Int32
	s.SchedulePeriodicTask(10*time.Millisecond, scheduler.Task{
		Name:    "reindex",
		Execute: func() error { runs.Add(1); return nil },
	})

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.StopScheduler()

	if runs.Load() < 3 {
		t.Errorf("periodic task ran %d times", runs.Load())
	}
}
