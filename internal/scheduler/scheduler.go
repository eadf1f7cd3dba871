package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("d2frag.scheduler")

type Task struct {
	Name    string
	Execute func() error
}

// Scheduler runs tasks one at a time in submission order. Periodic
// low-priority tasks are dropped when the queue is full.
type Scheduler struct {
	taskQueue       chan Task
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	done            chan struct{}
	wg              sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Scheduler) execute(task Task) {
	defer s.wg.Done()
	log.Debugf("executing %s task", task.Name)
	if err := task.Execute(); err != nil {
		log.Errorf("%s task failed: %v", task.Name, err)
	}
}

// RunScheduler starts the scheduler loop
func (s *Scheduler) RunScheduler() {
	go func() {
		defer close(s.done)
		for {
			select {
			case task := <-s.taskQueue:
				s.execute(task)
			case <-s.stopChan:
				// drain what was accepted before the stop
				for {
					select {
					case task := <-s.taskQueue:
						log.Debugf("draining task: %s", task.Name)
						s.execute(task)
					default:
						return
					}
				}
			}
		}
	}()
}

// enqueue submits task unless the scheduler is stopped. With block false a
// full queue drops the task.
func (s *Scheduler) enqueue(task Task, block bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return false
	}

	s.wg.Add(1)
	if block {
		s.taskQueue <- task
		return true
	}
	select {
	case s.taskQueue <- task:
		return true
	default:
		s.wg.Done()
		return false
	}
}

// SchedulePeriodicTask runs lowTask now and then every interval, without
// blocking the caller.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	go func() {
		s.lowPriorityLock.Lock()
		defer s.lowPriorityLock.Unlock()
		if err := lowTask.Execute(); err != nil {
			log.Errorf("%s task failed: %v", lowTask.Name, err)
		}
	}()

	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.lowPriorityLock.Lock()
				if s.enqueue(lowTask, false) {
					log.Debugf("scheduled %s", lowTask.Name)
				} else {
					log.Infof("skipped scheduling %s: queue is full", lowTask.Name)
				}
				s.lowPriorityLock.Unlock()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// ScheduleHighPriorityTask queues task, blocking while the queue is full.
// It reports false once the scheduler has been stopped.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) bool {
	return s.enqueue(task, true)
}

// StopScheduler waits for all accepted tasks to complete and stops the
// scheduler. It is safe to call more than once.
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	log.Info("stopping scheduler")
	close(s.stopChan)
	s.wg.Wait()
	log.Info("scheduler stopped")
}
