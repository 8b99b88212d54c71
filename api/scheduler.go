/*
scheduler.go - Clock-driven job scheduler

PURPOSE:
  Runs the three recurring jobs on their wall-clock schedules:

    monthly accrual:   1st of each month, 00:01
    yearly reset:      January 1st, 00:00
    escalation sweep:  every day, 09:00

DESIGN:
  - A background goroutine ticks once a minute and compares the clock
    against each job's firing rule
  - A per-job marker prevents double firing within the same minute
    and survives ticker jitter
  - Jobs run inline on the scheduler goroutine; each run is logged
    with its summary

USAGE:
  scheduler := NewScheduler(ledger, lifecycle)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: manual triggers for the same jobs
  - leave/ledger.go, leave/escalate.go: the job implementations
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nimbus-hr/leave-engine/leave"
)

// Scheduler fires the recurring ledger and escalation jobs.
type Scheduler struct {
	Ledger    *leave.BalanceLedger
	Lifecycle *leave.Lifecycle

	// TickInterval defaults to one minute. Tests shorten it.
	TickInterval time.Duration

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	lastAccrual    string
	lastReset      string
	lastEscalation string
}

// NewScheduler creates a scheduler with the default one-minute tick.
func NewScheduler(ledger *leave.BalanceLedger, lifecycle *leave.Lifecycle) *Scheduler {
	return &Scheduler{
		Ledger:       ledger,
		Lifecycle:    lifecycle,
		TickInterval: time.Minute,
	}
}

// Start begins the scheduler. A stopped scheduler can be started
// again.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.TickInterval)
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	log.Printf("[Scheduler] Started with tick interval: %v", s.TickInterval)
}

// Stop stops the scheduler and waits for any in-flight job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false

	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

// run owns the ticker and stop channel for one Start/Stop cycle so a
// restart never races the previous goroutine.
func (s *Scheduler) run(ticker *time.Ticker, stop chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-stop:
			return
		}
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Tick evaluates the firing rules against the current clock. Exported
// so tests can drive the schedule without waiting on the ticker.
func (s *Scheduler) Tick() {
	now := s.now()
	minute := now.Format("2006-01-02 15:04")
	ctx := context.Background()

	// Yearly reset: Jan 1 00:00. Checked before accrual so the fresh
	// year starts from reset balances.
	if now.Month() == time.January && now.Day() == 1 &&
		now.Hour() == 0 && now.Minute() == 0 && s.lastReset != minute {
		s.lastReset = minute
		summary, err := s.Ledger.ResetYearly(ctx, now)
		if err != nil {
			log.Printf("[Scheduler] yearly reset failed: %v", err)
		} else {
			log.Printf("[Scheduler] yearly reset: %d employees reset", summary.Reset)
		}
	}

	// Monthly accrual: 1st of the month, 00:01.
	if now.Day() == 1 && now.Hour() == 0 && now.Minute() == 1 && s.lastAccrual != minute {
		s.lastAccrual = minute
		summary, err := s.Ledger.AccrueMonthly(ctx, now)
		if err != nil {
			log.Printf("[Scheduler] monthly accrual failed: %v", err)
		} else {
			log.Printf("[Scheduler] monthly accrual: %d employees updated", summary.Updated)
		}
	}

	// Escalation sweep: daily at 09:00.
	if now.Hour() == 9 && now.Minute() == 0 && s.lastEscalation != minute {
		s.lastEscalation = minute
		summary, err := s.Lifecycle.RunEscalationSweep(ctx)
		if err != nil {
			log.Printf("[Scheduler] escalation sweep failed: %v", err)
		} else {
			log.Printf("[Scheduler] escalation sweep: %d/%d escalated",
				summary.Escalated, summary.TotalPending)
		}
	}
}
