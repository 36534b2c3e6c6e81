package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// maxJobTimeout acota el contexto de cada ejecución de un job.
const maxJobTimeout = 10 * time.Minute

// Job es una tarea periódica. Run recibe un contexto con timeout derivado del intervalo.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type jobState struct {
	job     Job
	nextDue time.Time
	lastOK  time.Time
	lastErr error
	runs    int
	fails   int
}

// JobStatus es una vista de solo lectura del estado de un job.
type JobStatus struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	NextDue   time.Time `json:"next_due"`
	LastOK    time.Time `json:"last_ok,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
}

// Scheduler ejecuta los jobs con temporizadores independientes: cada job tiene
// su propio "next due" y todos están vencidos al arrancar. En cada tick se
// ejecutan en secuencia los jobs vencidos. Un job que falla o entra en pánico
// queda vencido y se reintenta en el siguiente tick.
type Scheduler struct {
	runMu sync.Mutex // serializa ticks
	mu    sync.RWMutex
	jobs  []*jobState
	tick  time.Duration

	heartbeat atomic.Int64 // unix nanos del último tick
	now       func() time.Time
}

// New crea un Scheduler. El intervalo de tick es el menor de los intervalos.
func New(jobs ...Job) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("scheduler.New: no jobs")
	}
	s := &Scheduler{now: time.Now}
	for _, j := range jobs {
		if j.Interval <= 0 {
			return nil, fmt.Errorf("scheduler.New: job %q: interval must be positive", j.Name)
		}
		if j.Run == nil {
			return nil, fmt.Errorf("scheduler.New: job %q: nil Run", j.Name)
		}
		if s.tick == 0 || j.Interval < s.tick {
			s.tick = j.Interval
		}
		s.jobs = append(s.jobs, &jobState{job: j})
	}
	return s, nil
}

// WithClock sustituye el reloj. Solo para tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// TickInterval devuelve el intervalo entre ticks.
func (s *Scheduler) TickInterval() time.Duration {
	return s.tick
}

// Run ejecuta un tick inmediato y luego uno por intervalo hasta que se cancele el contexto.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting", "jobs", len(s.jobs), "tick", s.tick)

	s.Tick(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick ejecuta en secuencia los jobs vencidos y devuelve cuántos se ejecutaron.
func (s *Scheduler) Tick(ctx context.Context) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.beat()
	ran := 0
	for _, st := range s.jobs {
		if ctx.Err() != nil {
			return ran
		}
		now := s.now()
		s.mu.RLock()
		due := !now.Before(st.nextDue)
		s.mu.RUnlock()
		if !due {
			continue
		}

		ran++
		start := time.Now()
		err := s.runJob(ctx, st.job)

		s.mu.Lock()
		st.runs++
		if err != nil {
			st.fails++
			st.lastErr = err
		} else {
			st.lastErr = nil
			st.lastOK = s.now()
			st.nextDue = now.Add(st.job.Interval)
		}
		nextDue := st.nextDue
		s.mu.Unlock()

		if err != nil {
			slog.Error("job failed, will retry next tick",
				"job", st.job.Name,
				"err", err,
			)
			continue
		}
		slog.Debug("job complete",
			"job", st.job.Name,
			"duration", time.Since(start).Round(time.Millisecond),
			"next_due", nextDue.Format(time.RFC3339),
		)
		s.beat()
	}
	return ran
}

// runJob ejecuta un job con timeout y convierte un pánico en error.
func (s *Scheduler) runJob(ctx context.Context, j Job) (err error) {
	timeout := min(j.Interval, maxJobTimeout)
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.Run(jobCtx)
}

func (s *Scheduler) beat() {
	s.heartbeat.Store(s.now().UnixNano())
}

// LastHeartbeat devuelve el momento del último tick (cero si nunca corrió).
func (s *Scheduler) LastHeartbeat() time.Time {
	ns := s.heartbeat.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Alive devuelve true si hubo un tick hace menos de maxAge.
func (s *Scheduler) Alive(maxAge time.Duration) bool {
	hb := s.LastHeartbeat()
	if hb.IsZero() {
		return false
	}
	return s.now().Sub(hb) < maxAge
}

// Status devuelve el estado de todos los jobs.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, st := range s.jobs {
		js := JobStatus{
			Name:     st.job.Name,
			Interval: st.job.Interval.String(),
			NextDue:  st.nextDue,
			LastOK:   st.lastOK,
			Runs:     st.runs,
			Failures: st.fails,
		}
		if st.lastErr != nil {
			js.LastError = st.lastErr.Error()
		}
		out = append(out, js)
	}
	return out
}
