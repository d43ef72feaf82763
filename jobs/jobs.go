package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrAlreadyStarted = errors.New("jobs: runner already started")

var myJobs []Job
var myLock sync.Mutex
var selfStarted bool
var mapRunningJobs = map[string]bool{}

// 需要幂等
type Job interface {
	Execute() (done bool)
	Identifier() string
}

// Serve runs registered jobs every interval until ctx is done.
// It may only be started once per process.
func Serve(ctx context.Context, interval time.Duration) error {
	myLock.Lock()
	if selfStarted {
		myLock.Unlock()
		return ErrAlreadyStarted
	}
	selfStarted = true
	myLock.Unlock()

	slog.Info("start job ticker", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("job ticker stopped")
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

// runOnce executes every job once and drops the ones that are done.
func runOnce() {
	myLock.Lock()
	defer myLock.Unlock()
	var newJobs []Job
	for _, job := range myJobs {
		if !job.Execute() {
			newJobs = append(newJobs, job)
		} else {
			delete(mapRunningJobs, job.Identifier())
		}
	}
	myJobs = newJobs
}

// AddJob registers job; it will be executed every interval until it
// reports done. A job whose identifier is already running is ignored.
func AddJob(job Job) bool {
	myLock.Lock()
	defer myLock.Unlock()
	if mapRunningJobs[job.Identifier()] {
		slog.Warn("job already running", "job", job.Identifier())
		return false
	}
	mapRunningJobs[job.Identifier()] = true
	myJobs = append(myJobs, job)
	return true
}
