package runner

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// watchdog arms an OS-level alarm for 2×interval each time the scheduling
// loop ticks. If the loop stalls — deadlock, a blocked driver — the alarm
// fires SIGALRM and the process exits with status 2, trusting the
// supervisor to restart it. Process liveness is the contract; in-flight
// work is sacrificed.
type watchdog struct {
	interval time.Duration
	logger   *logrus.Logger
	sigCh    chan os.Signal
}

func newWatchdog(interval time.Duration, logger *logrus.Logger) *watchdog {
	w := &watchdog{
		interval: interval,
		logger:   logger,
		sigCh:    make(chan os.Signal, 1),
	}
	signal.Notify(w.sigCh, syscall.SIGALRM)
	go w.watch()
	return w
}

func (w *watchdog) watch() {
	for range w.sigCh {
		w.logger.Error("watchdog: scheduling loop did not tick within 2x watchdog_interval, exiting")
		os.Exit(2)
	}
}

// Rearm resets the alarm to fire 2×interval from now.
func (w *watchdog) Rearm() {
	seconds := uint(2 * w.interval / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	unix.Alarm(seconds)
}

// Disarm cancels the pending alarm and stops watching for SIGALRM. Called
// on graceful shutdown so a normal exit never races the watchdog.
func (w *watchdog) Disarm() {
	unix.Alarm(0)
	signal.Stop(w.sigCh)
	close(w.sigCh)
}
