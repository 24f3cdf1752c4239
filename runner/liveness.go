package runner

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// touchLiveness truncates and rewrites the liveness file with the current
// epoch seconds, if one is configured. An external supervisor watches the
// file's mtime; a write failure is logged but never fatal — losing the
// liveness signal should make the process look dead to its supervisor, not
// crash it outright.
func touchLiveness(path string, now time.Time, logger *logrus.Logger) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("liveness: could not open file")
		return
	}
	defer func() { _ = f.Close() }()
	if _, err := fmt.Fprintf(f, "%d\n", now.Unix()); err != nil {
		logger.WithError(err).WithField("path", path).Warn("liveness: could not write file")
	}
}
