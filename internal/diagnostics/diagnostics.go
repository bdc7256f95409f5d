// Package diagnostics gives the catalog a place to report warnings and
// build progress without depending on any particular output sink.
package diagnostics

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Stream is the diagnostic sink used by ServerCatalog.Refresh and the
// LazyBuilder. It wraps a *logrus.Logger so callers can plug in whatever
// formatter or output the surrounding process wants.
type Stream struct {
	log *logrus.Logger
}

// NewStream returns a Stream backed by a default text logger writing to
// stderr at info level.
func NewStream() *Stream {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	return &Stream{log: log}
}

// NewStreamWithLogger wraps an already-configured logger.
func NewStreamWithLogger(log *logrus.Logger) *Stream {
	return &Stream{log: log}
}

func (s *Stream) Infof(format string, args ...any) {
	s.log.Infof(format, args...)
}

func (s *Stream) Warnf(format string, args ...any) {
	s.log.Warnf(format, args...)
}

// Job scopes a sequence of diagnostic messages under a named build step,
// the way LazyBuilder scopes "building package N" around a compile.
type Job struct {
	entry *logrus.Entry
}

// StartJob begins a scoped job labelled name, with context fields attached
// to every message logged through it.
func (s *Stream) StartJob(name string, fields map[string]any) *Job {
	entry := s.log.WithField("job", name)
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.Info("starting")
	return &Job{entry: entry}
}

func (j *Job) Infof(format string, args ...any) {
	j.entry.Infof(format, args...)
}

func (j *Job) Warnf(format string, args ...any) {
	j.entry.Warnf(format, args...)
}

// Done logs the job's completion. err, if non-nil, is logged at warn level.
func (j *Job) Done(err error) {
	if err != nil {
		j.entry.WithError(err).Warn("failed")
		return
	}
	j.entry.Info("done")
}
