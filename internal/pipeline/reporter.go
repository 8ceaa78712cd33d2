package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/nbaduck/internal/logging"
)

// LogReporter logs run progress.
type LogReporter struct {
	logger  logrus.FieldLogger
	started map[Step]time.Time
}

// NewLogReporter creates a reporter writing to logger.
func NewLogReporter(logger logrus.FieldLogger) *LogReporter {
	return &LogReporter{logger: logger, started: make(map[Step]time.Time)}
}

func (r *LogReporter) OnStepStart(step Step) {
	r.started[step] = time.Now()
	r.logger.WithField(logging.FieldStep, step).Info("step started")
}

func (r *LogReporter) OnSeason(season int, index int, total int, games int) {
	r.logger.WithFields(logrus.Fields{
		logging.FieldSeason: season,
		logging.FieldRows:   games,
		"progress":          float64(index+1) / float64(total),
	}).Infof("fetched season %d/%d", index+1, total)
}

func (r *LogReporter) OnStepComplete(step Step, rows int) {
	r.logger.WithFields(logrus.Fields{
		logging.FieldStep: step,
		logging.FieldRows: rows,
		"elapsed":         time.Since(r.started[step]).Round(time.Millisecond).String(),
	}).Info("step complete")
}

func (r *LogReporter) OnError(step Step, err error) {
	r.logger.WithError(err).WithField(logging.FieldStep, step).Error("step failed")
}
