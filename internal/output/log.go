package output

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Log reports events as structured log entries.
type Log struct {
	logger *log.Logger
	layer  string
}

// NewLog returns a formatter writing to logger. A nil logger means the
// standard logrus logger.
func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.StandardLogger()
	}

	return &Log{logger: logger}
}

func (l *Log) Info(message string) {
	l.logger.Info(message)
}

func (l *Log) InfoSuboptimal(message string) {
	l.logger.Warn(message)
}

func (l *Log) Error(message string) {
	l.logger.Error(message)
}

func (l *Log) ErrorWithBanner(message string) {
	l.logger.WithField("banner", true).Error(message)
}

func (l *Log) StartSetUp(layer string) {
	l.layer = layer
	l.logger.WithField("layer", layer).Info("setting up layer")
}

func (l *Log) StopSetUp(elapsed time.Duration) {
	l.logger.WithFields(log.Fields{"layer": l.layer, "elapsed": elapsed}).Info("layer set up")
}

func (l *Log) StartTearDown(layer string) {
	l.layer = layer
	l.logger.WithField("layer", layer).Info("tearing down layer")
}

func (l *Log) StopTearDown(elapsed time.Duration) {
	l.logger.WithFields(log.Fields{"layer": l.layer, "elapsed": elapsed}).Info("layer torn down")
}

func (l *Log) TearDownNotSupported() {
	l.logger.WithField("layer", l.layer).Warn("tear down not supported")
}

func (l *Log) LayerFailure(failure string, err error) {
	l.logger.WithError(err).Error(failure)
}

func (l *Log) StartTest(test string, ran, total int) {
	l.logger.WithFields(log.Fields{"test": test, "ran": ran, "total": total}).Debug("starting test")
}

func (l *Log) TestSuccess(test string, elapsed time.Duration) {
	l.logger.WithFields(log.Fields{"test": test, "elapsed": elapsed}).Info("test passed")
}

func (l *Log) TestSkipped(test, reason string) {
	l.logger.WithFields(log.Fields{"test": test, "reason": reason}).Info("test skipped")
}

func (l *Log) TestFailure(test string, elapsed time.Duration, err error) {
	l.logger.WithFields(log.Fields{"test": test, "elapsed": elapsed}).WithError(err).Error("test failed")
}

func (l *Log) TestError(test string, elapsed time.Duration, err error) {
	l.logger.WithFields(log.Fields{"test": test, "elapsed": elapsed}).WithError(err).Error("test errored")
}

func (l *Log) StopTest(string) {}

func (l *Log) StopTests() {}

func (l *Log) Summary(summary Summary) {
	l.logger.WithFields(summaryFields(summary)).Info("layer summary")
}

func (l *Log) Totals(summary Summary) {
	l.logger.WithFields(summaryFields(summary)).Info("total summary")
}

func (l *Log) TestsWithFailures(tests []string) {
	if len(tests) > 0 {
		l.logger.WithField("tests", tests).Error("tests with failures")
	}
}

func (l *Log) TestsWithErrors(tests []string) {
	if len(tests) > 0 {
		l.logger.WithField("tests", tests).Error("tests with errors")
	}
}

func (l *Log) ListOfTests(layer string, tests []string) {
	l.logger.WithFields(log.Fields{"layer": layer, "tests": tests}).Info("listing tests")
}

func summaryFields(summary Summary) log.Fields {
	return log.Fields{
		"tests":    summary.Tests,
		"failures": summary.Failures,
		"errors":   summary.Errors,
		"skipped":  summary.Skipped,
		"elapsed":  summary.Elapsed,
	}
}
