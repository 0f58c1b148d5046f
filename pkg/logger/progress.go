package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker reports the progress of a long run, such as the matching
// pass over all storefront orders, at a steady log interval. It is safe for
// use from parallel scoring workers.
type ProgressTracker struct {
	logger    Logger
	operation string
	total     int64
	current   int64
	started   time.Time
	lastLog   time.Time
	interval  time.Duration
	mutex     sync.Mutex
}

// ProgressConfig configures a ProgressTracker.
type ProgressConfig struct {
	Operation   string        `json:"operation"`
	Total       int64         `json:"total"`
	LogInterval time.Duration `json:"log_interval"`
	Logger      Logger        `json:"-"`
}

// NewProgressTracker starts tracking a run of Total items and logs the start.
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}

	now := time.Now()
	tracker := &ProgressTracker{
		logger:    config.Logger.WithComponent("progress"),
		operation: config.Operation,
		total:     config.Total,
		started:   now,
		lastLog:   now,
		interval:  config.LogInterval,
	}

	tracker.logger.WithFields(Fields{
		"operation": config.Operation,
		"total":     config.Total,
	}).Info("Operation started")

	return tracker
}

// Update records that current items have been processed so far. A progress
// line is emitted at most once per log interval.
func (p *ProgressTracker) Update(current int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current = current

	now := time.Now()
	if now.Sub(p.lastLog) < p.interval {
		return
	}
	p.lastLog = now

	fields := Fields{
		"operation": p.operation,
		"processed": p.current,
		"rate":      p.rateString(now),
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", 100*float64(p.current)/float64(p.total))
	}
	p.logger.WithFields(fields).Info("Progress")
}

// Complete logs the final counts and throughput of the run.
func (p *ProgressTracker) Complete() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := time.Now()
	p.logger.WithFields(Fields{
		"operation": p.operation,
		"total":     p.total,
		"processed": p.current,
		"duration":  now.Sub(p.started).String(),
		"rate":      p.rateString(now),
	}).Info("Operation finished")
}

// CompleteWithError logs a run that stopped before processing every item.
func (p *ProgressTracker) CompleteWithError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := time.Now()
	p.logger.WithError(err).WithFields(Fields{
		"operation": p.operation,
		"total":     p.total,
		"processed": p.current,
		"duration":  now.Sub(p.started).String(),
	}).Error("Operation failed")
}

func (p *ProgressTracker) rateString(now time.Time) string {
	elapsed := now.Sub(p.started).Seconds()
	if elapsed <= 0 {
		return "0.00/sec"
	}
	return fmt.Sprintf("%.2f/sec", float64(p.current)/elapsed)
}

// OperationLogger carries shared context through the stages of one
// reconciliation run and logs its outcome with timing.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	started   time.Time
}

// NewOperationLogger starts a timed operation log.
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    logger.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		started:   time.Now(),
	}

	ol.logger.WithField("operation", operation).Info("Operation started")
	return ol
}

// WithFields adds fields carried on every subsequent log line.
func (ol *OperationLogger) WithFields(fields Fields) *OperationLogger {
	for k, v := range fields {
		ol.fields[k] = v
	}
	return ol
}

// Step logs entry into a named stage of the operation.
func (ol *OperationLogger) Step(stage string) {
	ol.log().WithFields(Fields{
		"operation": ol.operation,
		"stage":     stage,
	}).Info("Stage started")
}

// Success logs the operation outcome with its total duration.
func (ol *OperationLogger) Success(message string) {
	ol.log().WithFields(Fields{
		"operation": ol.operation,
		"duration":  time.Since(ol.started).String(),
		"status":    "success",
	}).Info(message)
}

// Error logs a failed operation with its total duration.
func (ol *OperationLogger) Error(err error, message string) {
	ol.log().WithError(err).WithFields(Fields{
		"operation": ol.operation,
		"duration":  time.Since(ol.started).String(),
		"status":    "error",
	}).Error(message)
}

func (ol *OperationLogger) log() Logger {
	return ol.logger.WithFields(ol.fields)
}
