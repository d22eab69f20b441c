package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Query is one executed statement.
type Query struct {
	Connection string        `json:"connection"`
	SQL        string        `json:"sql"`
	Time       time.Time     `json:"time"`
	Duration   time.Duration `json:"duration"`
	Rows       int64         `json:"rows"`
	Error      string        `json:"error,omitempty"`
}

// Recorder collects the statements executed with a context.
type Recorder struct {
	mu      sync.Mutex
	queries []Query
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(q Query) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
}

// Queries returns a copy of the recorded statements in execution order.
func (r *Recorder) Queries() []Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Query(nil), r.queries...)
}

type recorderKey struct{}

// WithRecorder returns a context whose statements are recorded in r.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// RecorderFrom returns the recorder of ctx, or nil.
func RecorderFrom(ctx context.Context) *Recorder {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}

// QueryLogger is a GORM logger writing to zap. Every statement is appended
// to the Recorder of its context, whatever the log level.
type QueryLogger struct {
	log        *zap.Logger
	connection string
	level      logger.LogLevel
	// SlowThreshold marks statements logged as slow at warn level
	SlowThreshold time.Duration
}

var _ logger.Interface = (*QueryLogger)(nil)

func NewQueryLogger(log *zap.Logger, connection string) *QueryLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueryLogger{
		log:           log.With(zap.String("connection", connection)),
		connection:    connection,
		level:         logger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

func (l *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	rec := RecorderFrom(ctx)
	if rec == nil && l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	if rec != nil {
		q := Query{Connection: l.connection, SQL: sql, Time: begin, Duration: elapsed, Rows: rows}
		if err != nil {
			q.Error = err.Error()
		}
		rec.Record(q)
	}

	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		l.log.Error("Query failed", append(fields, zap.Error(err))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.level >= logger.Warn:
		l.log.Warn("Slow query", fields...)
	case l.level >= logger.Info:
		l.log.Debug("Query", fields...)
	}
}
