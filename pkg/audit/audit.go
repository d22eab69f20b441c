package audit

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
)

// SDID constants for structured data IDs (RFC5424). 32473 is the
// documentation enterprise number of RFC 5612.
const (
	PEN         = 32473
	SDIDACL     = "acl@32473"
	SDIDSubject = "subject@32473"
	SDIDAction  = "action@32473"
)

// AppName is the APP-NAME of every audit line.
const AppName = "ormbundle"

// Syslog facility constants
const (
	FacilityAuth     = 4  // LOG_AUTH - security/authorization messages
	FacilityAuthPriv = 10 // LOG_AUTHPRIV - security/authorization messages (private)
)

// Severity levels matching syslog (RFC5424)
type Severity int

const (
	SeverityEmergency Severity = iota // 0
	SeverityAlert                     // 1
	SeverityCritical                  // 2
	SeverityError                     // 3
	SeverityWarning                   // 4
	SeverityNotice                    // 5
	SeverityInfo                      // 6
	SeverityDebug                     // 7
)

// Event represents an audit event
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	Facility() int
	StructuredData() map[string]map[string]string
}

// Logger handles audit logging in RFC5424 syslog format
type Logger struct {
	writer   io.Writer
	hostname string
	appName  string
	pid      int
	now      func() time.Time
}

// NewLogger creates an audit logger writing to w.
func NewLogger(w io.Writer) *Logger {
	hostname, _ := os.Hostname()
	return &Logger{
		writer:   w,
		hostname: hostname,
		appName:  AppName,
		pid:      os.Getpid(),
		now:      time.Now,
	}
}

// Log writes an audit event in RFC5424 syslog format
// Format: <PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD MSG
func (l *Logger) Log(event Event) {
	pri := event.Facility()*8 + int(event.Severity())
	timestamp := l.now().UTC().Format("2006-01-02T15:04:05.000Z")

	sd := formatStructuredData(event.StructuredData())
	if sd == "" {
		sd = "-"
	}
	hostname := l.hostname
	if hostname == "" {
		hostname = "-"
	}

	logLine := fmt.Sprintf("<%d>1 %s %s %s %d %s %s %s\n",
		pri,
		timestamp,
		hostname,
		l.appName,
		l.pid,
		event.MessageID(),
		sd,
		event.Message(),
	)

	_, _ = l.writer.Write([]byte(logLine))
}

// formatStructuredData formats the structured data according to RFC5424.
// Elements and params are sorted so that lines are stable.
// Format: [sdid param1="value1" param2="value2"][sdid2 ...]
func formatStructuredData(sd map[string]map[string]string) string {
	if len(sd) == 0 {
		return ""
	}

	ids := make([]string, 0, len(sd))
	for sdid := range sd {
		ids = append(ids, sdid)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, sdid := range ids {
		params := sd[sdid]
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		sb.WriteString("[" + sdid)
		for _, key := range keys {
			sb.WriteString(" " + key + "=" + escapeSDValue(params[key]))
		}
		sb.WriteString("]")
	}
	return sb.String()
}

// escapeSDValue escapes special characters in structured data values per RFC5424
func escapeSDValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "]", "\\]")
	return "\"" + value + "\""
}

// Auditor records the decisions of entries whose audit flag is set for the
// outcome: granting decisions of entries auditing success, denials of
// entries auditing failure. It implements acl.AuditLogger.
type Auditor struct {
	logger *Logger
	store  *Store
	log    *zap.Logger
}

// NewAuditor returns an auditor writing to logger and, when store is not nil,
// persisting to store. Persistence failures are logged to log and never fail
// the decision.
func NewAuditor(logger *Logger, store *Store, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{logger: logger, store: store, log: log}
}

var _ acl.AuditLogger = (*Auditor)(nil)

func (a *Auditor) LogDecision(granted bool, oid acl.ObjectIdentity, e *acl.Entry) {
	if !e.IsAuditable(granted) {
		return
	}
	event := DecisionEvent{
		ObjectIdentity:   oid,
		SecurityIdentity: e.SecurityIdentity,
		EntryID:          e.ID,
		Mask:             e.Mask,
		Field:            e.Field,
		Granted:          granted,
	}
	if a.logger != nil {
		a.logger.Log(event)
	}
	if a.store != nil {
		if err := a.store.Save(event); err != nil {
			a.log.Error("Failed to save audit event", zap.Int64("ace", e.ID), zap.Error(err))
		}
	}
}

// ForConnection returns an auditor writing to stdout. On postgres, where
// the acl_audit_messages migration applies, messages are persisted too.
func ForConnection(conn *gorm.DB, adapter string, log *zap.Logger) (*Auditor, error) {
	var store *Store
	if adapter == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		store = NewStore(sqlDB)
	}
	return NewAuditor(NewLogger(os.Stdout), store, log), nil
}
