// Package audit implements the two logging channels required of the
// daemon: an operational channel (slog, human-facing, never carries query
// or response text) and an audit channel (zerolog, one JSON object per
// line, carries query/response text only when the per-user or global
// policy allows it). The two channels are never written to from the same
// call, matching the "never on both channels" rule the original logger
// configuration enforces through separate handlers.
package audit

import (
	"context"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/alitto/pond"
	"github.com/rs/zerolog"

	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
)

// Logger writes audit records asynchronously through a bounded worker
// pool, so a slow disk or syslog socket never stalls an IPC method. Its
// pool is sized and shut down the same way the teacher's PoolManager sizes
// and shuts down its task pools.
type Logger struct {
	zl       zerolog.Logger
	pool     *pond.WorkerPool
	cfg      config.LoggingConfig
	identity string
}

type Type string

const (
	TypeQueryExecuted  Type = "query_executed"
	TypeChatDeleted    Type = "chat_deleted"
	TypeHistoryCleared Type = "history_cleared"
	TypeHistoryWritten Type = "history_written"
	TypeAccessDenied   Type = "access_denied"
)

// Syslog/journald numeric priority levels (see systemd.journal-fields(7)'s
// PRIORITY field): lower is more severe. Every audit record carries one of
// these rather than a free-text word, matching the journald field set
// "priority"/"syslog_identifier"/"code.file"/"code.line" otherwise mirrors.
const (
	priorityWarning = "4"
	priorityInfo    = "6"

	levelWarning = "WARNING"
	levelInfo    = "INFO"
)

// New opens the audit log file (creating parent directories as needed) and
// starts a small worker pool to drain writes to it.
func New(cfg config.LoggingConfig) (*Logger, error) {
	if err := os.MkdirAll(dirOf(cfg.AuditFilePath), 0o750); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(cfg.AuditFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}

	zerolog.TimeFieldFormat = time.RFC3339
	// No .Timestamp()/.With() chain here: the record's own "timestamp"
	// field carries the time, and zerolog's automatic "time" field would
	// otherwise duplicate it under a different key.
	zl := zerolog.New(io.Writer(file))

	pool := pond.New(2, 256, pond.MinWorkers(1))

	return &Logger{zl: zl, pool: pool, cfg: cfg, identity: cfg.SyslogIdentifer}, nil
}

// record is the exact JSON schema required of every audit line.
type record struct {
	Priority         string         `json:"priority"`
	Message          string         `json:"message"`
	Timestamp        string         `json:"timestamp"`
	SyslogIdentifier string         `json:"syslog_identifier"`
	CodeFile         string         `json:"code.file"`
	CodeLine         int            `json:"code.line"`
	CodeFunction     string         `json:"code.function"`
	UserID           string         `json:"user_id"`
	AuditType        Type           `json:"audit_type"`
	Level            string         `json:"level"`
	AuditData        map[string]any `json:"audit_data,omitempty"`
}

// emitAt submits one audit record at the given priority/level to the worker
// pool. Caller-supplied data may include the raw query/response text;
// policy filtering happens in QueryExecuted before this is ever called.
// §4.4 requires every authorization denial to be logged at warning level,
// which is why level/priority are parameters rather than constants baked
// into the record.
func (l *Logger) emitAt(priority, level, userID string, auditType Type, message string, data map[string]any) {
	pc, file, line, _ := runtime.Caller(2)
	function := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
	}
	rec := record{
		Priority:         priority,
		Message:          message,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		SyslogIdentifier: l.identity,
		CodeFile:         file,
		CodeLine:         line,
		CodeFunction:     function,
		UserID:           userID,
		AuditType:        auditType,
		Level:            level,
		AuditData:        data,
	}

	l.pool.Submit(func() {
		defer func() {
			_ = recover() // a marshaling panic must never crash the daemon
		}()
		l.zl.Log().Fields(map[string]any{
			"priority":          rec.Priority,
			"message":           rec.Message,
			"timestamp":         rec.Timestamp,
			"syslog_identifier": rec.SyslogIdentifier,
			"code.file":         rec.CodeFile,
			"code.line":         rec.CodeLine,
			"code.function":     rec.CodeFunction,
			"user_id":           rec.UserID,
			"audit_type":        rec.AuditType,
			"level":             rec.Level,
			"audit_data":        rec.AuditData,
		}).Send()
	})
}

// QueryExecuted records a successful AskQuestion call. Query and response
// text are included only when cfg.AuditVerbose is set and cfg.Question /
// cfg.Responses (or the matching per-user override) allow it; the audit
// record is still written either way, just without those fields.
func (l *Logger) QueryExecuted(ctx context.Context, userID, query, response string) {
	data := map[string]any{}
	if l.cfg.AuditVerbose && l.shouldLog(userID, "question") {
		data["query"] = query
	}
	if l.cfg.AuditVerbose && l.shouldLog(userID, "responses") {
		data["response"] = response
	}
	l.emitAt(priorityInfo, levelInfo, userID, TypeQueryExecuted, "Query executed successfully.", data)
}

func (l *Logger) ChatDeleted(ctx context.Context, userID, chatID string) {
	l.emitAt(priorityInfo, levelInfo, userID, TypeChatDeleted, "Chat deleted.", map[string]any{"chat_id": chatID})
}

func (l *Logger) HistoryCleared(ctx context.Context, userID string) {
	l.emitAt(priorityInfo, levelInfo, userID, TypeHistoryCleared, "History cleared.", nil)
}

func (l *Logger) HistoryWritten(ctx context.Context, userID, chatID string) {
	l.emitAt(priorityInfo, levelInfo, userID, TypeHistoryWritten, "History entry written.", map[string]any{"chat_id": chatID})
}

// Denied satisfies authz.AuditFunc, recording a failed authorization check
// at warning level, per §4.4.
func (l *Logger) Denied(senderUID uint32, requested string) {
	l.emitAt(priorityWarning, levelWarning, "", TypeAccessDenied, "Authorization denied.", map[string]any{
		"sender_uid": senderUID,
		"requested":  requested,
	})
}

// shouldLog mirrors _should_log_for_user: a per-user override in
// cfg.Users[userID][field] wins, otherwise fall back to the matching
// global boolean.
func (l *Logger) shouldLog(userID, field string) bool {
	if overrides, ok := l.cfg.Users[userID]; ok {
		if val, ok := overrides[field]; ok {
			return val
		}
	}
	switch field {
	case "question":
		return l.cfg.Question
	case "responses":
		return l.cfg.Responses
	default:
		return false
	}
}

// Shutdown drains the pool so no audit record is lost on daemon exit.
func (l *Logger) Shutdown() {
	l.pool.StopAndWait()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
