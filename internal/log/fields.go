package log

import "log/slog"

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldQuery          = "query"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldUserAgent      = "user_agent"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldUserID         = "user_id"
	FieldRuleID         = "rule_id"
	FieldEntryID        = "entry_id"
	FieldOccurrenceDate = "occurrence_date"
	FieldNextOccurrence = "next_occurrence"
	FieldFrequency      = "frequency"
	FieldAmountCents    = "amount_cents"
	FieldMonth          = "month"
	FieldAudit          = "audit"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentJob      = "job"
	ComponentStorage  = "storage"
	ComponentEvents   = "events"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpMaterialize = "materialize"
	OpRetire      = "retire"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// Audit marks a record for the diagnostics ring regardless of its level.
func Audit() slog.Attr {
	return slog.Bool(FieldAudit, true)
}

// Component tags a logger with its component name.
func Component(name string) *slog.Logger {
	return slog.Default().With(FieldComponent, name)
}
