package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldTaskID     = "task_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMediaID    = "media_id"
	FieldSender     = "sender"
	FieldLedgerID   = "ledger_id"
	FieldIntent     = "intent"
	FieldStage      = "stage"
	FieldAttempt    = "attempt"
	FieldRow        = "row"
	FieldItem       = "item"
	FieldAmount     = "amount"
	FieldCurrency   = "currency"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentWebhook   = "webhook"
	ComponentPipeline  = "pipeline"
	ComponentWorker    = "worker"
	ComponentBridge    = "bridge"
	ComponentLedger    = "ledger"
	ComponentDedup     = "dedup"
	ComponentProvision = "provision"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpVerify     = "verify"
	OpIngest     = "ingest"
	OpDispatch   = "dispatch"
	OpTranscribe = "transcribe"
	OpClassify   = "classify"
	OpAppend     = "append"
	OpAnalytics  = "analytics"
	OpEdit       = "edit"
	OpUndo       = "undo"
	OpReply      = "reply"
	OpProvision  = "provision"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMessage adds the media id and sender of an inbound voice note
func (f LogFields) WithMessage(mediaID, sender string) LogFields {
	f[FieldMediaID] = mediaID
	f[FieldSender] = sender
	return f
}

// WithLedger adds the ledger (spreadsheet) id
func (f LogFields) WithLedger(ledgerID string) LogFields {
	f[FieldLedgerID] = ledgerID
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
