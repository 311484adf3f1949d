package log

import "gastos/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldStep       = "step"
	FieldExpenseID  = "expense_id"
	FieldAmount     = "amount"
	FieldOwnerEmail = "owner_email"
	FieldSharedWith = "shared_with"
	FieldEmail      = "email"
	FieldCount      = "count"
	FieldSynced     = "synced"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentStorage = "storage"
	ComponentRemote  = "remote"
	ComponentAuth    = "auth"
	ComponentAMQP    = "amqp"
	ComponentTrace   = "trace"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpAdd      = "add"
	OpUpload   = "upload"
	OpPull     = "pull"
	OpShare    = "share"
	OpDelete   = "delete"
	OpSignIn   = "sign_in"
	OpSignOut  = "sign_out"
	OpRefresh  = "refresh"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds the error field, skipping nil errors
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithStep(step string) LogFields {
	f[FieldStep] = step
	return f
}

// WithExpense adds the identifying fields of an expense. Amounts and descriptions are
// personal data and stay out of logs except for the amount.
func (f LogFields) WithExpense(e core.Expense) LogFields {
	f[FieldExpenseID] = e.ID
	f[FieldAmount] = core.FormatAmount(e.Amount)
	f[FieldSynced] = e.Synced
	if e.OwnerEmail != "" {
		f[FieldOwnerEmail] = e.OwnerEmail
	}
	if e.SharedWithEmail != "" {
		f[FieldSharedWith] = e.SharedWithEmail
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
