package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldReferer      = "referer"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldLocation     = "location"
	FieldMatched      = "matched_location"
	FieldPriceIndex   = "price_index"
	FieldMatchKind    = "match"
	FieldSource       = "source"
	FieldOutOfRange   = "out_of_range"
	FieldAdults       = "adults"
	FieldKids         = "kids"
	FieldBedrooms     = "bedrooms"
	FieldMonthlyTotal = "monthly_total"
	FieldGrossMonthly = "gross_monthly"
	FieldSnapshotID   = "snapshot_id"
	FieldEntries      = "entries"
	FieldMessageID    = "message_id"
	FieldSavingsRate  = "savings_rate"
	FieldTaxRate      = "effective_tax_rate"
	FieldBuffer       = "buffer"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentEstimate  = "estimate"
	ComponentIncome    = "income"
	ComponentPrices    = "prices"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBEA       = "bea"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpEstimate  = "estimate"
	OpRecommend = "recommend_income"
	OpResolve   = "resolve_index"
	OpLoad      = "load_table"
	OpRefresh   = "refresh"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpList      = "list"
	OpValidate  = "validate"
	OpParse     = "parse"
	OpRender    = "render"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
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

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

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

// WithHousehold adds the household size fields.
func (f LogFields) WithHousehold(location string, adults, kids int, bedrooms string) LogFields {
	f[FieldLocation] = location
	f[FieldAdults] = adults
	f[FieldKids] = kids
	f[FieldBedrooms] = bedrooms
	return f
}

// WithResolution adds the outcome of a price index lookup.
func (f LogFields) WithResolution(matched string, index float64, match, source string, outOfRange bool) LogFields {
	f[FieldMatched] = matched
	f[FieldPriceIndex] = index
	f[FieldMatchKind] = match
	f[FieldSource] = source
	f[FieldOutOfRange] = outOfRange
	return f
}

func (f LogFields) WithIncome(savings, tax, buffer, grossMonthly float64) LogFields {
	f[FieldSavingsRate] = savings
	f[FieldTaxRate] = tax
	f[FieldBuffer] = buffer
	f[FieldGrossMonthly] = grossMonthly
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to key/value pairs for slog, sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
