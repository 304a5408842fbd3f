package instrumentation

// StatusClass collapses an HTTP status code into a low-cardinality label.
//
// Example:
//
//	StatusClass(201)  // "2xx"
//	StatusClass(429)  // "4xx"
//	StatusClass(0)    // "none"
func StatusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	default:
		return "none"
	}
}

// Logical upstream operations used as metric and span labels.
const (
	OperationCreateBot  = "create_bot"
	OperationTranscript = "transcript"
	OperationSynthesize = "synthesize"
	OperationSpeak      = "speak"
	OperationChat       = "chat"
	OperationStatus     = "status"
	OperationLeave      = "leave"
)
