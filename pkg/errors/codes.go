package errors

import "net/http"

// ErrorCode identifies a failure category. Codes are stable strings so that
// API consumers and alerting rules can match on them across releases.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_010"
	ErrCodeNotImplemented     ErrorCode = "COMMON_011"
)

// Graph snapshot error codes.
const (
	// ErrCodeReferentialIntegrity is raised when an edge references a node
	// that is not present in the same snapshot. Fatal: the run aborts before
	// any detector executes.
	ErrCodeReferentialIntegrity ErrorCode = "GRAPH_001"
	ErrCodeSnapshotEmpty        ErrorCode = "GRAPH_002"
	ErrCodeSnapshotLoadFailed   ErrorCode = "GRAPH_003"
	ErrCodeUnknownNodeKind      ErrorCode = "GRAPH_004"
	ErrCodeUnknownEdgeType      ErrorCode = "GRAPH_005"
)

// Configuration error codes. All fatal and surfaced before computation starts.
const (
	ErrCodeConfigInvalid         ErrorCode = "CFG_001"
	ErrCodeConfigWeightInvalid   ErrorCode = "CFG_002"
	ErrCodeConfigThresholdInvalid ErrorCode = "CFG_003"
)

// Propagation error codes.
const (
	// ErrCodeConvergenceNotReached is informational: propagation still returns
	// its best iteration's scores together with the iteration count and a flag.
	ErrCodeConvergenceNotReached ErrorCode = "PROP_001"
	ErrCodeSeedingFailed         ErrorCode = "PROP_002"
)

// Detector-local error codes. Isolated to the failing detector; sibling
// detectors keep running and the assembler reports partial results.
const (
	ErrCodeDetectorFailed     ErrorCode = "DET_001"
	ErrCodeTimeWindowInvalid  ErrorCode = "DET_002"
	ErrCodeWeightResolveFailed ErrorCode = "DET_003"
)

// Messaging error codes. Publish failures never fail the analysis run; they
// are logged and reported through the run metadata.
const (
	ErrCodeMessagingError ErrorCode = "MSG_001"
)

// Aliases kept so call sites read naturally.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// httpStatus maps each error code to the HTTP status returned at the system
// boundary. Codes absent from the map fall back to 500.
var httpStatus = map[ErrorCode]int{
	ErrCodeBadRequest:             http.StatusBadRequest,
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeConfigInvalid:          http.StatusBadRequest,
	ErrCodeConfigWeightInvalid:    http.StatusBadRequest,
	ErrCodeConfigThresholdInvalid: http.StatusBadRequest,
	ErrCodeTimeWindowInvalid:      http.StatusBadRequest,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeConflict:               http.StatusConflict,
	ErrCodeTimeout:                http.StatusGatewayTimeout,
	ErrCodeServiceUnavailable:     http.StatusServiceUnavailable,
	ErrCodeNotImplemented:         http.StatusNotImplemented,
	ErrCodeReferentialIntegrity:   http.StatusUnprocessableEntity,
	ErrCodeSnapshotEmpty:          http.StatusUnprocessableEntity,
}

// HTTPStatus returns the HTTP status code associated with c.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := httpStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
