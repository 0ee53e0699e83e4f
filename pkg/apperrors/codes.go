package apperrors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeMalformedFrame   Code = "MALFORMED_FRAME"
	CodeNotJoined        Code = "NOT_JOINED"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeDeliveryFailed   Code = "DELIVERY_FAILED"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
)
