package errors

import (
	"errors"
	"net/http"
)

// ErrorInfo is what the HTTP layer needs to answer a failed request.
type ErrorInfo struct {
	Status  int
	Kind    Kind
	Message string
}

// ParseError converts any error into an ErrorInfo. Typed errors keep their
// message; anything else is reported as an internal error without leaking details.
func ParseError(err error) ErrorInfo {
	var appErr *AppError
	if err == nil || !errors.As(err, &appErr) {
		return ErrorInfo{Status: http.StatusInternalServerError, Kind: KindInternal, Message: MsgInternal}
	}

	msg := appErr.Message
	if msg == "" {
		msg = defaultMessage(appErr.Kind)
	}
	return ErrorInfo{Status: StatusFor(appErr.Kind), Kind: appErr.Kind, Message: msg}
}

// StatusFor maps a kind to its HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict, KindPrecondition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(kind Kind) string {
	switch kind {
	case KindParse:
		return MsgParse
	case KindNotFound:
		return "请求的数据不存在"
	case KindValidation:
		return "输入参数不完整"
	default:
		return MsgInternal
	}
}
