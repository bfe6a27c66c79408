package logging

import (
	"log/slog"
	"time"
)

// Common field names so every component logs the same keys.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldUsername  = "username"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldReason    = "reason"
	FieldTokenID   = "token_id"
	FieldSymbol    = "symbol"
	FieldField     = "field"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration records d in whole milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns an error attribute; a nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Reason is the internal reason code of an auth or validation failure.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

func TokenID(id string) slog.Attr {
	return slog.String(FieldTokenID, id)
}

func Symbol(symbol string) slog.Attr {
	return slog.String(FieldSymbol, symbol)
}

// Field names the request parameter a validation error refers to.
func Field(name string) slog.Attr {
	return slog.String(FieldField, name)
}
