package conf

import "fmt"

type ErrorCode int

const (
	InvalidConfiguration ErrorCode = iota + 1
	InvalidLogConfiguration
)

// Error is returned for configuration that cannot be used. Its message carries
// a stable code prefix so operators can search for it.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e Error) Error() string {
	return e.Msg
}

func newErrorf(code ErrorCode, msgFormat string, args ...interface{}) Error {
	msg := fmt.Sprintf(fmt.Sprintf("ASQL%04d - %s", code, msgFormat), args...)
	return Error{Code: code, Msg: msg}
}

func NewInvalidConfigurationError(msg string) Error {
	return newErrorf(InvalidConfiguration, "Invalid configuration: %s", msg)
}

func NewInvalidLogConfigurationError(msg string) Error {
	return newErrorf(InvalidLogConfiguration, "Invalid log configuration: %s", msg)
}
