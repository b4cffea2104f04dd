package stripevec

import "fmt"

// ViolationCode names the kind of contract violation a caller triggered.
type ViolationCode int

const (
	// ErrZeroStripes: a container was constructed with a stripe count < 1.
	ErrZeroStripes ViolationCode = iota
	// ErrRangeOutOfBounds: a Range, once resolved, violated s <= e <= N.
	ErrRangeOutOfBounds
	// ErrLiveBorrow: IntoSlice was called while a cursor or write session
	// was still live.
	ErrLiveBorrow
)

// ContractViolation is the panic value raised for every caller-bug contract
// violation in this package. Per this package's error taxonomy there are no
// recoverable error returns for contract violations — they are fatal
// panics — but the panic value is typed and implements error so a boundary
// that does recover can match on it with errors.As instead of string
// matching against recover()'s value.
type ContractViolation struct {
	Code    ViolationCode
	Message string
}

func (v *ContractViolation) Error() string {
	return fmt.Sprintf("stripevec: contract violation: %s", v.Message)
}

func newViolation(code ViolationCode, format string, args ...any) *ContractViolation {
	return &ContractViolation{Code: code, Message: fmt.Sprintf(format, args...)}
}
