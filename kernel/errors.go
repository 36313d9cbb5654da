package kernel

// Error is a kernel status code. A nil error means no error.
//
// The numeric values are stable so they can be reported as raw codes.
type Error int8

const (
	ErrThreadLimitReached      Error = -1
	ErrNoThreadsScheduled      Error = -2
	ErrThreadsIncorrectlyAlive Error = -3
	ErrThreadDoesNotExist      Error = -4
	ErrCannotKillLastThread    Error = -5
	ErrIRQnInvalid             Error = -6
	ErrHWIPriorityInvalid      Error = -7
	ErrBufferFull              Error = -8
	ErrInvalidIndex            Error = -9
)

func (e Error) Error() string {
	switch e {
	case ErrThreadLimitReached:
		return "thread limit reached"
	case ErrNoThreadsScheduled:
		return "no threads scheduled"
	case ErrThreadsIncorrectlyAlive:
		return "threads incorrectly alive"
	case ErrThreadDoesNotExist:
		return "thread does not exist"
	case ErrCannotKillLastThread:
		return "cannot kill last thread"
	case ErrIRQnInvalid:
		return "irq number invalid"
	case ErrHWIPriorityInvalid:
		return "hardware interrupt priority invalid"
	case ErrBufferFull:
		return "buffer full"
	case ErrInvalidIndex:
		return "invalid index"
	default:
		return "unknown kernel error"
	}
}

// Fatal reports whether the error means the kernel's own invariants broke or
// scheduling cannot continue. Callers should halt or reset on a fatal error.
func (e Error) Fatal() bool {
	return e == ErrNoThreadsScheduled || e == ErrThreadsIncorrectlyAlive
}
