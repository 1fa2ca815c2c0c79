package errors

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

const (
	InternalServerError = "internal server error"
	BadRequest          = "bad request"
	NotFound            = "not_found"
	Conflict            = "conflict"
	ServiceUnavailable  = "service unavailable"
	BadGateway          = "bad gateway"
	GatewayTimeout      = "gateway timeout"
)

// Code классифицирует ошибку рантайма.
type Code int

const (
	CodeConnectTimeout Code = iota + 1
	CodeTransport
	CodeMaxRetry
	CodeThrottleTimeout
	CodeCanceled
	CodeInvalidArgument
)

func (c Code) String() string {
	switch c {
	case CodeConnectTimeout:
		return "connect_timeout"
	case CodeTransport:
		return "transport"
	case CodeMaxRetry:
		return "max_retry"
	case CodeThrottleTimeout:
		return "throttle_timeout"
	case CodeCanceled:
		return "canceled"
	case CodeInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// AppError представляет собой стандартизированную ошибку рантайма.
// Две AppError считаются равными для errors.Is, если совпадает Code.
type AppError struct {
	Code    Code   `json:"code"`    // Класс ошибки
	Message string `json:"message"` // Сообщение для клиента
	Err     error  `json:"-"`       // Внутренняя ошибка
}

func (a *AppError) Error() string {
	if a == nil {
		return ""
	}
	if a.Err != nil {
		return fmt.Sprintf("%s (%s): %v", a.Message, a.Code, a.Err)
	}
	return fmt.Sprintf("%s (%s)", a.Message, a.Code)
}

func (a *AppError) Unwrap() error { return a.Err }

func (a *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == a.Code
}

// NewAppError создает новый экземпляр AppError.
func NewAppError(code Code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

var (
	ErrConnectTimeout  = &AppError{Code: CodeConnectTimeout, Message: "connect timeout"}
	ErrTransport       = &AppError{Code: CodeTransport, Message: "transport failure"}
	ErrMaxRetry        = &AppError{Code: CodeMaxRetry, Message: "max retries reached"}
	ErrThrottleTimeout = &AppError{Code: CodeThrottleTimeout, Message: "throttle timeout"}
	ErrCanceled        = &AppError{Code: CodeCanceled, Message: "operation canceled"}
	ErrInvalidArgument = &AppError{Code: CodeInvalidArgument, Message: "invalid argument"}

	ErrGroupNotFound = errors.New("polling group not found")
	ErrPoolClosed    = errors.New("connection pool closed")
	ErrNotStarted    = errors.New("modbus service is not started")
	ErrGroupExists   = errors.New("polling group already exists")
)

// ConnectTimeout сообщает, что подключение к address не уложилось в timeout.
func ConnectTimeout(address string, timeout time.Duration, err error) *AppError {
	return NewAppError(CodeConnectTimeout,
		fmt.Sprintf("connect to %s timed out after %s", address, timeout), err)
}

// ThrottleTimeout сообщает, что слот переднего плана не получен за timeout.
func ThrottleTimeout(timeout time.Duration) *AppError {
	return NewAppError(CodeThrottleTimeout,
		fmt.Sprintf("waiting for a foreground request slot exceeded %s", timeout), nil)
}

// Canceled оборачивает ошибку контекста. errors.Is(err, context.Canceled) продолжает работать.
func Canceled(err error) *AppError {
	return NewAppError(CodeCanceled, "operation canceled", err)
}

// InvalidArgument создает ошибку нарушения предусловия.
func InvalidArgument(format string, args ...interface{}) *AppError {
	return NewAppError(CodeInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// MaxRetryError возвращается, когда исчерпаны все попытки.
type MaxRetryError struct {
	Attempts int
	Err      error
}

func (e *MaxRetryError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *MaxRetryError) Unwrap() error { return e.Err }

func (e *MaxRetryError) Is(target error) bool { return target == ErrMaxRetry }

// TransportError описывает сбой сокета. OSCode содержит errno, если он известен.
type TransportError struct {
	Op      string
	Address string
	OSCode  int
	Err     error
}

// NewTransportError извлекает errno из цепочки err.
func NewTransportError(op, address string, err error) *TransportError {
	te := &TransportError{Op: op, Address: address, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		te.OSCode = int(errno)
	}
	return te
}

func (e *TransportError) Error() string {
	if e.OSCode != 0 {
		return fmt.Sprintf("%s %s [%d]: %v", e.Op, e.Address, e.OSCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// IsCanceled сообщает, является ли err отменой (своей или контекста).
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// Retryable сообщает, имеет ли смысл повторять операцию после err.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidArgument) && !IsCanceled(err)
}
