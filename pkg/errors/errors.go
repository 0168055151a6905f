package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeConflict           Code = "CONFLICT"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeSessionExpired     Code = "SESSION_EXPIRED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeNetwork            Code = "NETWORK_ERROR"
	CodeServer             Code = "SERVER_ERROR"
	CodeQuantityExceeded   Code = "QUANTITY_EXCEEDED"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeStateConflict      Code = "STATE_CONFLICT"
	CodeStoreUnavailable   Code = "STORE_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Family groups codes the way callers react to them.
type Family string

const (
	FamilyAuth     Family = "auth"
	FamilySession  Family = "session"
	FamilyNetwork  Family = "network"
	FamilyServer   Family = "server"
	FamilyCart     Family = "cart"
	FamilyInternal Family = "internal"
)

type Metadata struct {
	Family        Family
	Retryable     bool
	PublicMessage string
	// EndsSession marks codes that force the terminal session clear.
	EndsSession bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Family:        FamilyAuth,
		PublicMessage: "please check the highlighted fields",
	},
	CodeInvalidCredentials: {
		Family:        FamilyAuth,
		PublicMessage: "invalid username or password",
	},
	CodeConflict: {
		Family:        FamilyAuth,
		PublicMessage: "an account with these details already exists",
	},
	CodeUnauthorized: {
		Family:        FamilySession,
		PublicMessage: "session expired, please sign in again",
		EndsSession:   true,
	},
	CodeSessionExpired: {
		Family:        FamilySession,
		PublicMessage: "session expired, please sign in again",
		EndsSession:   true,
	},
	CodeForbidden: {
		Family:        FamilySession,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		Family:        FamilyCart,
		PublicMessage: "item not found",
	},
	CodeNetwork: {
		Family:        FamilyNetwork,
		Retryable:     true,
		PublicMessage: "network unavailable, please try again",
	},
	CodeServer: {
		Family:        FamilyServer,
		Retryable:     true,
		PublicMessage: "the store is having trouble right now",
	},
	CodeQuantityExceeded: {
		Family:        FamilyCart,
		PublicMessage: "maximum quantity reached for this item",
	},
	CodeAlreadyExists: {
		Family:        FamilyCart,
		PublicMessage: "already in your wishlist",
	},
	CodeStateConflict: {
		Family:        FamilyInternal,
		PublicMessage: "another update is in progress",
	},
	CodeStoreUnavailable: {
		Family:        FamilyInternal,
		Retryable:     true,
		PublicMessage: "local storage unavailable",
	},
	CodeInternal: {
		Family:        FamilyInternal,
		PublicMessage: "something went wrong",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	status  int
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Status is the HTTP status that produced the error, zero when none was received.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.status
}

func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.status = status
	return e
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// EndsSession reports whether err must trigger the terminal session clear.
func EndsSession(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.Code()).EndsSession
}

// IsRetryable reports whether err is worth retrying later.
func IsRetryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.Code()).Retryable
}

// UserMessage returns the human-readable message a UI should show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	typed := As(err)
	if typed == nil {
		return MetadataFor(CodeInternal).PublicMessage
	}
	if typed.Message() != "" && typed.Code() != CodeInternal {
		return typed.Message()
	}
	return MetadataFor(typed.Code()).PublicMessage
}
