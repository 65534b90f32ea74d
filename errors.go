package hxstate

import (
	"errors"

	"github.com/pthm/hxstate/lib/encoding"
	"github.com/pthm/hxstate/lib/keyed"
)

// Sentinel errors for container, instance and registry operations.
var (
	ErrNotMounted       = keyed.ErrNotMounted
	ErrNilReducer       = keyed.ErrNilReducer
	ErrNotAttached      = errors.New("hxstate: instance is not attached")
	ErrAlreadyAttached  = errors.New("hxstate: instance is already attached")
	ErrDetached         = errors.New("hxstate: instance is detached")
	ErrUnknownInstance  = errors.New("hxstate: unknown instance")
	ErrTicketMismatch   = errors.New("hxstate: ticket does not belong to instance")
	ErrDecryptFailed    = errors.New("hxstate: ticket decryption failed")
	ErrSignatureInvalid = errors.New("hxstate: signature verification failed")
	ErrInvalidFormat    = errors.New("hxstate: invalid ticket format")
)

// IsNotMounted checks if err reports an operation on a key with no refcount.
func IsNotMounted(err error) bool {
	return errors.Is(err, ErrNotMounted)
}

// IsNotFound checks if err reports an unknown instance.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownInstance)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}

// IsBadTicket checks if err means a dispatch ticket could not be trusted.
func IsBadTicket(err error) bool {
	return IsDecryptionError(err) || errors.Is(err, ErrInvalidFormat) || errors.Is(err, ErrTicketMismatch)
}

// wrapEncodingError maps encoding package errors onto hxstate sentinels.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return ErrInvalidFormat
	}
	if errors.Is(err, encoding.ErrSignatureInvalid) {
		return ErrSignatureInvalid
	}
	if errors.Is(err, encoding.ErrDecryptFailed) {
		return ErrDecryptFailed
	}
	return err
}
