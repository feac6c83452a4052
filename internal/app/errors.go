package app

import (
	"errors"
	"fmt"
)

// Validation codes distinguish the local pre-network rejections so callers
// can phrase each condition for the user without string matching.
const (
	CodeEmptyQuery        = "empty_query"
	CodeEmptyQuestion     = "empty_question"
	CodeEmptyTopicName    = "empty_topic_name"
	CodeEmptySessionName  = "empty_session_name"
	CodeNotPDF            = "not_pdf"
	CodeTooFewDocuments   = "too_few_documents"
	CodeTooManyDocuments  = "too_many_documents"
	CodeDuplicateDocument = "duplicate_document"
	CodeQueryPending      = "query_pending"
	CodeNoActiveChat      = "no_active_chat"
)

// ValidationError is a local rejection raised before any network call. It is
// surfaced to the user directly and is never sent to the backend.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RequestError means the request produced no response at all (connection
// refused, timeout, context cancelled).
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// APIError is a non-2xx response carrying the server's message.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.Status, e.Message)
}

// DecodeError means the response arrived but did not match the expected
// shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: bad response: %v", e.Op, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether err came out of the transport client rather
// than local validation.
func IsTransport(err error) bool {
	var re *RequestError
	var ae *APIError
	var de *DecodeError
	return errors.As(err, &re) || errors.As(err, &ae) || errors.As(err, &de)
}
