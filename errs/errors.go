package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes engine errors.
type Kind string

const (
	// KindExtraction means a required field was missing in the storefront tree.
	// It aborts that item only.
	KindExtraction Kind = "EXTRACTION"

	// KindFetch means one market page could not be fetched or parsed.
	// The fetcher downgrades it to an unavailable quote.
	KindFetch Kind = "FETCH"

	// KindAttachmentExhausted means the storefront collection never appeared
	// within the bounded attach attempts. Fatal for the session.
	KindAttachmentExhausted Kind = "ATTACHMENT_EXHAUSTED"

	// KindComputation is an unexpected failure while normalizing or
	// aggregating. The affected item renders degraded.
	KindComputation Kind = "COMPUTATION"

	// KindConfig covers invalid configuration and preference data.
	KindConfig Kind = "CONFIG"
)

// Error is the engine's typed error. Market and Item are optional context.
type Error struct {
	Kind    Kind
	Message string
	Market  string
	Item    string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Item != "" {
		msg += fmt.Sprintf(" (item=%s)", e.Item)
	}
	if e.Market != "" {
		msg += fmt.Sprintf(" (market=%s)", e.Market)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

func NewExtraction(item, field string) *Error {
	return &Error{
		Kind:    KindExtraction,
		Message: fmt.Sprintf("required field %q not found", field),
		Item:    item,
	}
}

func NewFetch(market, url string, err error) *Error {
	return &Error{
		Kind:    KindFetch,
		Message: "market page unavailable: " + url,
		Market:  market,
		Err:     err,
	}
}

func NewAttachmentExhausted(attempts int) *Error {
	return &Error{
		Kind:    KindAttachmentExhausted,
		Message: fmt.Sprintf("storefront collection not found after %d attempts", attempts),
	}
}

func NewComputation(item, message string, err error) *Error {
	return &Error{
		Kind:    KindComputation,
		Message: message,
		Item:    item,
		Err:     err,
	}
}

func NewConfig(message string, err error) *Error {
	return &Error{
		Kind:    KindConfig,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsExtraction(err error) bool { return KindOf(err) == KindExtraction }

func IsFetch(err error) bool { return KindOf(err) == KindFetch }

func IsAttachmentExhausted(err error) bool { return KindOf(err) == KindAttachmentExhausted }

func IsComputation(err error) bool { return KindOf(err) == KindComputation }

func IsConfig(err error) bool { return KindOf(err) == KindConfig }
