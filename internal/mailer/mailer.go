// internal/mailer/mailer.go
package mailer

import "context"

// OutgoingEmail is one message for one recipient.
type OutgoingEmail struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// ErrorKind classifies a failed send at the transport boundary so callers
// never branch on provider JSON shapes.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindAuth        ErrorKind = "auth"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindProvider    ErrorKind = "provider"
	ErrorKindNetwork     ErrorKind = "network"
)

// SendResult is the tagged outcome of a single transport attempt: either
// OK with a provider message ID, or a kind plus human-readable detail.
type SendResult struct {
	OK          bool
	MessageID   string
	ErrorKind   ErrorKind
	ErrorDetail string
}

// ErrorMessage renders the failure for the send log. Empty on success.
func (r SendResult) ErrorMessage() string {
	if r.OK {
		return ""
	}
	if r.ErrorKind == ErrorKindNone {
		return r.ErrorDetail
	}
	return string(r.ErrorKind) + ": " + r.ErrorDetail
}

// Transport hands one message to the outbound mail provider. One attempt
// per call; retry policy lives with the caller, not here.
type Transport interface {
	Send(ctx context.Context, msg OutgoingEmail) SendResult
}
