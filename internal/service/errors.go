package service

import "errors"

var (
	ErrInvalidTicketID     = errors.New("invalid ticket id")
	ErrForbidden           = errors.New("insufficient rights")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrEmptyContent        = errors.New("ticket has no content")
	ErrNotConfigured       = errors.New("semantics api not configured")
	ErrUpstreamUnavailable = errors.New("semantics api unavailable")
	ErrMalformedPayload    = errors.New("malformed semantics api payload")
)

// GenericFailureMessage 上游失败时展示给用户的唯一文案,不包含传输层细节
const GenericFailureMessage = "GLPI encountered a problem connecting to the Wikit Semantics application. Please try again later."
