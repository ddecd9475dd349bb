package notifier

import "errors"

var (
	// ErrAuthentication covers missing or malformed identification headers.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSignature covers missing or mismatched signatures and tokens.
	ErrSignature = errors.New("signature verification failed")

	ErrEmptyBody           = errors.New("empty body")
	ErrMalformedJSON       = errors.New("malformed JSON")
	ErrNotObject           = errors.New("JSON payload is not an object")
	ErrMalformedForm       = errors.New("malformed form body")
	ErrMissingPayloadField = errors.New("missing payload field")
)

// Source identifies the notifier a delivery came from.
type Source string

const (
	SourceGitHub Source = "github"
	SourceTravis Source = "travis"
)
