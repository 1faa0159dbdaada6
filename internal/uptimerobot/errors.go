package uptimerobot

import (
	"errors"
	"fmt"
)

// FetchKind classifies a fetch failure. The poller and the on-demand status
// command need to tell configuration problems apart from remote failures, so
// these are never merged into one generic error.
type FetchKind string

const (
	// FetchUnauthenticated: the credential is missing or blank; detected
	// before any network call is made.
	FetchUnauthenticated FetchKind = "unauthenticated"
	// FetchTimeout: the request exceeded the client's bounded timeout.
	FetchTimeout FetchKind = "timeout"
	// FetchNetwork: connection/DNS/transport failure, including non-2xx
	// HTTP responses.
	FetchNetwork FetchKind = "network"
	// FetchRemoteRejected: the service answered, but its own envelope
	// reports failure (e.g. an invalid key rejected server-side).
	FetchRemoteRejected FetchKind = "remote_rejected"
	// FetchMalformed: the response body is not parseable as the expected
	// structure.
	FetchMalformed FetchKind = "malformed"
)

type FetchError struct {
	Kind    FetchKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError extracts a *FetchError from err's chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsConfigError reports whether err is a credential/configuration problem
// rather than a remote-call failure.
func IsConfigError(err error) bool {
	fe, ok := AsFetchError(err)
	return ok && fe.Kind == FetchUnauthenticated
}
