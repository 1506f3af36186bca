package routing

import "fmt"

type ErrorKind string

const (
	// ProviderUnreachable covers network errors and timeouts.
	ProviderUnreachable ErrorKind = "provider_unreachable"
	// NoRouteFound means the provider responded but found no valid path.
	NoRouteFound ErrorKind = "no_route_found"
	// MalformedResponse means the payload did not match the expected shape.
	MalformedResponse ErrorKind = "malformed_response"
)

// RouteError classifies a routing failure. Callers fall back to the last
// known-good route for every kind; the kind only drives rider messaging.
type RouteError struct {
	Kind ErrorKind
	Err  error
}

func (e *RouteError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}

func routeError(kind ErrorKind, err error) *RouteError {
	return &RouteError{Kind: kind, Err: err}
}

// KindOf returns the error kind, or MalformedResponse for foreign errors.
func KindOf(err error) ErrorKind {
	if re, ok := err.(*RouteError); ok {
		return re.Kind
	}
	return MalformedResponse
}
