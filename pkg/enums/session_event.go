package enums

// SessionEventKind is the kind of session change broadcast to subscribers.
type SessionEventKind string

const (
	SessionLoggedIn  SessionEventKind = "logged_in"
	SessionLoggedOut SessionEventKind = "logged_out"
)

// String implements fmt.Stringer.
func (s SessionEventKind) String() string {
	return string(s)
}
