package syncer

import "fmt"

// AuthState is the resolution of the authentication check.
type AuthState int

const (
	// StateUnknown is the boot state before the check resolves. Nothing is
	// persisted while in it.
	StateUnknown AuthState = iota
	StateSignedOut
	StateSignedIn
)

func (s AuthState) String() string {
	switch s {
	case StateSignedOut:
		return "signed_out"
	case StateSignedIn:
		return "signed_in"
	}
	return "unknown"
}

// Auth is the authentication flag consumed by the Coordinator. Only the
// signed-in variant carries a user id.
type Auth struct {
	state  AuthState
	userID string
}

// Unknown is the unresolved authentication state.
func Unknown() Auth { return Auth{state: StateUnknown} }

// SignedOut is the anonymous state.
func SignedOut() Auth { return Auth{state: StateSignedOut} }

// SignedIn is the authenticated state for userID.
func SignedIn(userID string) Auth { return Auth{state: StateSignedIn, userID: userID} }

func (a Auth) State() AuthState { return a.state }
func (a Auth) UserID() string   { return a.userID }
func (a Auth) IsSignedIn() bool { return a.state == StateSignedIn }

func (a Auth) String() string {
	if a.state == StateSignedIn {
		return fmt.Sprintf("signed_in(%s)", a.userID)
	}
	return a.state.String()
}
