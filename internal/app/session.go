package app

import "net/http"

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

// customerRef identifies the calling customer. Guests are tracked by their
// session token, which is stable for the lifetime of the session cookie.
func (app *application) customerRef(r *http.Request) string {
	return app.sessionManager.Token(r.Context())
}
