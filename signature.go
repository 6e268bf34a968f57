package kemohno

import (
	"bytes"
	"io"
	"net/http"

	"github.com/slack-go/slack"
)

// Rejects requests that are not signed with the app's signing secret or
// whose timestamp is too old to be trusted.
func (app *Application) validateSignature(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verifier, err := slack.NewSecretsVerifier(r.Header, app.signingSecret)
		if err != nil {
			app.logger.Warn("Rejected unsigned request", "path", r.URL.Path, "error", err.Error())
			http.Error(w, "Unauthenticated", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			app.logger.Error("Could not read request body", "error", err.Error())
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}
		r.Body = io.NopCloser(bytes.NewBuffer(body))

		if _, err := verifier.Write(body); err != nil {
			app.logger.Error("Could not write HMAC", "error", err.Error())
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			http.Error(w, "Unauthenticated", http.StatusUnauthorized)
			return
		}

		handler(w, r)
	}
}
