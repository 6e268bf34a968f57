package kemohno

import (
	"encoding/json"
	"net/http"

	"github.com/slack-go/slack"
)

// A message shortcut request
type MessageActionRequest struct {
	baseRequest
	Payload slack.InteractionCallback
}

// A function to handle a message shortcut request
type MessageActionHandler func(req *MessageActionRequest) error

func (app *Application) handleInteraction(w http.ResponseWriter, r *http.Request) {
	blob := []byte(r.FormValue("payload"))

	var payload slack.InteractionCallback
	err := json.Unmarshal(blob, &payload)
	if err != nil {
		app.logger.Error("Could not parse interaction payload", "error", err.Error())
		http.Error(w, "Bad Payload", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case slack.InteractionTypeMessageAction:
		app.handleMessageAction(w, r, payload)
	default:
		http.Error(w, "Unknown interaction type", http.StatusInternalServerError)
	}
}

func (app *Application) handleMessageAction(w http.ResponseWriter, r *http.Request, payload slack.InteractionCallback) {
	handler, ok := app.messageActions[payload.CallbackID]
	if !ok {
		// Return 200 for unknown callback IDs
		w.WriteHeader(http.StatusOK)
		return
	}

	client, err := app.newClient(payload.Team.ID)
	if err != nil {
		app.logger.Error("Could not get bot token", "teamID", payload.Team.ID, "error", err.Error())
		http.Error(w, "Could not get bot token", http.StatusInternalServerError)
		return
	}

	req := &MessageActionRequest{
		Payload:     payload,
		baseRequest: app.newBaseRequest(r, client),
	}
	app.serve(w, &req.baseRequest, func() error {
		return handler(req)
	}, func(err error) {
		app.logger.Error("A message action handler failed", "callbackID", payload.CallbackID, "error", err.Error())
		_, msgerr := client.PostEphemeralContext(req.Context(), payload.Channel.ID, payload.User.ID, slack.MsgOptionText(app.errorMessage, false))
		if msgerr != nil {
			app.logger.Error("Unable to send error message to user", "user", payload.User.ID, "error", msgerr.Error())
		}
	})
}
