package kemohno

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/slack-go/slack/slackevents"
)

type EventRequest struct {
	baseRequest
	Payload slackevents.EventsAPIEvent
}

type EventHandler func(req *EventRequest) error

func (app *Application) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		app.logger.Error("Could not read body", "error", err.Error())
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// The signature has already been checked, the legacy token is not used.
	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		app.logger.Error("Invalid event payload", "error", err.Error())
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		verification, ok := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		w.Header().Add("content-type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(verification.Challenge))
	case slackevents.AppRateLimited:
		w.WriteHeader(http.StatusOK)
		if limited, ok := event.Data.(*slackevents.EventsAPIAppRateLimited); ok {
			app.logger.Warn("Events API has been rate limited", "minute_limited", limited.MinuteRateLimited)
		}
	case slackevents.CallbackEvent:
		app.handleEventCallback(w, r, event)
	default:
		app.logger.Warn("Unknown outer event type", "type", event.Type)
		http.Error(w, "Unknown outer event type", http.StatusBadRequest)
	}
}

func (app *Application) handleEventCallback(w http.ResponseWriter, r *http.Request, event slackevents.EventsAPIEvent) {
	eventType := event.InnerEvent.Type
	handler, ok := app.events[eventType]
	if !ok {
		app.logger.Warn("No handler registered for event", "eventType", eventType)
		w.WriteHeader(http.StatusOK)
		return
	}

	client, err := app.newClient(event.TeamID)
	if err != nil {
		app.logger.Error("Could not find bot token", "teamID", event.TeamID, "error", err.Error())
		http.Error(w, "An error occurred", http.StatusInternalServerError)
		return
	}

	req := &EventRequest{
		Payload:     event,
		baseRequest: app.newBaseRequest(r, client),
	}
	app.serve(w, &req.baseRequest, func() error {
		return handler(req)
	}, func(err error) {
		app.logger.Error("An event handler failed", "eventType", eventType, "error", err.Error())
	})
}
