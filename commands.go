package kemohno

import (
	"encoding/json"
	"net/http"

	"github.com/slack-go/slack"
)

type CommandRequest struct {
	baseRequest
	Payload slack.SlashCommand
}

type CommandHandler func(req *CommandRequest) error

type CommandActionResponseType string

const (
	CmdRespondInChannel CommandActionResponseType = "in_channel"
	CmdRespondEphemeral CommandActionResponseType = "ephemeral"
)

type CommandAction struct {
	ResponseType CommandActionResponseType `json:"response_type"`
	Text         string                    `json:"text"`
	Blocks       []slack.Block             `json:"blocks,omitempty"`
}

// Immediately respond to Slack's Command request with an action
func (req *CommandRequest) AckWithAction(action CommandAction) {
	bytes, err := json.Marshal(action)
	if err != nil {
		req.Logger.Error("Could not encode command response action", "error", err.Error())
		req.Ack()
		return
	}
	req.ack(bytes)
}

func (app *Application) handleCommand(w http.ResponseWriter, r *http.Request) {
	payload, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	handler, ok := app.commands[payload.Command]
	if !ok {
		http.Error(w, "Invalid command", http.StatusBadRequest)
		return
	}

	client, err := app.newClient(payload.TeamID)
	if err != nil {
		app.logger.Error("Could not get bot token", "teamID", payload.TeamID, "error", err.Error())
		http.Error(w, "An error occurred", http.StatusInternalServerError)
		return
	}

	req := &CommandRequest{
		Payload:     payload,
		baseRequest: app.newBaseRequest(r, client),
	}
	app.serve(w, &req.baseRequest, func() error {
		return handler(req)
	}, func(err error) {
		app.logger.Error("A command handler failed", "command", payload.Command, "error", err.Error())
		_, msgerr := client.PostEphemeralContext(req.Context(), payload.ChannelID, payload.UserID, slack.MsgOptionText(app.errorMessage, false))
		if msgerr != nil {
			app.logger.Error("Unable to send error message to user", "user", payload.UserID, "error", msgerr.Error())
		}
	})
}
