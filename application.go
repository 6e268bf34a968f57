// Package kemohno serves the Slack routes of the emoji bot: slash commands,
// message shortcuts and Events API callbacks, each behind request signing.
package kemohno

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
)

const defaultErrorMessage = "An error occurred"

// A function taking a Slack teamID (workspace ID) that returns
// the workspace's bot token as a string.
// For a non-distributed app, simply return your bot token.
type BotTokenGetter func(teamID string) (string, error)

// Configuration options for the Application
type Config struct {
	// Required. A net/http Serve Mux.
	//
	// The following routes are registered:
	// "POST {prefix}/commands", "POST {prefix}/interactions",
	// "POST {prefix}/events" and "GET {prefix}/hello".
	Router *http.ServeMux
	// Optional. Adds a path to the start of the Slack routes.
	PathPrefix string
	// Required. Method for fetching bot tokens
	// for a workspace based on its team ID
	BotToken BotTokenGetter
	// Required. The Slack webhook signing secret for your app
	SigningSecret string
	// Optional. Defaults to slog.Default()
	Logger *slog.Logger
	// Optional. Sent ephemerally to the user when a handler fails.
	ErrorMessage string
	// Optional. Applied to every Slack API client handed to a handler.
	ClientOptions []slack.Option
}

// A Slack Application.
type Application struct {
	signingSecret  string
	botToken       BotTokenGetter
	errorMessage   string
	clientOptions  []slack.Option
	commands       map[string]CommandHandler
	messageActions map[string]MessageActionHandler
	events         map[string]EventHandler
	logger         *slog.Logger
}

// Registers a slash command handler.
//
// Panics if the slash command has already been registered.
func (app *Application) RegisterCommand(command string, handler CommandHandler) {
	_, ok := app.commands[command]
	if ok {
		panic(fmt.Sprintf("Command %v has already been registered", command))
	}
	app.commands[command] = handler
	app.logger.Info("Registered Command", "command", command)
}

// Registers a message shortcut handler by its callback ID.
//
// Panics if the callbackID has already been registered.
func (app *Application) RegisterMessageAction(callbackID string, handler MessageActionHandler) {
	_, ok := app.messageActions[callbackID]
	if ok {
		panic(fmt.Sprintf("Message action %v has already been registered", callbackID))
	}
	app.messageActions[callbackID] = handler
	app.logger.Info("Registered Message Action", "callbackID", callbackID)
}

// Registers an EventAPI event handler for a subscribed event type.
//
// Panics if the eventType has already been registered.
func (app *Application) RegisterEventHandler(eventType string, handler EventHandler) {
	_, ok := app.events[eventType]
	if ok {
		panic(fmt.Sprintf("Event Handler for type %v has already been registered", eventType))
	}
	app.events[eventType] = handler
	app.logger.Info("Registered Event Handler", "eventType", eventType)
}

// Creates a new Application on an http.ServeMux.
func New(config Config) *Application {
	if config.Router == nil {
		panic("Missing http.ServeMux in kemohno.New")
	}
	if config.SigningSecret == "" {
		panic("Missing Slack signing secret")
	}
	if config.BotToken == nil {
		panic("Missing Slack bot token getter")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorMessage := config.ErrorMessage
	if errorMessage == "" {
		errorMessage = defaultErrorMessage
	}

	app := Application{
		logger:         logger,
		botToken:       config.BotToken,
		signingSecret:  config.SigningSecret,
		errorMessage:   errorMessage,
		clientOptions:  config.ClientOptions,
		commands:       make(map[string]CommandHandler),
		messageActions: make(map[string]MessageActionHandler),
		events:         make(map[string]EventHandler),
	}

	config.Router.HandleFunc(fmt.Sprintf("POST %v/commands", config.PathPrefix), app.validateSignature(app.handleCommand))
	config.Router.HandleFunc(fmt.Sprintf("POST %v/interactions", config.PathPrefix), app.validateSignature(app.handleInteraction))
	config.Router.HandleFunc(fmt.Sprintf("POST %v/events", config.PathPrefix), app.validateSignature(app.handleEvent))
	config.Router.HandleFunc(fmt.Sprintf("GET %v/hello", config.PathPrefix), app.handleHello)

	return &app
}

func (app *Application) handleHello(w http.ResponseWriter, r *http.Request) {
	app.logger.Info("Liveness check", "method", r.Method, "path", r.URL.Path, "ip", r.RemoteAddr)
	w.Header().Set("content-type", "text/plain")
	w.Write([]byte("hello"))
}

func (app *Application) newClient(teamID string) (*slack.Client, error) {
	botToken, err := app.botToken(teamID)
	if err != nil {
		return nil, err
	}
	return slack.New(botToken, app.clientOptions...), nil
}
