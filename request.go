package kemohno

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
)

type baseRequest struct {
	// A Slack API client authorized for the request's workspace
	Client *slack.Client
	// The logger as defined in Config
	Logger     *slog.Logger
	ctx        context.Context
	ackCalled  bool
	ackChannel chan []byte
	errChannel chan error
}

func (app *Application) newBaseRequest(r *http.Request, client *slack.Client) baseRequest {
	return baseRequest{
		Client:     client,
		Logger:     app.logger,
		ctx:        context.WithoutCancel(r.Context()),
		ackChannel: make(chan []byte, 1),
		errChannel: make(chan error, 1),
	}
}

// Acknowledge Slack's request with Status 200
func (req *baseRequest) Ack() {
	req.ack(nil)
}

// The request's context. It outlives the HTTP response so handlers can keep
// calling Slack after acknowledging.
func (req *baseRequest) Context() context.Context {
	return req.ctx
}

func (req *baseRequest) ack(body []byte) {
	if req.ackCalled {
		return
	}
	req.ackCalled = true
	req.ackChannel <- body
}

// Runs handle in its own goroutine and answers Slack with whichever comes
// first: an acknowledgement or the handler's result. onError runs in the
// handler goroutine when handle fails.
func (app *Application) serve(w http.ResponseWriter, req *baseRequest, handle func() error, onError func(err error)) {
	go func() {
		err := handle()
		if err != nil && onError != nil {
			onError(err)
		}
		req.errChannel <- err
	}()

	select {
	case ack := <-req.ackChannel:
		writeAck(w, ack)
	case err := <-req.errChannel:
		// An ack sent just before returning wins over the result.
		select {
		case ack := <-req.ackChannel:
			writeAck(w, ack)
			return
		default:
		}
		if err == nil {
			return
		}
		http.Error(w, "An error occurred", http.StatusInternalServerError)
	}
}

func writeAck(w http.ResponseWriter, ack []byte) {
	if ack != nil {
		w.Header().Set("content-type", "application/json")
	}
	w.Write(ack)
}
