package bot_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jacob-ian/kemohno"
	"github.com/jacob-ian/kemohno/bot"
	"github.com/jacob-ian/kemohno/emoji"
	"github.com/jacob-ian/kemohno/profile"
	"github.com/slack-go/slack"
)

const (
	testSigningSecret = "signing-secret"
	testSeed          = `{
		"U0123456": {"realName": "Ada Lovelace", "imageUrl": "https://example.com/ada.png"},
		"U0AUTHOR": {"realName": "Grace Hopper", "imageUrl": "https://example.com/grace.png"}
	}`
)

type slackCall struct {
	Method string
	Form   url.Values
	Body   []byte
}

// Stands in for the Slack Web API and response URLs. respond picks the reply
// for the nth call (from 0) to a method; nil replies ok.
type fakeSlack struct {
	server  *httptest.Server
	calls   chan slackCall
	respond func(method string, n int) (int, string)

	mu     sync.Mutex
	counts map[string]int
}

func newFakeSlack(t *testing.T, respond func(method string, n int) (int, string)) *fakeSlack {
	t.Helper()
	fake := &fakeSlack{calls: make(chan slackCall, 16), respond: respond, counts: make(map[string]int)}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ParseForm()

		method := path.Base(r.URL.Path)
		fake.mu.Lock()
		n := fake.counts[method]
		fake.counts[method]++
		fake.mu.Unlock()
		fake.calls <- slackCall{Method: method, Form: r.Form, Body: body}

		status, reply := http.StatusOK, `{"ok":true,"channel":"C0123456","ts":"1710311560.000100"}`
		if fake.respond != nil {
			if s, b := fake.respond(method, n); s != 0 {
				status, reply = s, b
			}
		}
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "0")
		}
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeSlack) next(t *testing.T) slackCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a Slack API call")
		return slackCall{}
	}
}

func (f *fakeSlack) assertNoCalls(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Errorf("Unexpected Slack API call: %v", call.Method)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestBot(t *testing.T, config bot.Config, respond func(string, int) (int, string)) (*http.ServeMux, *fakeSlack) {
	t.Helper()
	fake := newFakeSlack(t, respond)

	pool, err := emoji.NewPool(map[string][]string{
		"H": {":h:"},
		"I": {":i:"},
	})
	if err != nil {
		t.Fatalf("Could not build pool: %v", err.Error())
	}
	profiles, err := profile.NewCache(nil, strings.NewReader(testSeed), nil)
	if err != nil {
		t.Fatalf("Could not build profile cache: %v", err.Error())
	}

	config.Translator = emoji.NewTranslator(emoji.NewDispenser(pool, nil), emoji.TranslatorConfig{})
	config.Profiles = profiles

	router := http.NewServeMux()
	app := kemohno.New(kemohno.Config{
		Router:        router,
		BotToken:      func(string) (string, error) { return "xoxb-test", nil },
		SigningSecret: testSigningSecret,
		ClientOptions: []slack.Option{slack.OptionAPIURL(fake.server.URL + "/")},
	})
	bot.New(config).Register(app)
	return router, fake
}

func sign(r *http.Request, body []byte) {
	ts := fmt.Sprintf("%v", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte("v0:" + ts + ":" + string(body)))
	r.Header.Add("x-slack-request-timestamp", ts)
	r.Header.Add("x-slack-signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func postForm(t *testing.T, router *http.ServeMux, route string, form url.Values) *http.Response {
	t.Helper()
	body := []byte(form.Encode())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, route, bytes.NewReader(body))
	r.Header.Add("content-type", "application/x-www-form-urlencoded")
	sign(r, body)
	router.ServeHTTP(w, r)
	return w.Result()
}

func postJSON(t *testing.T, router *http.ServeMux, route string, body []byte) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, route, bytes.NewReader(body))
	r.Header.Add("content-type", "application/json")
	sign(r, body)
	router.ServeHTTP(w, r)
	return w.Result()
}

func command(text, responseURL string) url.Values {
	return url.Values{
		"command":      {"/bepis"},
		"text":         {text},
		"team_id":      {"T0123456"},
		"channel_id":   {"C0123456"},
		"user_id":      {"U0123456"},
		"response_url": {responseURL},
	}
}

func assertPosted(t *testing.T, call slackCall, want map[string]string) {
	t.Helper()
	if got, wantMethod := call.Method, "chat.postMessage"; got != wantMethod {
		t.Fatalf("Unexpected Slack method, got: %v, want: %v", got, wantMethod)
	}
	got := make(map[string]string, len(want))
	for key := range want {
		got[key] = call.Form.Get(key)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected chat.postMessage params (-want +got):\n%s", diff)
	}
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Errorf("Could not read body: %v", err.Error())
	}
	return string(body)
}

func TestCommandReposts(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, nil)
	res := postForm(t, router, "/commands", command("<@U0BOT> hi!", ""))

	if got, want := res.StatusCode, http.StatusOK; got != want {
		t.Errorf("Unexpected status code, got: %v, want: %v", got, want)
	}
	assertPosted(t, fake.next(t), map[string]string{
		"channel":  "C0123456",
		"text":     ":h::i:!",
		"username": "Ada Lovelace",
		"icon_url": "https://example.com/ada.png",
	})
}

func TestCommandEmptyText(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, nil)
	res := postForm(t, router, "/commands", command("<@U0BOT>", ""))

	var action kemohno.CommandAction
	if err := json.Unmarshal([]byte(readBody(t, res)), &action); err != nil {
		t.Fatalf("Could not decode command action: %v", err.Error())
	}
	if got, want := action.ResponseType, kemohno.CmdRespondEphemeral; got != want {
		t.Errorf("Unexpected response type, got: %v, want: %v", got, want)
	}
	if !strings.Contains(action.Text, "empty string") {
		t.Errorf("Unexpected response text: %v", action.Text)
	}
	fake.assertNoCalls(t)
}

func TestCommandTooLong(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{MaxLength: 5}, nil)
	res := postForm(t, router, "/commands", command("hi", ""))

	var action kemohno.CommandAction
	if err := json.Unmarshal([]byte(readBody(t, res)), &action); err != nil {
		t.Fatalf("Could not decode command action: %v", err.Error())
	}
	if got, want := action.ResponseType, kemohno.CmdRespondEphemeral; got != want {
		t.Errorf("Unexpected response type, got: %v, want: %v", got, want)
	}
	if !strings.Contains(action.Text, "too much") {
		t.Errorf("Unexpected response text: %v", action.Text)
	}
	fake.assertNoCalls(t)
}

func TestCommandCustomName(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{Command: "/emojify"}, nil)
	form := command("hi", "")
	form.Set("command", "/emojify")
	postForm(t, router, "/commands", form)

	assertPosted(t, fake.next(t), map[string]string{"text": ":h::i:"})
}

func TestCommandRetriesRateLimit(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, func(method string, n int) (int, string) {
		if method == "chat.postMessage" && n == 0 {
			return http.StatusTooManyRequests, `{"ok":false,"error":"ratelimited"}`
		}
		return 0, ""
	})
	postForm(t, router, "/commands", command("hi", ""))

	assertPosted(t, fake.next(t), map[string]string{"text": ":h::i:"})
	assertPosted(t, fake.next(t), map[string]string{"text": ":h::i:"})
	fake.assertNoCalls(t)
}

func TestCommandFallsBackToResponseURL(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, func(method string, n int) (int, string) {
		if method == "chat.postMessage" {
			return http.StatusOK, `{"ok":false,"error":"channel_not_found"}`
		}
		return 0, ""
	})
	postForm(t, router, "/commands", command("hi", fake.server.URL+"/hook"))

	assertPosted(t, fake.next(t), map[string]string{"text": ":h::i:"})

	call := fake.next(t)
	if got, want := call.Method, "hook"; got != want {
		t.Fatalf("Unexpected fallback call, got: %v, want: %v", got, want)
	}
	var message slack.WebhookMessage
	if err := json.Unmarshal(call.Body, &message); err != nil {
		t.Fatalf("Could not decode webhook message: %v", err.Error())
	}
	got := map[string]string{
		"text":          message.Text,
		"username":      message.Username,
		"icon_url":      message.IconURL,
		"response_type": message.ResponseType,
	}
	want := map[string]string{
		"text":          ":h::i:",
		"username":      "Ada Lovelace",
		"icon_url":      "https://example.com/ada.png",
		"response_type": "in_channel",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected webhook message (-want +got):\n%s", diff)
	}
}

func TestMessageActionReposts(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, nil)
	payload := `{
		"type": "message_action",
		"callback_id": "emojify",
		"team": {"id": "T0123456"},
		"channel": {"id": "C0999999"},
		"user": {"id": "U0123456"},
		"message": {"type": "message", "user": "U0AUTHOR", "text": "Hi", "ts": "1710311551.000100"}
	}`
	res := postForm(t, router, "/interactions", url.Values{"payload": {payload}})

	if got, want := res.StatusCode, http.StatusOK; got != want {
		t.Errorf("Unexpected status code, got: %v, want: %v", got, want)
	}
	assertPosted(t, fake.next(t), map[string]string{
		"channel":  "C0999999",
		"text":     ":h::i:",
		"username": "Grace Hopper",
		"icon_url": "https://example.com/grace.png",
	})
}

func TestMessageActionMalformed(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, nil)
	payload := `{
		"type": "message_action",
		"callback_id": "emojify",
		"team": {"id": "T0123456"},
		"channel": {"id": "C0999999"},
		"user": {"id": "U0123456"},
		"message": {"type": "message", "text": "Hi"}
	}`
	postForm(t, router, "/interactions", url.Values{"payload": {payload}})

	call := fake.next(t)
	if got, want := call.Method, "chat.postEphemeral"; got != want {
		t.Errorf("Unexpected Slack method, got: %v, want: %v", got, want)
	}
}

func TestMentionRepostsInThread(t *testing.T) {
	t.Parallel()

	router, fake := newTestBot(t, bot.Config{}, nil)
	event := []byte(`{
		"token": "x",
		"team_id": "T0123456",
		"api_app_id": "A0123456",
		"type": "event_callback",
		"event_id": "Ev1",
		"event_time": 1710311552,
		"event": {
			"type": "app_mention",
			"channel": "C0123456",
			"user": "U0123456",
			"text": "<@U0BOT> hi",
			"ts": "1710311552.000200",
			"thread_ts": "1710311500.000100",
			"event_ts": "1710311552.000200"
		}
	}`)
	var compact bytes.Buffer
	if err := json.Compact(&compact, event); err != nil {
		t.Fatalf("Could not compact event: %v", err.Error())
	}
	res := postJSON(t, router, "/events", compact.Bytes())

	if got, want := res.StatusCode, http.StatusOK; got != want {
		t.Errorf("Unexpected status code, got: %v, want: %v", got, want)
	}
	if got, want := readBody(t, res), ""; got != want {
		t.Errorf("Unexpected body text, got: %v, want: %v", got, want)
	}
	assertPosted(t, fake.next(t), map[string]string{
		"channel":   "C0123456",
		"text":      ":h::i:",
		"username":  "Ada Lovelace",
		"thread_ts": "1710311500.000100",
	})
}

func TestNewPanicsWithoutCollaborators(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected bot.New to panic")
		}
	}()
	bot.New(bot.Config{})
}
