package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
)

type WSHandler struct {
	sessions *app.SessionService
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(sessions *app.SessionService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		sessions: sessions,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type answerPayload struct {
	Value string `json:"value"`
}

// submitPayload carries the user's answer to a previous confirm event.
type submitPayload struct {
	Confirmed bool `json:"confirmed"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type confirmPayload struct {
	Prompt string `json:"prompt"`
}

type redirectPayload struct {
	URL string `json:"url"`
}

// outbox serialises writes to one connection. push never blocks once the
// connection is gone, so engine callbacks firing late are harmless.
type outbox struct {
	ch        chan outboundMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newOutbox() *outbox {
	return &outbox{ch: make(chan outboundMessage, 32), done: make(chan struct{})}
}

func (o *outbox) push(typ string, payload any) {
	select {
	case o.ch <- outboundMessage{Type: typ, Payload: payload}:
	case <-o.done:
	}
}

func (o *outbox) close() {
	o.closeOnce.Do(func() { close(o.done) })
}

// run writes queued messages until close, then flushes what is already
// queued. A write error closes the outbox so pending pushes return.
func (o *outbox) run(write func(outboundMessage) error) error {
	defer o.close()
	for {
		select {
		case msg := <-o.ch:
			if err := write(msg); err != nil {
				return err
			}
		case <-o.done:
			for {
				select {
				case msg := <-o.ch:
					if err := write(msg); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

// wsRenderer turns engine render calls into outbound events.
type wsRenderer struct {
	out *outbox

	mu        sync.Mutex
	confirmed bool
}

func (r *wsRenderer) RenderQuestion(v engine.QuestionView) { r.out.push("question", v) }

func (r *wsRenderer) RenderCompletion(t engine.Tally) { r.out.push("completion", t) }

func (r *wsRenderer) RenderTimer(v engine.TimerView) { r.out.push("timer", v) }

func (r *wsRenderer) RenderNav(v engine.NavView) { r.out.push("nav", v) }

func (r *wsRenderer) RenderQuestionList(items []engine.ListItem) { r.out.push("questionList", items) }

func (r *wsRenderer) Notify(n engine.Notification) { r.out.push("notification", n) }

func (r *wsRenderer) Redirect(url string) { r.out.push("redirect", redirectPayload{URL: url}) }

// Confirm cannot block on a browser round trip, so the client answers ahead
// of time: an unconfirmed submit gets a confirm event back and the client
// resends with confirmed=true.
func (r *wsRenderer) Confirm(prompt string) bool {
	r.mu.Lock()
	ok := r.confirmed
	r.confirmed = false
	r.mu.Unlock()
	if !ok {
		r.out.push("confirm", confirmPayload{Prompt: prompt})
	}
	return ok
}

func (r *wsRenderer) arm(confirmed bool) {
	r.mu.Lock()
	r.confirmed = confirmed
	r.mu.Unlock()
}

// ServeWS upgrades HTTP requests to websockets and binds each connection to
// one quiz session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}
	creds := requestCredentials(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.log.With("conn_id", uuid.NewString(), "quiz_id", quizID, "user_id", userID)
	ctx := r.Context()

	out := newOutbox()
	renderer := &wsRenderer{out: out}
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		if err := out.run(func(msg outboundMessage) error { return conn.WriteJSON(msg) }); err != nil {
			log.Warn("ws write error", "error", err)
		}
	}()
	stopWriter := func() {
		out.close()
		<-writerDone
	}

	sess, err := h.sessions.Open(ctx, app.OpenRequest{QuizID: quizID, UserID: userID, Credentials: creds}, renderer)
	if err != nil {
		log.Warn("open session failed", "error", err)
		out.push("error", errorPayload{Message: err.Error()})
		stopWriter()
		return
	}
	log.Info("session connected", "snapshot_key", sess.Key)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "unload" {
			break
		}
		if err := h.dispatch(ctx, sess, renderer, inbound); err != nil {
			log.Debug("message rejected", "type", inbound.Type, "error", err)
			out.push("error", errorPayload{Message: err.Error()})
		}
	}

	h.sessions.Close(context.WithoutCancel(ctx), sess)
	log.Info("session disconnected")
	stopWriter()
}

// csrfCookie is the cookie Django issues the anti-forgery token in.
const csrfCookie = "csrftoken"

// requestCredentials captures the page's cookies from the upgrade request so
// the results POST carries the same login session as the browser would. The
// csrf query parameter wins over the csrftoken cookie.
func requestCredentials(r *http.Request) app.Credentials {
	creds := app.Credentials{
		CSRFToken: r.URL.Query().Get("csrf"),
		Cookies:   r.Cookies(),
	}
	if creds.CSRFToken == "" {
		if c, err := r.Cookie(csrfCookie); err == nil {
			creds.CSRFToken = c.Value
		}
	}
	return creds
}

var errBadPayload = errors.New("invalid payload")

func (h *WSHandler) dispatch(ctx context.Context, sess *app.Session, renderer *wsRenderer, msg inboundMessage) error {
	switch msg.Type {
	case "next":
		return sess.Next()
	case "previous":
		return sess.Previous()
	case "jump":
		var p jumpPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errBadPayload
		}
		return sess.JumpTo(p.Index)
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errBadPayload
		}
		return sess.SetAnswer(p.Value)
	case "flag":
		_, err := sess.ToggleFlag()
		return err
	case "list":
		sess.ShowQuestionList()
		return nil
	case "submit":
		var p submitPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return errBadPayload
			}
		}
		renderer.arm(p.Confirmed)
		err := sess.Submit(ctx)
		var subErr *domain.SubmissionError
		if err == nil || errors.Is(err, domain.ErrSubmissionCancelled) || errors.As(err, &subErr) {
			// The user already got a confirm or notification event.
			return nil
		}
		return err
	default:
		return errors.New("unsupported message type")
	}
}
