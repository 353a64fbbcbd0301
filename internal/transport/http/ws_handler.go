package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/session"
)

// ControllerFactory builds a fresh session controller for one connection.
type ControllerFactory func(opts session.Options) *session.Controller

// QuotaConsumer burns plan allowance once a fresh session completes.
type QuotaConsumer interface {
	Consume(ctx context.Context, userID string) error
}

// CompletionPublisher fans completed results out to other services.
type CompletionPublisher interface {
	PublishCompleted(record domain.ResultRecord)
}

// WSHandler runs one quiz session per websocket connection: inbound
// messages drive the controller, controller events stream back out.
type WSHandler struct {
	factory   ControllerFactory
	quota     QuotaConsumer
	publisher CompletionPublisher
	upgrader  websocket.Upgrader
}

func NewWSHandler(factory ControllerFactory, quota QuotaConsumer, publisher CompletionPublisher) *WSHandler {
	return &WSHandler{
		factory:   factory,
		quota:     quota,
		publisher: publisher,
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

type answerPayload struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
}

type navigatePayload struct {
	Target string `json:"target"`
	Unload bool   `json:"unload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type decisionPayload struct {
	Decision session.NavigationDecision `json:"decision"`
	Target   string                     `json:"target"`
}

// questionView hides the correct label and explanation while answering.
type questionView struct {
	Number  int             `json:"number"`
	Prompt  string          `json:"prompt"`
	Choices []domain.Choice `json:"choices"`
}

type questionsPayload struct {
	Questions []questionView `json:"questions"`
	Remaining int            `json:"remaining"`
}

// ServeWS upgrades the request and wires the connection into a session.
// Query params: userId (required); quizId/attemptId select the scheduled
// path; config carries a JSON SessionConfig for auto-start; location names
// the route the navigation guard protects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	opts := session.Options{
		UserID:    userID,
		QuizID:    query.Get("quizId"),
		AttemptID: query.Get("attemptId"),
		Location:  query.Get("location"),
	}
	if opts.Location == "" {
		opts.Location = "/quiz"
	}
	if raw := query.Get("config"); raw != "" {
		var cfg domain.SessionConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			http.Error(w, "invalid config", http.StatusBadRequest)
			return
		}
		opts.CarriedConfig = &cfg
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	controller := h.factory(opts)

	// The session outlives the request context on purpose: an expiring
	// timer must still produce a result if the client drops.
	ctx := context.Background()

	updates, cancel := controller.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				for _, msg := range h.outbound(ctx, controller, opts, event) {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		if err := controller.Start(ctx); err != nil {
			log.Printf("session start for %s: %v", userID, err)
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "configure":
			var cfg domain.SessionConfig
			if err := json.Unmarshal(inbound.Payload, &cfg); err != nil {
				send <- errorMessage("invalid configure payload")
				continue
			}
			go func() {
				if err := controller.Configure(ctx, cfg); err != nil {
					log.Printf("configure for %s: %v", userID, err)
				}
			}()
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			if err := controller.SelectAnswer(payload.Number, payload.Label); err != nil {
				send <- errorMessage(err.Error())
			}
		case "submit":
			go controller.Submit(ctx)
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid navigate payload")
				continue
			}
			decision := controller.RequestNavigation(payload.Target, payload.Unload)
			send <- outboundMessage[any]{Type: "navigationDecision", Payload: decisionPayload{
				Decision: decision,
				Target:   payload.Target,
			}}
		case "confirmLeave":
			go controller.ConfirmDeparture(ctx)
		case "cancelLeave":
			controller.CancelDeparture()
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// outbound maps a session event onto wire messages. Entering the active
// phase additionally pushes the (sanitized) question set; completion also
// triggers the side effects that live at this boundary.
func (h *WSHandler) outbound(ctx context.Context, controller *session.Controller, opts session.Options, event session.Event) []outboundMessage[any] {
	msgs := []outboundMessage[any]{{Type: string(event.Kind), Payload: event}}

	if event.Kind == session.EventPhaseChanged && event.Phase == domain.PhaseActive {
		views := make([]questionView, 0)
		for _, q := range controller.Questions() {
			views = append(views, questionView{Number: q.Number, Prompt: q.Prompt, Choices: q.Choices})
		}
		msgs = append(msgs, outboundMessage[any]{Type: "questions", Payload: questionsPayload{
			Questions: views,
			Remaining: event.Remaining,
		}})
	}

	if event.Kind == session.EventSessionCompleted && event.Result != nil {
		if h.publisher != nil {
			h.publisher.PublishCompleted(*event.Result)
		}
		if h.quota != nil && opts.QuizID == "" {
			if err := h.quota.Consume(ctx, opts.UserID); err != nil {
				log.Printf("consume quota for %s: %v", opts.UserID, err)
			}
		}
	}
	return msgs
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
