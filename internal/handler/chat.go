package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/plan"
	"github.com/fadhilmayati/dompet-platform/internal/util"
	"github.com/labstack/echo/v4"
)

// ChatMessageDTO is one turn of the conversation body.
type ChatMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions is the caller-supplied tuning knob set; every field is optional.
type ChatOptions struct {
	Month string `json:"month,omitempty"`
}

// ChatRequest is the body of POST /v1/chat (spec.md §6).
type ChatRequest struct {
	Conversation []ChatMessageDTO `json:"conversation"`
	Options      ChatOptions      `json:"options,omitempty"`
}

// ChatResponse is the body of POST /v1/chat (spec.md §6).
type ChatResponse struct {
	Reply    string               `json:"reply"`
	KPIs     map[string]domain.KPI `json:"kpis,omitempty"`
	Actions  []domain.SuggestedAction `json:"actions,omitempty"`
	Followup string               `json:"followup,omitempty"`
}

const clarifyingFollowup = "Could you clarify your request so I can recommend the right action?"

// Chat serves POST /v1/chat. With Accept: text/event-stream it instead
// streams the intent/plan/chunk/result/metadata/done event sequence
// described in spec.md §6.
func (a *App) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, "invalid request body", domain.ErrValidation)
	}
	if len(req.Conversation) == 0 {
		return domain.NewCodedError(domain.ErrCodeValidation, "conversation must not be empty", domain.ErrValidation)
	}

	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}

	ctx, cancel := governor.WithDeadline(c.Request().Context(), a.deps.RequestTimeout)
	defer cancel()

	conversation := make([]domain.ConversationMessage, len(req.Conversation))
	for i, m := range req.Conversation {
		conversation[i] = domain.ConversationMessage{Role: domain.ConversationRole(m.Role), Content: m.Content}
	}

	month := req.Options.Month
	if month == "" {
		month = util.MonthOf(time.Now())
	}

	classification, err := plan.Classify(ctx, a.deps.Router, conversation)
	if err != nil {
		return err
	}
	builtPlan := plan.Build(classification)

	if isSSE(c.Request()) {
		return a.streamChat(c, identity, month, conversation, classification, builtPlan)
	}

	state, err := a.deps.Executor.Execute(ctx, plan.ExecuteInput{
		TenantID:       identity.TenantID,
		CustomerID:     identity.CustomerID,
		UserID:         identity.UserID,
		Month:          month,
		Conversation:   conversation,
		Classification: classification,
		Plan:           builtPlan,
	})
	if err != nil {
		return err
	}

	resp := ChatResponse{Reply: state.FinalMessage}
	resp.KPIs, resp.Actions = a.latestKPIsAndActions(ctx, identity, month)
	if classification.Confidence < domain.LowConfidenceThreshold {
		resp.Followup = clarifyingFollowup
	}
	return c.JSON(http.StatusOK, resp)
}

// latestKPIsAndActions looks up the identity's latest computed insight for
// month and, if one exists, re-scores it and derives suggested actions with
// impact so the chat response can carry the same Response Assembler
// fields (spec.md §2) that POST /v1/insights returns. A missing insight is
// not an error here — chat turns that haven't triggered an insight
// computation yet simply omit kpis/actions from the response.
func (a *App) latestKPIsAndActions(ctx context.Context, identity *domain.AuthenticatedUser, month string) (map[string]domain.KPI, []domain.SuggestedAction) {
	if a.deps.Insights == nil {
		return nil, nil
	}
	insight, err := a.deps.Insights.GetByUserMonth(ctx, identity.UserID, month)
	if err != nil || insight == nil {
		return nil, nil
	}

	h := a.deps.Scorer.Score(insight.KPIs)
	actions := a.deps.Suggester.Suggest(insight.KPIs, h)
	cashFlow := insight.KPIs[domain.KPICashFlow].Value
	income := insight.KPIs[domain.KPIIncome].Value
	for i := range actions {
		actions[i].ImpactMYR, actions[i].ScoreDelta = action.Impact(actions[i], income, cashFlow, h.Total)
	}
	return insight.KPIs, actions
}

func isSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// ChatTurnEvent is the exported shape of chatEvent, used by the websocket
// transport which lives in a separate package.
type ChatTurnEvent struct {
	Name string
	Data any
}

// RunChatTurn classifies, plans, and executes one chat turn and returns the
// full intent/plan/chunk/result/metadata/done event sequence. It is the
// transport-agnostic core shared by the SSE path above and the websocket
// upgrade handler (SPEC_FULL.md §7).
func (a *App) RunChatTurn(ctx context.Context, identity *domain.AuthenticatedUser, req ChatRequest) ([]ChatTurnEvent, error) {
	if len(req.Conversation) == 0 {
		return nil, domain.NewCodedError(domain.ErrCodeValidation, "conversation must not be empty", domain.ErrValidation)
	}

	conversation := make([]domain.ConversationMessage, len(req.Conversation))
	for i, m := range req.Conversation {
		conversation[i] = domain.ConversationMessage{Role: domain.ConversationRole(m.Role), Content: m.Content}
	}

	month := req.Options.Month
	if month == "" {
		month = util.MonthOf(time.Now())
	}

	classification, err := plan.Classify(ctx, a.deps.Router, conversation)
	if err != nil {
		return nil, err
	}
	builtPlan := plan.Build(classification)

	deadlineCtx, cancel := governor.WithDeadline(ctx, a.deps.RequestTimeout)
	defer cancel()

	events := a.runChatEvents(deadlineCtx, identity, month, conversation, classification, builtPlan)
	out := make([]ChatTurnEvent, len(events))
	for i, e := range events {
		out[i] = ChatTurnEvent{Name: e.Name, Data: e.Data}
	}
	return out, nil
}

func (a *App) streamChat(c echo.Context, identity *domain.AuthenticatedUser, month string, conversation []domain.ConversationMessage, classification *domain.IntentClassification, builtPlan *domain.Plan) error {
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, evt := range a.runChatEvents(c.Request().Context(), identity, month, conversation, classification, builtPlan) {
		writeEvent(w, evt.Name, evt.Data)
	}
	return nil
}

// chatEvent is one entry of the ordered intent/plan/chunk/result/metadata/done
// sequence shared by the SSE and websocket transports of POST|GET /v1/chat
// (spec.md §6, SPEC_FULL.md §7).
type chatEvent struct {
	Name string
	Data any
}

// runChatEvents executes the plan and returns the full ordered event
// sequence for a single chat turn, independent of how it will be
// transported to the client.
func (a *App) runChatEvents(ctx context.Context, identity *domain.AuthenticatedUser, month string, conversation []domain.ConversationMessage, classification *domain.IntentClassification, builtPlan *domain.Plan) []chatEvent {
	events := []chatEvent{
		{Name: "intent", Data: classification},
		{Name: "plan", Data: builtPlan},
	}

	state, err := a.deps.Executor.Execute(ctx, plan.ExecuteInput{
		TenantID:       identity.TenantID,
		CustomerID:     identity.CustomerID,
		UserID:         identity.UserID,
		Month:          month,
		Conversation:   conversation,
		Classification: classification,
		Plan:           builtPlan,
	})
	if err != nil {
		events = append(events,
			chatEvent{Name: "result", Data: map[string]any{"error": err.Error()}},
			chatEvent{Name: "done", Data: map[string]any{}},
		)
		return events
	}

	resp := ChatResponse{Reply: state.FinalMessage}
	resp.KPIs, resp.Actions = a.latestKPIsAndActions(ctx, identity, month)
	if classification.Confidence < domain.LowConfidenceThreshold {
		resp.Followup = clarifyingFollowup
	}

	events = append(events,
		chatEvent{Name: "chunk", Data: map[string]string{"text": state.FinalMessage}},
		chatEvent{Name: "result", Data: resp},
		chatEvent{Name: "metadata", Data: map[string]any{"intent": classification.Intent}},
		chatEvent{Name: "done", Data: map[string]any{}},
	)
	return events
}

func writeEvent(w *echo.Response, event string, data any) {
	payload, err := util.CanonicalJSON(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	w.Flush()
}
