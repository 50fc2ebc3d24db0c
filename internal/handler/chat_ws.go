package handler

import (
	"net/http"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	ws "github.com/fadhilmayati/dompet-platform/internal/websocket"
	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ChatStreamWS serves GET /v1/chat/stream/ws: a websocket alternative to
// the SSE branch of POST /v1/chat for clients that prefer a persistent
// duplex connection over one-shot HTTP streaming (SPEC_FULL.md §7). The
// bearer token travels as a `token` query parameter since browser
// websocket clients cannot set the Authorization header during the
// handshake.
func (a *App) ChatStreamWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "missing token query parameter", domain.ErrAuthRequired)
	}

	identity, err := a.auth.AuthenticateToken(c.Request().Context(), token)
	if err != nil {
		return err
	}

	var req ChatRequest
	if bindErr := c.Bind(&req); bindErr != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, "invalid request body", domain.ErrValidation)
	}

	conn, err := a.wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return err
	}

	client := ws.NewClient(conn, a.hub)
	a.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	defer func() {
		a.hub.Unregister(client)
		client.Close()
	}()

	events, err := a.RunChatTurn(c.Request().Context(), identity, req)
	if err != nil {
		client.Send(mustEventJSON(ws.NewEvent("result", map[string]any{"error": err.Error()})))
		client.Send(mustEventJSON(ws.NewEvent("done", map[string]any{})))
		return nil
	}

	for _, evt := range events {
		client.Send(mustEventJSON(ws.NewEvent(evt.Name, evt.Data)))
	}
	return nil
}

func mustEventJSON(e ws.Event) []byte {
	data, err := e.ToJSON()
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return data
}

// checkWSOrigin restricts websocket upgrades to the same configured CORS
// origins used for ordinary HTTP requests; an empty Origin header (non-
// browser clients) is allowed through.
func checkWSOrigin(allowed []string) func(r *http.Request) bool {
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowedSet["*"] {
			return true
		}
		return allowedSet[origin]
	}
}

func newWSUpgrader(corsOrigins []string) gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkWSOrigin(corsOrigins),
	}
}
