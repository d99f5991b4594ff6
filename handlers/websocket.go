package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	httpHandler "shoplist-server/handlers/http"
	"shoplist-server/usecases"
	"shoplist-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// incomingMessage is a client frame: join or leave a list channel.
type incomingMessage struct {
	Type string `json:"type"` // join | leave
	List string `json:"list"`
}

// WSHandler groups dependencies for the realtime channel
type WSHandler struct {
	mgr      *ws.Manager
	auth     *usecases.AuthUseCase
	lists    *usecases.ListUseCase
	upgrader websocket.Upgrader
}

func NewWSHandler(mgr *ws.Manager, auth *usecases.AuthUseCase, lists *usecases.ListUseCase, allowedOrigins []string) *WSHandler {
	allowed := OriginAllowed(allowedOrigins)
	return &WSHandler{
		mgr:   mgr,
		auth:  auth,
		lists: lists,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// non-browser clients send no Origin header
				origin := r.Header.Get("Origin")
				return origin == "" || allowed(origin)
			},
		},
	}
}

// OriginAllowed returns a matcher for an explicit origin allow-list.
func OriginAllowed(origins []string) func(string) bool {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// HandleListWS upgrades to websocket and serves join/leave requests
// GET /ws?token=<jwt>
func (h *WSHandler) HandleListWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = httpHandler.BearerToken(c)
	}
	userID, err := h.auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(userID, conn)
	h.mgr.Register(client)
	go client.WritePump()
	slog.Info("realtime client connected", "user", userID)

	// Ensure cleanup on exit
	defer func() {
		h.mgr.Unregister(client)
		slog.Info("realtime client disconnected", "user", userID)
	}()

	client.PrepareRead()
	for {
		mt, message, err := client.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("realtime read ended", "user", userID, "error", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var msg incomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.mgr.SendTo(client, ws.EventError, gin.H{"message": "invalid message"})
			continue
		}
		h.handleMessage(client, msg)
	}
}

func (h *WSHandler) handleMessage(client *ws.Client, msg incomingMessage) {
	switch msg.Type {
	case "join":
		if err := h.join(client, msg.List); err != nil {
			h.mgr.SendTo(client, ws.EventError, gin.H{"list": msg.List, "message": errorMessage(err)})
			return
		}
		h.mgr.SendTo(client, ws.EventJoined, gin.H{"uuid": msg.List})
	case "leave":
		h.mgr.Leave(client, msg.List)
		h.mgr.SendTo(client, ws.EventLeft, gin.H{"uuid": msg.List})
	default:
		h.mgr.SendTo(client, ws.EventError, gin.H{"message": "unknown message type: " + msg.Type})
	}
}

// join subscribes client to a list it may read. The list is read again
// after joining: a deletion that lands between the two reads either
// broadcasts to the new member or is seen by the second read.
func (h *WSHandler) join(client *ws.Client, listUUID string) error {
	if _, err := h.lists.GetList(listUUID, client.UserID); err != nil {
		return err
	}
	if !h.mgr.Join(client, listUUID) {
		return errors.New("client is not registered")
	}
	if _, err := h.lists.GetList(listUUID, client.UserID); err != nil {
		h.mgr.Leave(client, listUUID)
		return err
	}
	return nil
}

func errorMessage(err error) string {
	var ue *usecases.Error
	if errors.As(err, &ue) && ue.Kind != usecases.KindInternal {
		return ue.Message
	}
	return "server error"
}

// GetChannels GET /api/realtime/channels
func (h *WSHandler) GetChannels(c *gin.Context) {
	channels := h.mgr.Channels()
	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"count":    len(channels),
		"clients":  h.mgr.ConnectedClients(),
	})
}
