package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zf7c/studylab_go_server/internal/pkg/jwt"
	"github.com/zf7c/studylab_go_server/internal/pkg/response"
	"github.com/zf7c/studylab_go_server/internal/pkg/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要验证 Origin
		return true
	},
}

// WebSocketHandler 作业进度推送连接。浏览器的 WebSocket API 无法携带
// Authorization 头，令牌走 query 参数。
type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
}

func NewWebSocketHandler(hub *ws.Hub, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, jwtSecret: jwtSecret}
}

// Handle 建立连接并注册到 hub
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	claims, err := jwt.ParseToken(c.Query("token"), h.jwtSecret)
	if err != nil {
		response.AuthError(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("User %d: websocket upgrade failed: %v", claims.UserID, err)
		return
	}

	client := &ws.Client{UserID: claims.UserID, Conn: conn}
	h.hub.Register(client)

	// 推送是单向的，读循环只用来发现断开
	go h.drain(client)
}

func (h *WebSocketHandler) drain(client *ws.Client) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
