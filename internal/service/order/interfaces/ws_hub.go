// internal/service/order/interfaces/ws_hub.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"takeout/internal/pkg/logger"
	"takeout/internal/service/order/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
		return true
	},
}

// dashboardMessage 是推送给商家端看板的报文。
// type: 1=来单提醒 2=客户催单 3=状态变更
type dashboardMessage struct {
	Type    int    `json:"type"`
	OrderID int64  `json:"orderId"`
	Content string `json:"content"`
}

// Hub 维护所有活跃的看板连接，并负责消息广播。
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{} // Run 退出时关闭，解除所有等在注册/注销上的连接
	lock       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run 驱动注册、注销与广播，阻塞直到 ctx 取消。
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// 先关 done，正在连接或断开的 goroutine 不会卡在无人消费的 channel 上
			close(h.done)
			h.lock.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.lock.Unlock()
			return nil
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.lock.Unlock()
			logger.Logger().Info().Int("clients", total).Msg("dashboard client registered")
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Logger().Info().Msg("dashboard client unregistered")
		case payload := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// 写缓冲已满说明连接已死，交给 readPump 收尾
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Broadcast 把订单事件推给所有在线看板。实现 infrastructure.Broadcaster。
func (h *Hub) Broadcast(event *domain.OrderEvent) {
	payload, err := json.Marshal(dashboardMessage{
		Type:    event.Type,
		OrderID: event.OrderID,
		Content: event.Content,
	})
	if err != nil {
		logger.Logger().Error().Err(err).Msg("failed to marshal dashboard message")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		logger.Logger().Warn().Msg("dashboard broadcast channel full, dropping message")
	}
}

// add 注册客户端。Hub 已停止时返回 false，调用方应直接放弃这条连接。
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// drop 注销客户端。Hub 已停止时直接返回，不阻塞。
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Client 是一个WebSocket连接的代表。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// writePump 负责将send channel中的消息写入websocket，并维持心跳。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 负责读取心跳等消息，连接断开时注销客户端。
func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ServeWs 把HTTP请求升级为WebSocket并注册到Hub。
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	if !h.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
