// internal/service/push/hub.go
package push

import (
	"net/http"
	"sync"
	"time"

	"dispatch/internal/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 简化处理，允许所有跨域
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 维护所有活跃的连接。一个订单可以被多个客户端同时关注
// （下单的顾客和餐厅后台各开一条连接）。
type Hub struct {
	clients    map[string]map[*Client]struct{} // orderID -> 订阅的连接
	register   chan *Client
	unregister chan *Client
	broadcast  chan orderMessage
	lock       sync.RWMutex
}

type orderMessage struct {
	orderID string
	payload []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan orderMessage, 64),
	}
}

// Run 是 Hub 的事件循环，串行处理注册/注销/广播，避免 map 并发访问。
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if h.clients[client.orderID] == nil {
				h.clients[client.orderID] = make(map[*Client]struct{})
			}
			h.clients[client.orderID][client] = struct{}{}
			h.lock.Unlock()
			logger.Logger().Debug().Str("order", client.orderID).Msg("client subscribed")

		case client := <-h.unregister:
			h.lock.Lock()
			if subs, ok := h.clients[client.orderID]; ok {
				if _, ok := subs[client]; ok {
					delete(subs, client)
					close(client.send)
					if len(subs) == 0 {
						delete(h.clients, client.orderID)
					}
				}
			}
			h.lock.Unlock()

		case msg := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients[msg.orderID] {
				select {
				case client.send <- msg.payload:
				default:
					// 写缓冲满说明连接已死，交给 writePump 的超时处理
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Push 把一条订单事件投递给所有关注该订单的连接。没有订阅者时直接丢弃。
func (h *Hub) Push(orderID string, payload []byte) {
	h.broadcast <- orderMessage{orderID: orderID, payload: payload}
}

// Client 是一条 WebSocket 连接。
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	orderID string
}

// ServeWs 把 HTTP 请求升级为 WebSocket 并注册到 Hub。
// 客户端通过 ?orderId= 声明要关注哪个订单。
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		http.Error(w, "'orderId' is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), orderID: orderID}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump 把 send channel 里的消息写入连接，并周期性发 ping 保活。
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

// readPump 消费客户端消息（只处理 pong 心跳），连接断开时触发注销。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
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
