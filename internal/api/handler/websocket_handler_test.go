package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/service"
)

func newTestHub(t *testing.T) (*WebSocketManager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wsm := NewWebSocketManager()
	go wsm.Start()

	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(wsm).HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return wsm, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readChangeEvent(t *testing.T, conn *websocket.Conn) domain.CollectionChangeEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var event domain.CollectionChangeEvent
	require.NoError(t, json.Unmarshal(message, &event))
	return event
}

func TestWebSocketManager_BroadcastsChangeEvents(t *testing.T) {
	wsm, url := newTestHub(t)

	conn := dialHub(t, url)
	defer conn.Close()

	// Chờ hub ghi nhận kết nối trước khi phát sự kiện
	time.Sleep(50 * time.Millisecond)

	wsm.NotifyChange(service.CollectionParkingSlots, "update")

	event := readChangeEvent(t, conn)
	assert.Equal(t, service.CollectionParkingSlots, event.Collection)
	assert.Equal(t, "update", event.Action)
	assert.False(t, event.At.IsZero())
}

func TestWebSocketManager_DropsDeadClientsAndKeepsBroadcasting(t *testing.T) {
	wsm, url := newTestHub(t)

	dead := dialHub(t, url)
	alive := dialHub(t, url)
	defer alive.Close()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, dead.Close())
	time.Sleep(50 * time.Millisecond)

	// Phát hai lần: lần đầu có thể còn trúng client đã đóng và loại nó,
	// client còn sống vẫn phải nhận đủ cả hai sự kiện
	wsm.NotifyChange(service.CollectionUsers, "add")
	wsm.NotifyChange(service.CollectionHistory, "add")

	first := readChangeEvent(t, alive)
	assert.Equal(t, service.CollectionUsers, first.Collection)

	second := readChangeEvent(t, alive)
	assert.Equal(t, service.CollectionHistory, second.Collection)
}
