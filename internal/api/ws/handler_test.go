package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/monitoring"
)

func startServer(t *testing.T, hub *adb.Hub, metrics *monitoring.Metrics) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/logs/stream", NewHandler(hub, metrics, zap.NewNop()).HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/logs/stream"
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func TestStreamEntries(t *testing.T) {
	hub := adb.NewHub(8)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	url := startServer(t, hub, metrics)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	welcome := readMessage(t, conn)
	assert.Equal(t, "system", welcome.Type)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(adb.Entry{Level: adb.LevelError, Message: "broken", Resource: "main.js", Time: time.Now()})

	msg := readMessage(t, conn)
	assert.Equal(t, "entry", msg.Type)
	require.NotNil(t, msg.Entry)
	assert.Equal(t, "broken", msg.Entry.Message)
	assert.Equal(t, adb.LevelError, msg.Entry.Level)
	assert.Equal(t, "main.js", msg.Entry.Resource)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WSMessages.WithLabelValues("out", "entry")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStreamHistory(t *testing.T) {
	hub := adb.NewHub(8)
	for _, m := range []string{"a", "b", "c"} {
		hub.Publish(adb.Entry{Level: adb.LevelInfo, Message: m})
	}
	url := startServer(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?history=2", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "system", readMessage(t, conn).Type)
	assert.Equal(t, "b", readMessage(t, conn).Entry.Message)
	assert.Equal(t, "c", readMessage(t, conn).Entry.Message)

	// Live entries follow the replay without repeating it.
	hub.Publish(adb.Entry{Level: adb.LevelInfo, Message: "d"})
	assert.Equal(t, "d", readMessage(t, conn).Entry.Message)
}

func TestStreamUnsubscribesOnClose(t *testing.T) {
	hub := adb.NewHub(8)
	url := startServer(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamBadHistory(t *testing.T) {
	url := startServer(t, adb.NewHub(8), nil)

	_, resp, err := websocket.DefaultDialer.Dial(url+"?history=x", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
