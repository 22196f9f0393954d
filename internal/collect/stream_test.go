package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/netcollect/internal/event"
	"github.com/HerbHall/netcollect/internal/testutil"
)

func TestModule_CollectPublishesCycle(t *testing.T) {
	m, _, _ := newTestModule(t, nil)

	var got []*Cycle
	m.bus.Subscribe(TopicCycle, func(_ context.Context, e event.Event) {
		got = append(got, e.Payload.(*Cycle))
	})

	_, err := m.Normalize(context.Background(), testutil.NewResource(), map[string]string{"requests": "1"})
	require.NoError(t, err)
	assert.Empty(t, got, "normalize-only cycles are not published")

	c, err := m.Collect(context.Background(), testutil.NewResource(), map[string]string{"requests": "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)
}

func TestHandleStream(t *testing.T) {
	m, _, _ := newTestModule(t, nil)

	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" "+r.Path, r.Handler)
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?resource=r1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, err = m.Collect(ctx, testutil.NewResource(testutil.WithResourceID("r2")), map[string]string{"requests": "5"})
	require.NoError(t, err)
	_, err = m.Collect(ctx, testutil.NewResource(testutil.WithResourceID("r1")), map[string]string{"requests": "6"})
	require.NoError(t, err)

	var msg cycleResponse
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "r1", string(msg.Resource.ID), "other resources are filtered out")
	require.Len(t, msg.Samples, 1)
	assert.Equal(t, "6", msg.Samples[0].Value)
	require.NotNil(t, msg.Persisted)
	assert.Equal(t, 1, msg.Persisted.Written)
}
