package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/internal/testutil"
	"github.com/Tatenda/fullstori/pkg/sse"
)

// syncRecorder lets the test read the body while the stream is still writing.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func startStream(t *testing.T, h *Handler, graphID string) (*syncRecorder, context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/graphs/"+graphID+"/stream", nil).WithContext(ctx)
	rec := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	c := echo.New().NewContext(req, rec)
	c.SetParamNames("graphId")
	c.SetParamValues(graphID)

	errc := make(chan error, 1)
	go func() { errc <- h.HandleStream(c) }()
	return rec, cancel, errc
}

func TestHandleStream_DeliversChanges(t *testing.T) {
	svc := NewService(testutil.Logger())
	h := NewHandler(svc, testutil.Logger())

	rec, cancel, errc := startStream(t, h, "graph-1")
	defer cancel()

	require.Eventually(t, func() bool { return svc.GetSubscriberCount("graph-1") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.ConnectionCount())

	svc.EmitChange(ChangeEventCreated, "graph-1", "evt-1", nil)
	svc.EmitChange(ChangeEventCreated, "graph-2", "evt-2", nil)

	require.Eventually(t, func() bool { return strings.Contains(rec.String(), "evt-1") }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	assert.Equal(t, 0, svc.GetSubscriberCount("graph-1"))
	assert.Equal(t, 0, h.ConnectionCount())

	parsed, err := testutil.ParseSSE(strings.NewReader(rec.String()))
	require.NoError(t, err)
	require.NotEmpty(t, parsed)
	assert.Equal(t, sse.EventConnected, parsed[0].Event)

	var connected sse.ConnectedEvent
	require.NoError(t, parsed[0].JSON(&connected))
	assert.Equal(t, "graph-1", connected.Topic)

	created := testutil.EventsOfType(parsed, string(ChangeEventCreated))
	require.Len(t, created, 1)
	var change ChangeEvent
	require.NoError(t, created[0].JSON(&change))
	assert.Equal(t, "evt-1", *change.ID)
}

func TestHandleStream_Heartbeat(t *testing.T) {
	h := NewHandler(NewService(testutil.Logger()), testutil.Logger())
	h.heartbeat = 10 * time.Millisecond

	rec, cancel, errc := startStream(t, h, "g")
	defer cancel()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), "event: "+sse.EventHeartbeat)
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	require.NoError(t, <-errc)
}

func TestHandleConnectionsCount(t *testing.T) {
	h := NewHandler(NewService(testutil.Logger()), testutil.Logger())

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/streams/count", nil), rec)
	require.NoError(t, h.HandleConnectionsCount(c))
	assert.JSONEq(t, `{"connections":0,"subscribers":0}`, rec.Body.String())
}
