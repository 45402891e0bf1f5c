package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"ramadanprep/core"
	"ramadanprep/state"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoachService_RejectsOverLimit(t *testing.T) {
	appState := &state.AppState{Sessions: make(map[string]core.Session)}
	block := make(chan struct{})
	dial := func(ctx context.Context) (core.LiveSession, error) {
		<-block
		return nil, errors.New("closed")
	}
	svc := NewCoachService(appState, dial, 1, time.Second)

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	results := make(chan error, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		results <- svc.Serve(context.Background(), conn)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return appState.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer second.Close()

	select {
	case err := <-results:
		assert.ErrorIs(t, err, state.ErrTooManySessions)
	case <-time.After(2 * time.Second):
		t.Fatal("second session was not rejected")
	}

	stats := svc.List()
	require.Len(t, stats, 1)
	assert.Equal(t, core.StatusConnecting, stats[0].Status)
	assert.ErrorIs(t, svc.Stop("missing"), ErrCoachSessionNotFound)
	require.NoError(t, svc.Stop(stats[0].ID))
	assert.Equal(t, 0, appState.Count())
}
