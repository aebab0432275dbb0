package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	hub := NewHub(origins)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, r.URL.Query().Get("id")); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, importID string, header http.Header) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=" + importID
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_PublishReachesWatchers(t *testing.T) {
	hub, srv := startHub(t, []string{"*"})

	conn, _, err := dial(t, srv, "imp-1", nil)
	require.NoError(t, err)
	defer conn.Close()

	other, _, err := dial(t, srv, "imp-2", nil)
	require.NoError(t, err)
	defer other.Close()

	require.Eventually(t, func() bool { return hub.Watchers("imp-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("imp-1", map[string]int{"processed": 100, "total": 250})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type     string         `json:"type"`
		ImportID string         `json:"import_id"`
		Data     map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "import_progress", msg.Type)
	assert.Equal(t, "imp-1", msg.ImportID)
	assert.Equal(t, 100, msg.Data["processed"])

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "watchers of another import receive nothing")
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn, _, err := dial(t, srv, "imp-1", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Watchers("imp-1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Watchers("imp-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	_, srv := startHub(t, []string{"http://localhost:3000"})

	_, resp, err := dial(t, srv, "imp-1", http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "imp-1", http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	conn.Close()
}

func TestHub_PublishWithoutWatchersDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Publish("nobody", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

func TestHub_StoppedHubNeverBlocks(t *testing.T) {
	hub := NewHub([]string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		// more than the unregister buffer holds
		for i := 0; i < 1000; i++ {
			hub.Unregister(&Client{hub: hub, importID: "late", send: make(chan []byte)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after the hub stopped")
	}

	errs := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs <- hub.Serve(w, r, "late")
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv, "late", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrHubClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve blocked after the hub stopped")
	}
}
