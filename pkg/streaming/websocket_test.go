// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcsched/cons-res-select/pkg/watch"
)

func TestNewWebSocketServer(t *testing.T) {
	poller := watch.NewPoller(func(ctx context.Context) (map[string]watch.Snapshot, error) {
		return map[string]watch.Snapshot{}, nil
	})
	server := NewWebSocketServer(poller)

	require.NotNil(t, server)
	assert.Equal(t, poller, server.poller)
}

func TestHandleWebSocketStreamsEvents(t *testing.T) {
	tick := 0
	poller := watch.NewPoller(func(ctx context.Context) (map[string]watch.Snapshot, error) {
		tick++
		if tick == 1 {
			return map[string]watch.Snapshot{}, nil
		}
		return map[string]watch.Snapshot{"debug": {NumRows: 1, TotalJobs: 2, FreeCores: 6}}, nil
	}).WithPollInterval(10 * time.Millisecond)

	server := NewWebSocketServer(poller)

	ts := httptest.NewServer(http.HandlerFunc(server.HandleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg StreamMessage
	for {
		err := conn.ReadJSON(&msg)
		require.NoError(t, err)
		if msg.Type == "event" {
			break
		}
	}

	assert.Equal(t, "event", msg.Type)
}
