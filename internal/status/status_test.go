package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lolwierd/cric-commentary/internal/classify"
	"github.com/lolwierd/cric-commentary/internal/tracker"
)

type recordingDispatcher struct {
	accept   bool
	messages []string
}

func (r *recordingDispatcher) Dispatch(message string) bool {
	r.messages = append(r.messages, message)
	return r.accept
}

var four = tracker.Event{
	Position:     49.2,
	PositionText: "49.2",
	Text:         "Shami to Bracewell, FOUR!",
	Result:       classify.Four,
	Score:        "NZ 251/4 (49.2)",
}

func TestHealthz(t *testing.T) {
	h := NewRouter(NewBoard("u", "NZ"), &recordingDispatcher{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestScoreReturnsBoard(t *testing.T) {
	board := NewBoard("https://example.test/live", "NZ")
	at := time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)
	board.RecordCycle(at, "NZ 251/4 (49.2)", []tracker.Event{four})
	board.RecordNotification(four, "Over: 49.2 | Result: 4 | Score: NZ 251/4 (49.2)")

	h := NewRouter(board, &recordingDispatcher{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/score", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "NZ 251/4 (49.2)", got.Score)
	assert.Equal(t, "NZ", got.Team)
	assert.Equal(t, int64(1), got.Cycles)
	assert.Equal(t, int64(1), got.Admitted)
	assert.Equal(t, int64(1), got.Notifications)
	require.NotNil(t, got.LastNotified)
	assert.Equal(t, "49.2", got.LastNotified.PositionText)
	assert.Equal(t, classify.Four, got.LastNotified.Result)
	assert.True(t, at.Equal(got.LastCycleAt))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "4", raw["last_event"].(map[string]any)["result"])
}

func TestAlertWithoutNotificationConflicts(t *testing.T) {
	d := &recordingDispatcher{accept: true}
	h := NewRouter(NewBoard("u", "NZ"), d, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alert", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, d.messages)
}

func TestAlertRequeuesLastMessage(t *testing.T) {
	board := NewBoard("u", "NZ")
	board.RecordNotification(four, "Over: 49.2 | Result: 4 | Score: NZ 251/4 (49.2)")
	d := &recordingDispatcher{accept: true}

	h := NewRouter(board, d, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alert", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"Over: 49.2 | Result: 4 | Score: NZ 251/4 (49.2)"}, d.messages)
}

func TestAlertQueueFull(t *testing.T) {
	board := NewBoard("u", "NZ")
	board.RecordNotification(four, "m")

	h := NewRouter(board, &recordingDispatcher{accept: false}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alert", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAlertRejectsGet(t *testing.T) {
	h := NewRouter(NewBoard("u", "NZ"), &recordingDispatcher{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alert", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSnapshotIsACopy(t *testing.T) {
	board := NewBoard("u", "NZ")
	board.RecordCycle(time.Now(), "s", []tracker.Event{four})

	snap := board.Snapshot()
	snap.LastEvent.Score = "changed"
	assert.Equal(t, "NZ 251/4 (49.2)", board.Snapshot().LastEvent.Score)
}

func TestFetchErrorClearedByNextCycle(t *testing.T) {
	board := NewBoard("u", "NZ")
	board.RecordFetchError(time.Now(), errors.New("unexpected status: 503"))
	assert.Equal(t, "unexpected status: 503", board.Snapshot().LastFetchError)

	board.RecordCycle(time.Now(), "s", nil)
	snap := board.Snapshot()
	assert.Empty(t, snap.LastFetchError)
	assert.Equal(t, int64(2), snap.Cycles)
	assert.Nil(t, snap.LastEvent)
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, NewRouter(NewBoard("u", "NZ"), &recordingDispatcher{}, zap.NewNop()), zap.NewNop())
	}()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
