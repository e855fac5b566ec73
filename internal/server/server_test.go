package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/credentials"
	"github.com/forPelevin/fallacycheck/internal/types"
	"github.com/forPelevin/fallacycheck/internal/usecase"
)

const videoID = "dQw4w9WgXcQ"

type fakeAnalyzer struct {
	res   usecase.Result
	video types.VideoData
	err   error
	got   usecase.Input
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in usecase.Input) (usecase.Result, error) {
	f.got = in
	return f.res, f.err
}

func (f *fakeAnalyzer) LoadTranscript(_ context.Context, in usecase.Input) (types.VideoData, bool, error) {
	f.got = in
	return f.video, true, f.err
}

func sampleResult() usecase.Result {
	return usecase.Result{
		Video: types.VideoData{VideoID: videoID, Title: "Debate"},
		Segments: []types.Segment{
			{Timestamp: 5, Text: "Intro."},
			{Timestamp: 89, Text: "They want no rules."},
		},
		Fallacies: []types.Fallacy{
			{ID: "a", Timestamp: 90, Type: "Straw Man", Explanation: "Distorts.", Context: "They want no rules."},
			{ID: "b", Timestamp: 200, Type: "Ad Hominem", Explanation: "Attacks."},
		},
	}
}

func newTestServer(t *testing.T, a Analyzer, envKey string) (*httptest.Server, *credentials.FileStore) {
	t.Helper()
	store := credentials.NewFileStore(filepath.Join(t.TempDir(), "credentials.yaml"))
	srv := httptest.NewServer(New(Deps{
		Analyzer: a,
		Keys:     store,
		EnvKey:   func() string { return envKey },
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAnalyzer{}, "")
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyze(t *testing.T) {
	fa := &fakeAnalyzer{res: sampleResult()}
	srv, _ := newTestServer(t, fa, "")

	status, body := do(t, http.MethodPost, srv.URL+"/api/analyze",
		`{"video":"https://www.youtube.com/watch?v=`+videoID+`&t=10","title":"Debate"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, usecase.Input{VideoID: videoID, Title: "Debate"}, fa.got)
	assert.Equal(t, videoID, body["video_id"])
	assert.Len(t, body["fallacies"], 2)
	assert.Len(t, body["segments"], 2)
	assert.Equal(t, false, body["cached"])
}

func TestAnalyze_BadInput(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAnalyzer{}, "")

	status, body := do(t, http.MethodPost, srv.URL+"/api/analyze", `{"video":"not a video"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "11-character")

	status, _ = do(t, http.MethodPost, srv.URL+"/api/analyze", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAnalyze_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing key", fmt.Errorf("detect: %w", apperr.ErrMissingCredential), http.StatusUnauthorized, "Please configure your OpenRouter API key"},
		{"invalid key", &apperr.UpstreamError{Provider: "openrouter", Status: 401, Err: apperr.ErrInvalidCredential}, http.StatusUnauthorized, "Invalid API key"},
		{"no captions", apperr.ErrNoTranscript, http.StatusNotFound, "no captions"},
		{"auth required", apperr.ErrAuthRequired, http.StatusForbidden, "authentication required"},
		{"upstream", &apperr.UpstreamError{Provider: "youtube", Status: 500, Message: "boom"}, http.StatusBadGateway, "youtube status 500: boom"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeAnalyzer{err: tt.err}, "")
			status, body := do(t, http.MethodPost, srv.URL+"/api/analyze", `{"video":"`+videoID+`"}`)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body["error"], tt.message)
		})
	}
}

func TestTranscript(t *testing.T) {
	fa := &fakeAnalyzer{video: types.VideoData{
		VideoID:    videoID,
		Title:      videoID,
		Transcript: "0:05 - Intro.\ngarbage\n1:29 - They want no rules.",
	}}
	srv, _ := newTestServer(t, fa, "")

	status, body := do(t, http.MethodGet, srv.URL+"/api/transcript?v=https://youtu.be/"+videoID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, videoID, fa.got.VideoID)
	segs, ok := body["segments"].([]any)
	require.True(t, ok)
	require.Len(t, segs, 2)
	assert.Equal(t, map[string]any{"timestamp": 89.0, "text": "They want no rules."}, segs[1])
	assert.Equal(t, true, body["cached"])

	status, _ = do(t, http.MethodGet, srv.URL+"/api/transcript", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSettingsKey(t *testing.T) {
	srv, store := newTestServer(t, &fakeAnalyzer{}, "")

	status, body := do(t, http.MethodGet, srv.URL+"/api/settings/key", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["configured"])

	status, body = do(t, http.MethodPut, srv.URL+"/api/settings/key", `{"key":"sk-or-v1-abcd1234"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, "store", body["source"])
	assert.Equal(t, "*************1234", body["masked"])
	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-or-v1-abcd1234", stored)

	status, _ = do(t, http.MethodPut, srv.URL+"/api/settings/key", `{"key":"  "}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodDelete, srv.URL+"/api/settings/key", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["configured"])
	_, err = store.Get()
	require.ErrorIs(t, err, apperr.ErrMissingCredential)
}

func TestSettingsKey_EnvWins(t *testing.T) {
	srv, store := newTestServer(t, &fakeAnalyzer{}, "sk-env-9999")
	require.NoError(t, store.Set("sk-stored-0000"))

	_, body := do(t, http.MethodGet, srv.URL+"/api/settings/key", "")
	assert.Equal(t, "env", body["source"])
	assert.Equal(t, "*******9999", body["masked"])
}

func dialWatch(t *testing.T, srv *httptest.Server, v string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/watch?v=" + v
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWatch_PlaybackEvents(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAnalyzer{res: sampleResult()}, "")
	conn := dialWatch(t, srv, videoID)

	var first watchMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, msgFallacies, first.Type)
	assert.Equal(t, videoID, first.VideoID)
	require.Len(t, first.Fallacies, 2)

	// 10s: nothing. 89.5s: Straw Man appears. 90.5s: unchanged. 95s: clears.
	// 199s: Ad Hominem appears.
	for _, pos := range []float64{10, 89.5, 90.5, 95, 199} {
		require.NoError(t, conn.WriteJSON(positionUpdate{Position: pos}))
	}

	var got []watchMessage
	for i := 0; i < 3; i++ {
		var m watchMessage
		require.NoError(t, conn.ReadJSON(&m))
		got = append(got, m)
	}
	require.Equal(t, msgActive, got[0].Type)
	assert.Equal(t, "a", got[0].Fallacy.ID)
	assert.Equal(t, msgClear, got[1].Type)
	assert.Nil(t, got[1].Fallacy)
	require.Equal(t, msgActive, got[2].Type)
	assert.Equal(t, "b", got[2].Fallacy.ID)
}

func TestWatch_AnalysisError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAnalyzer{err: apperr.ErrNoTranscript}, "")
	conn := dialWatch(t, srv, videoID)

	var m watchMessage
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, msgError, m.Type)
	assert.Equal(t, http.StatusNotFound, m.Status)
	assert.Equal(t, "This video has no captions available", m.Error)
}

func TestWatch_RejectsBadVideo(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAnalyzer{}, "")
	resp, err := http.Get(srv.URL + "/api/watch?v=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("x")))
}
