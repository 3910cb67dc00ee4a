package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/pipeline"
)

const positiveText = "PRESUDA U IME NARODA\n\nSud je utvrdio da postoji gruba nepažnja okrivljenog."

type fakeRecords struct {
	lastFilter types.SearchFilter
	lastLimit  int
	countErr   error
}

func (f *fakeRecords) Upsert(context.Context, []models.Record) error { return nil }

func (f *fakeRecords) Search(_ context.Context, _ []float32, filter types.SearchFilter, limit int) ([]types.SearchResult, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	return []types.SearchResult{{Score: 0.87, Record: models.Record{DocID: "d1", Court: "Osnovni Sud u Beogradu"}}}, nil
}

func (f *fakeRecords) Count(context.Context) (int, error) { return 42, f.countErr }

func (f *fakeRecords) Close() {}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0, 0}, nil }

func newTestServer(records types.RecordStore, embedder types.Embedder) *httptest.Server {
	s := New(Config{}, pipeline.NewWithConfig(pipeline.PipelineConfig{}), records, embedder)
	return httptest.NewServer(s.Handler())
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"ok": true}, body)

	ts2 := newTestServer(&fakeRecords{}, nil)
	defer ts2.Close()
	resp, err = http.Get(ts2.URL + "/health")
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	assert.Equal(t, float64(42), body["docs"])

	ts3 := newTestServer(&fakeRecords{countErr: errors.New("down")}, nil)
	defer ts3.Close()
	resp, err = http.Get(ts3.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAnonymize(t *testing.T) {
	ts := newTestServer(nil, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/anonymize", "application/json",
		strings.NewReader(`{"text":"Kontakt: ana.peric@example.com, tel 060 123 4567"}`))
	require.NoError(t, err)
	var body textRequest
	decodeBody(t, resp, &body)
	assert.Equal(t, "Kontakt: [EMAIL], tel [PHONE]", body.Text)

	resp, err = http.Post(ts.URL+"/v1/anonymize", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClassify(t *testing.T) {
	ts := newTestServer(nil, nil)
	defer ts.Close()

	post := func(req classifyRequest) (*http.Response, classifyResponse) {
		data, err := json.Marshal(req)
		require.NoError(t, err)
		resp, err := http.Post(ts.URL+"/v1/classify", "application/json", strings.NewReader(string(data)))
		require.NoError(t, err)
		var body classifyResponse
		if resp.StatusCode == http.StatusOK {
			decodeBody(t, resp, &body)
		} else {
			resp.Body.Close()
		}
		return resp, body
	}

	resp, body := post(classifyRequest{Text: positiveText})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.LabelPositive, body.Classification.Label)
	assert.Equal(t, models.RuleGrossTerm, body.Classification.RuleID)
	assert.Nil(t, body.Record)

	_, body = post(classifyRequest{FileName: "osnovni-sud-u-beogradu-p-1234-2020.txt", Text: positiveText})
	require.NotNil(t, body.Record)
	assert.Equal(t, "Osnovni Sud u Beogradu", body.Record.Court)
	assert.Equal(t, 1, body.Record.GrossNegligence)

	_, body = post(classifyRequest{FileName: "odluka.txt", Text: positiveText})
	assert.Nil(t, body.Record)
	assert.Equal(t, pipeline.ReasonFilename, body.Skipped)

	resp, _ = post(classifyRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(nil, nil)
		defer ts.Close()
		resp, err := http.Get(ts.URL + "/v1/search?q=gruba")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	records := &fakeRecords{}
	ts := newTestServer(records, fakeEmbedder{})
	defer ts.Close()

	for _, q := range []string{"", "q=gruba&k=0", "q=gruba&k=26", "q=gruba&k=x", "q=gruba&godina_from=lani"} {
		resp, err := http.Get(ts.URL + "/v1/search?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp, err := http.Get(ts.URL + "/v1/search?q=gruba+nepa%C5%BEnja&k=5&court=Osnovni+Sud+u+Beogradu&upisnik=P&godina_from=2018&godina_to=2022")
	require.NoError(t, err)
	var body struct {
		K       int                  `json:"k"`
		Results []types.SearchResult `json:"results"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, body.K)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "d1", body.Results[0].Record.DocID)
	assert.Equal(t, 5, records.lastLimit)
	assert.Equal(t, types.SearchFilter{Court: "Osnovni Sud u Beogradu", Upisnik: "P", GodinaFrom: 2018, GodinaTo: 2022}, records.lastFilter)

	resp, err = http.Get(ts.URL + "/v1/search?q=gruba")
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	assert.Equal(t, 10, records.lastLimit)
}

func TestWebSocket(t *testing.T) {
	ts := newTestServer(nil, nil)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "classify", Content: positiveText}))
	var reply struct {
		Type string           `json:"type"`
		Data classifyResponse `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "result", reply.Type)
	assert.Equal(t, models.LabelPositive, reply.Data.Classification.Label)

	require.NoError(t, conn.WriteJSON(Message{Type: "anonymize", Content: "pišite na ana@example.com"}))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "result", msg.Type)
	assert.Equal(t, "pišite na [EMAIL]", msg.Content)

	require.NoError(t, conn.WriteJSON(Message{Type: "chat", Content: "zdravo"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("nije json")))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid message", msg.Content)
}

func TestWebSocketOrigins(t *testing.T) {
	dial := func(ts *httptest.Server, origin string) (*http.Response, error) {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
		if conn != nil {
			conn.Close()
		}
		return resp, err
	}

	t.Run("same origin by default", func(t *testing.T) {
		ts := newTestServer(nil, nil)
		defer ts.Close()
		_, err := dial(ts, ts.URL)
		assert.NoError(t, err)
		resp, err := dial(ts, "https://evil.example")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("allow list", func(t *testing.T) {
		s := New(Config{AllowedOrigins: []string{"https://sud.example/"}}, pipeline.NewWithConfig(pipeline.PipelineConfig{}), nil, nil)
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()
		_, err := dial(ts, "https://SUD.example")
		assert.NoError(t, err)
		_, err = dial(ts, "https://evil.example")
		assert.Error(t, err)
	})

	t.Run("wildcard", func(t *testing.T) {
		s := New(Config{AllowedOrigins: []string{"*"}}, pipeline.NewWithConfig(pipeline.PipelineConfig{}), nil, nil)
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()
		_, err := dial(ts, "https://evil.example")
		assert.NoError(t, err)
	})
}
