package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/pipeline"
	"github.com/xhad/verdict/pkg/store"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Data     any    `json:"data,omitempty"`
}

type Config struct {
	ListenAddr      string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	// AllowedOrigins lists origins accepted on /ws, e.g. "https://sud.example".
	// Empty means same-origin only; "*" accepts any origin.
	AllowedOrigins []string
}

// Server exposes the classifier, the anonymizer and record search over HTTP.
// records and embedder are optional; search answers 503 without them.
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	pipeline *pipeline.Pipeline
	records  types.RecordStore
	embedder types.Embedder
}

func New(config Config, p *pipeline.Pipeline, records types.RecordStore, embedder types.Embedder) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 10 << 20
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
		pipeline: p,
		records:  records,
		embedder: embedder,
	}
}

// originChecker returns nil for an empty list, which makes the upgrader
// enforce same-origin requests.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.ToLower(origin)]
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/anonymize", s.handleAnonymize)
	mux.HandleFunc("POST /v1/classify", s.handleClassify)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.config.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"ok": true}
	if s.records != nil {
		n, err := s.records.Count(r.Context())
		if err != nil {
			slog.Error("health count failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "record store unavailable"})
			return
		}
		resp["docs"] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, textRequest{Text: s.pipeline.Anonymize(req.Text)})
}

type classifyRequest struct {
	FileName  string `json:"file_name"`
	Text      string `json:"text"`
	Anonymize bool   `json:"anonymize"`
}

type classifyResponse struct {
	Classification models.ClassificationRecord `json:"classification"`
	Record         *models.Record              `json:"record,omitempty"`
	Skipped        string                      `json:"skipped,omitempty"`
}

func (s *Server) classify(req classifyRequest) classifyResponse {
	text := req.Text
	if req.Anonymize {
		text = s.pipeline.Anonymize(text)
	}
	resp := classifyResponse{Classification: s.pipeline.Classify(text)}
	if req.FileName != "" {
		rec, err := s.pipeline.Label(req.FileName, text)
		if err != nil {
			resp.Skipped = pipeline.Reason(err)
		} else {
			resp.Record = &rec
		}
	}
	return resp
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, s.classify(req))
}

func parseSearch(r *http.Request) (string, types.SearchFilter, int, error) {
	q := r.URL.Query()
	var filter types.SearchFilter

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		return "", filter, 0, errors.New("q is required")
	}

	k := store.DefaultSearchLimit
	if v := q.Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > store.MaxSearchLimit {
			return "", filter, 0, fmt.Errorf("k must be between 1 and %d", store.MaxSearchLimit)
		}
		k = n
	}

	filter.Court = q.Get("court")
	filter.Upisnik = q.Get("upisnik")
	for key, dst := range map[string]*int{"godina_from": &filter.GodinaFrom, "godina_to": &filter.GodinaTo} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return "", filter, 0, fmt.Errorf("%s must be a year", key)
			}
			*dst = n
		}
	}
	return query, filter, k, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.records == nil || s.embedder == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}
	query, filter, k, err := parseSearch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	emb, err := s.embedder.Embed(r.Context(), query)
	if err != nil {
		slog.Error("query embedding failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to embed query")
		return
	}
	results, err := s.records.Search(r.Context(), emb, filter, k)
	if err != nil {
		slog.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "k": k, "results": results})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.config.MaxBodyBytes)

	// Messages are answered in order on the reading goroutine; the conn
	// allows only one concurrent writer.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "invalid message"})
			continue
		}
		s.sendMessage(conn, s.handleMessage(msg))
	}
}

func (s *Server) handleMessage(msg Message) Message {
	switch msg.Type {
	case "classify":
		if strings.TrimSpace(msg.Content) == "" {
			return Message{Type: "error", Content: "content is required"}
		}
		return Message{Type: "result", Data: s.classify(classifyRequest{FileName: msg.FileName, Text: msg.Content})}
	case "anonymize":
		return Message{Type: "result", Content: s.pipeline.Anonymize(msg.Content)}
	default:
		return Message{Type: "error", Content: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		slog.Warn("error sending message", "error", err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
