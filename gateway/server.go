// Package gateway serves a catalog of named statements over HTTP. Each request
// is enqueued on the worker pool and the handler waits for its completion
// message before responding.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tomyedwab/asyncsql/data"
	"github.com/tomyedwab/asyncsql/sqlqueue"
)

const DefaultRequestTimeout = 30 * time.Second

// Config holds configuration options for a Server.
type Config struct {
	Catalog        *Catalog
	Connection     *sqlqueue.Connection
	SecretKey      []byte        // Optional, authentication is disabled when nil
	RequestTimeout time.Duration // Optional, defaults to DefaultRequestTimeout
	Logger         *zap.Logger   // Optional, defaults to a no-op logger
}

type Server struct {
	catalog *Catalog
	conn    *sqlqueue.Connection
	key     []byte
	timeout time.Duration
	logger  *zap.Logger
}

func NewServer(config Config) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Server{
		catalog: config.Catalog,
		conn:    config.Connection,
		key:     config.SecretKey,
		timeout: config.RequestTimeout,
		logger:  config.Logger.With(zap.String("component", "Gateway")),
	}
}

// Handler returns the HTTP handler serving the gateway API.
func (s *Server) Handler() http.Handler {
	logRequests := LogRequests(s.logger)
	login := LoginRequired(s.key)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", Chain(s.handleHealth, logRequests))
	mux.HandleFunc("GET /v1/statements", Chain(s.handleList, login, logRequests))
	mux.HandleFunc("POST /v1/statements/{name}", Chain(s.handleExecute, login, logRequests))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.conn.State()
	status := http.StatusOK
	if state != sqlqueue.StateRunning {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		State:   state.String(),
		Workers: s.conn.Workers(),
		Pending: s.conn.Pending(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	infos := []StatementInfo{}
	for _, e := range s.catalog.List() {
		if claims != nil && !claims.Allows(e.Config.Name) {
			continue
		}
		infos = append(infos, StatementInfo{
			Name:    e.Config.Name,
			SQL:     e.Config.SQL,
			Params:  e.Config.Params,
			Results: e.Config.Results,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	entry, ok := s.catalog.Get(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown statement %s", name), http.StatusNotFound)
		return
	}
	if claims := ClaimsFromContext(r.Context()); claims != nil && !claims.Allows(name) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req ExecuteRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	params := entry.Params()
	if err := params.Assign(req.Params); err != nil {
		http.Error(w, fmt.Sprintf("Invalid parameters: %v", err), http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()
	results := entry.Results()
	var container data.Container
	if results != nil {
		container = results
	}
	var insertID, rows uint64
	waiter := NewWaiter()
	entry.Statement.Enqueue(params, container, &insertID, &rows, waiter.Callback())

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	msg, err := waiter.Wait(ctx)
	if err != nil {
		// The buffers still belong to the worker and must not be read.
		s.logger.Warn("Gave up waiting for statement", zap.String("stmt", name),
			zap.String("request_id", requestID), zap.Error(err))
		http.Error(w, "Timed out waiting for statement", http.StatusGatewayTimeout)
		return
	}

	resp := ExecuteResponse{RequestID: requestID}
	if msg.Failed() {
		resp.Error = string(msg.Data)
		if ee := sqlqueue.AsExecutionError(msg.Err); ee != nil {
			resp.Code = ee.Code
		}
		s.logger.Debug("Statement failed", zap.String("stmt", name),
			zap.String("request_id", requestID), zap.String("error", resp.Error))
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	if results != nil {
		resp.Columns = entry.Columns()
		resp.Rows = make([][]interface{}, 0, results.Len())
		for row := range results.All() {
			resp.Rows = append(resp.Rows, encodeRow(row))
		}
		resp.RowsAffected = rows
	} else {
		resp.LastInsertID = insertID
		resp.RowsAffected = rows
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, resp interface{}) {
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
