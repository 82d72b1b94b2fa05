// Package httpapi wires the engine's HTTP surface: the storage engine's
// ingest and query endpoints, the edge proxies in front of them, and the
// request correlation ID middleware every binary in this module runs
// through. Access logging and rate limiting are wired in by the cmd/
// binaries from gorilla/handlers and the ratelimit package.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stratadb/lineproto"
	"stratadb/lsmtree"
	"stratadb/queryexec"
	"stratadb/querylang"
)

// StorageServer exposes the LSM tree over HTTP: it is the only process that
// touches the tree directly, per §4.7's three-process topology.
type StorageServer struct {
	tree *lsmtree.Tree
	log  *zap.SugaredLogger
}

// NewStorageServer builds the storage engine's router.
func NewStorageServer(tree *lsmtree.Tree, log *zap.SugaredLogger) *mux.Router {
	s := &StorageServer{tree: tree, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/", s.handleQuery).Methods(http.MethodGet)
	return r
}

// handleIngest parses one line-protocol line per request body and persists
// it, per §6's ingest contract. A malformed line is logged and dropped
// rather than surfaced to the caller: the original source's do_POST always
// responds 200 regardless of save_data's outcome, and §9 calls this out
// explicitly ("ingest drops malformed lines silently, logged not surfaced").
func (s *StorageServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	rec, err := lineproto.Parse(string(body))
	if err != nil {
		s.log.Warnw("dropping malformed ingest line", "error", err, "request_id", requestID(r))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Data received and saved"))
		return
	}

	data, err := rec.Serialize()
	if err != nil {
		http.Error(w, "failed to serialize record", http.StatusInternalServerError)
		return
	}

	if err := s.tree.Put(rec.Key(), data); err != nil {
		s.log.Errorw("failed to persist record", "error", err, "request_id", requestID(r))
		http.Error(w, "failed to persist record", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Data received and saved"))
}

// handleQuery parses and executes the query passed in the "query" query
// string parameter and returns the result as JSON, per §6's query contract.
func (s *StorageServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "missing query parameter", http.StatusBadRequest)
		return
	}

	plan, err := querylang.Parse(query)
	if err != nil {
		s.log.Warnw("malformed query", "error", err, "request_id", requestID(r))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := queryexec.Execute(plan, s.tree.Scan())
	if err != nil {
		s.log.Errorw("query execution failed", "error", err, "request_id", requestID(r))
		http.Error(w, "query execution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result.JSON()); err != nil {
		s.log.Errorw("failed to encode response", "error", err, "request_id", requestID(r))
	}
}

type requestIDKey struct{}

// WithRequestID assigns every request a correlation ID, generated with
// google/uuid, so a single request can be traced across the edge proxy and
// the storage engine's logs.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		next.ServeHTTP(w, r)
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
