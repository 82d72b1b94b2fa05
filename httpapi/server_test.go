package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"stratadb/lsmtree"
)

func newTestTree(t *testing.T) *lsmtree.Tree {
	t.Helper()
	tree, err := lsmtree.Open(lsmtree.Options{
		Dir:               t.TempDir(),
		MaxLevels:         4,
		MaxTablesPerLevel: 2,
		MemtableCapacity:  1000,
		CacheCapacity:     16,
		Logger:            zap.NewNop().Sugar(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tree
}

func TestHandleIngestAndQuery(t *testing.T) {
	tree := newTestTree(t)
	router := NewStorageServer(tree, zap.NewNop().Sugar())

	ingestReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("cpu,host=a value=1 1000000000"))
	ingestRec := httptest.NewRecorder()
	router.ServeHTTP(ingestRec, ingestReq)
	if ingestRec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", ingestRec.Code, ingestRec.Body.String())
	}

	queryReq := httptest.NewRequest(http.MethodGet, "/?query=SELECT+*+FROM+cpu", nil)
	queryRec := httptest.NewRecorder()
	router.ServeHTTP(queryRec, queryReq)
	if queryRec.Code != http.StatusOK {
		t.Fatalf("query status = %d, body = %s", queryRec.Code, queryRec.Body.String())
	}
	if !strings.Contains(queryRec.Body.String(), `"host":"a"`) {
		t.Fatalf("query response missing expected tag: %s", queryRec.Body.String())
	}
}

// TestHandleIngestMalformedLine covers §9's "ingest drops malformed lines
// silently" rule: the original source's do_POST always responds 200
// regardless of save_data's outcome, so a malformed line must be logged and
// dropped rather than surfaced as a client error.
func TestHandleIngestMalformedLine(t *testing.T) {
	tree := newTestTree(t)
	router := NewStorageServer(tree, zap.NewNop().Sugar())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("cpu"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (malformed lines are dropped, not rejected)", rec.Code)
	}

	queryReq := httptest.NewRequest(http.MethodGet, "/?query=SELECT+*+FROM+cpu", nil)
	queryRec := httptest.NewRecorder()
	router.ServeHTTP(queryRec, queryReq)
	if queryRec.Body.String() != "[]\n" {
		t.Fatalf("expected nothing to have been persisted, got %s", queryRec.Body.String())
	}
}

func TestHandleQueryMissingParam(t *testing.T) {
	tree := newTestTree(t)
	router := NewStorageServer(tree, zap.NewNop().Sugar())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQueryMalformed(t *testing.T) {
	tree := newTestTree(t)
	router := NewStorageServer(tree, zap.NewNop().Sugar())

	req := httptest.NewRequest(http.MethodGet, "/?query=NOT+A+QUERY", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
