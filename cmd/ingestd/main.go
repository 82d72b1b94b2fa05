// Command ingestd runs the ingest edge proxy: the public-facing endpoint
// line-protocol writers talk to, which forwards every request on to the
// storage engine after rate limiting and request-ID assignment.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"stratadb/config"
	"stratadb/httpapi"
	"stratadb/logging"
	"stratadb/ratelimit"
)

func main() {
	_ = godotenv.Load()
	log := logging.New("ingestd")
	defer log.Sync()

	cfg := config.Get()

	storageAddr := os.Getenv("STRATADB_STORAGE_ADDR")
	if storageAddr == "" {
		storageAddr = "http://localhost:8087"
	}

	proxy, err := httpapi.NewEdgeProxy(storageAddr, log)
	if err != nil {
		log.Fatalw("failed to build proxy to storage engine", "error", err, "storage_addr", storageAddr)
	}

	limiter := ratelimit.NewLimiter(
		int(cfg.RateLimit.Capacity),
		int(cfg.RateLimit.RefillAmount),
		time.Duration(cfg.RateLimit.RefillInterval)*time.Second,
	)

	var handler http.Handler = proxy
	handler = ratelimit.Middleware(limiter)(handler)
	handler = httpapi.WithRequestID(handler)
	handler = handlers.CombinedLoggingHandler(os.Stdout, handler)

	port := os.Getenv("STRATADB_INGEST_PORT")
	if port == "" {
		port = "8086"
	}

	addr := fmt.Sprintf(":%s", port)
	log.Infow("ingest edge listening", "addr", addr, "storage_addr", storageAddr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalw("ingest edge exited", "error", err)
	}
}
