package httpapi

import (
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// NewEdgeProxy builds a thin reverse proxy to the storage engine, the shape
// both the ingest and query edge binaries run: per §4.7 they hold no state
// of their own and exist only to apply edge-only concerns (rate limiting,
// request IDs, access logs) in front of the single storage process.
func NewEdgeProxy(storageAddr string, log *zap.SugaredLogger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(storageAddr)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorLog = zap.NewStdLog(log.Desugar())
	return proxy, nil
}
