// Command storaged runs the storage engine process: the only binary in this
// module that owns the LSM tree, per §4.7's three-process topology.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"stratadb/config"
	"stratadb/httpapi"
	"stratadb/logging"
	"stratadb/lsmtree"
)

func main() {
	_ = godotenv.Load()
	log := logging.New("storaged")
	defer log.Sync()

	cfg := config.Get()

	tree, err := lsmtree.Open(lsmtree.Options{
		Dir:               cfg.LSM.DataDir,
		MaxLevels:         int(cfg.LSM.MaxLevels),
		MaxTablesPerLevel: int(cfg.LSM.MaxTablesPerLevel),
		MemtableCapacity:  int(cfg.LSM.MemtableCapacity),
		CacheCapacity:     int(cfg.Cache.ReadPathCapacity),
		Logger:            log,
	})
	if err != nil {
		log.Fatalw("failed to open storage engine", "error", err)
	}

	router := httpapi.NewStorageServer(tree, log)

	var handler http.Handler = router
	handler = httpapi.WithRequestID(handler)
	handler = handlers.CombinedLoggingHandler(os.Stdout, handler)

	port := os.Getenv("STRATADB_STORAGE_PORT")
	if port == "" {
		port = "8087"
	}

	addr := fmt.Sprintf(":%s", port)
	log.Infow("storage engine listening", "addr", addr, "data_dir", cfg.LSM.DataDir)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalw("storage engine exited", "error", err)
	}
}
