// Command viewer serves the game archive: a JSON API under /api and HTML
// replay pages.
package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/viewer"
)

func main() {
	listen := flag.String("listen", config.GetEnvOrDefault("LISTEN", ":8081"), "HTTP listen address")
	dataDirs := flag.String("data", config.GetEnvOrDefault("DATA_DIRS", strings.Join(viewer.DefaultRoots(), ",")), "Comma-separated directories holding Parquet archives")
	refresh := flag.Duration("refresh", config.GetEnvDurationOrDefault("REFRESH", 30*time.Second), "Rebuild the archive view at most this often")
	logFormat := flag.String("log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	logger, err := logging.FromFlags(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		os.Stderr.WriteString("viewer: " + err.Error() + "\n")
		os.Exit(2)
	}

	roots := parseDataRoots(*dataDirs)
	srv := viewer.NewServer(roots, *refresh, logger)
	defer srv.Close()

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("viewer listening", "addr", *listen, "roots", roots)
	if err := httpSrv.ListenAndServe(); err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}
}

func parseDataRoots(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
