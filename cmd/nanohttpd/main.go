package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Brownie44l1/nanohttpd/internal/cookie"
	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/request"
	"github.com/Brownie44l1/nanohttpd/internal/response"
	"github.com/Brownie44l1/nanohttpd/internal/router"
	"github.com/Brownie44l1/nanohttpd/internal/server"
)

func main() {
	cfg := server.DefaultConfig()

	flag.StringVar(&cfg.Hostname, "host", "", "address to bind (empty for all interfaces)")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flag.DurationVar(&cfg.ReadTimeout, "timeout", cfg.ReadTimeout, "per-read socket timeout")
	flag.StringVar(&cfg.TempDir, "tmp", cfg.TempDir, "directory for spooled bodies and uploads")
	dir := flag.String("dir", ".", "directory to serve")
	certFile := flag.String("cert", "", "TLS certificate (PEM)")
	keyFile := flag.String("key", "", "TLS private key (PEM)")
	rate := flag.Int("rate", 0, "requests per minute per client, 0 disables limiting")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	log := logger.NewConsole(logger.ParseLevel(*level))
	cfg.Logger = log

	root, err := filepath.Abs(*dir)
	if err != nil {
		log.Error("invalid root directory", logger.F("dir", *dir), logger.F("error", err))
		os.Exit(1)
	}

	r := router.New()
	r.GET("/health", handleHealth)
	r.GET("/visits", handleVisits)
	r.POST("/upload", handleUpload)
	r.PUT("/upload/*name", handleUpload)

	srv := server.New(cfg, newFileServer(root, log))
	srv.AddInterceptor(r)

	srv.Use(server.RequestIDMiddleware())
	srv.Use(server.LoggingMiddleware(log))
	srv.Use(server.MetricsMiddleware(srv.Metrics()))
	if *rate > 0 {
		srv.Use(server.RateLimitMiddleware(server.NewRateLimiter(*rate, time.Minute), srv.Metrics()))
	}

	if *certFile != "" || *keyFile != "" {
		tlsCfg, err := server.MakeTLSConfig(*certFile, *keyFile)
		if err != nil {
			log.Error("tls setup failed", logger.F("error", err))
			os.Exit(1)
		}
		srv.MakeSecure(tlsCfg)
	}

	if err := srv.Start(); err != nil {
		log.Error("server start failed", logger.F("error", err))
		os.Exit(1)
	}
	log.Info("serving files", logger.F("root", root), logger.F("port", srv.ListeningPort()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", logger.F("error", err))
		os.Exit(1)
	}

	stats := srv.Stats()
	log.Info("final stats",
		logger.F("connections", stats.ConnectionsTotal),
		logger.F("requests", stats.RequestsTotal),
		logger.F("errors_4xx", stats.Errors4xx),
		logger.F("errors_5xx", stats.Errors5xx),
		logger.F("rate_limited", stats.RateLimited),
		logger.F("avg_latency", stats.AverageLatency.String()),
	)
}

func handleHealth(sess *request.Session, _ map[string]string) *response.Response {
	body := fmt.Sprintf(`{"status":"healthy","request_id":%q,"timestamp":%q}`,
		sess.RequestID(), time.Now().UTC().Format(time.RFC3339))
	return response.NewTextResponse(response.StatusOK, response.MimeJSON, body)
}

func handleVisits(sess *request.Session, _ map[string]string) *response.Response {
	visits := 0
	if v, ok := sess.Cookies().Read("visits"); ok {
		visits, _ = strconv.Atoi(v)
	}
	visits++
	sess.Cookies().Set(cookie.New("visits", strconv.Itoa(visits)))
	return response.NewPlainTextResponse(response.StatusOK, "visits: "+strconv.Itoa(visits))
}

// handleUpload reports what ParseBody extracted from the request.
func handleUpload(sess *request.Session, _ map[string]string) *response.Response {
	files, err := sess.ParseBody()
	if err != nil {
		return request.ErrorResponse(err)
	}

	var b strings.Builder
	writeSorted(&b, "param", sess.Parameters())
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		size := int64(len(files[name]))
		if name != request.PostDataKey {
			size = -1
			if st, err := os.Stat(files[name]); err == nil {
				size = st.Size()
			}
		}
		fmt.Fprintf(&b, "file %s: %d bytes\n", name, size)
	}
	return response.NewPlainTextResponse(response.StatusOK, b.String())
}

func writeSorted(b *strings.Builder, kind string, m map[string][]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s %s=%s\n", kind, k, strings.Join(m[k], ","))
	}
}
