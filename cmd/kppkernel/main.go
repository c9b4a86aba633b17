// Command kppkernel runs the KPP simulation kernel as a standalone
// process, exposing Prometheus metrics and a thin WebSocket example
// transport that forwards the publisher's snapshot stream. The transport
// here is an example collaborator, not part of the core kernel.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/arobi/kpp-kernel/internal/kernel"
	"github.com/arobi/kpp-kernel/internal/logx"
)

const (
	exitClean              = 0
	exitConfigurationError = 1
	exitUnrecoverableFault = 2
	exitEmergencyStop      = 3
)

var (
	httpPort   = flag.Int("http-port", 8088, "HTTP API and metrics port")
	logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	wsBufSize  = flag.Int("ws-buffer", 64, "per-websocket-client snapshot buffer size")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	flag.Parse()

	log := logx.New(*logLevel)

	k := kernel.New(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, k.GetStatus())
	})
	mux.HandleFunc("/snapshot/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, k.GetLatestSnapshot())
	})
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, k.GetParameterSchema())
	})
	mux.HandleFunc("/ws/snapshots", func(w http.ResponseWriter, r *http.Request) {
		handleSnapshotStream(log, k, w, r)
	})

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(*httpPort),
		Handler: mux,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("kpp kernel http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	k.Shutdown()

	switch k.FinalMode() {
	case "EMERGENCY":
		os.Exit(exitEmergencyStop)
	case "FAULT":
		os.Exit(exitUnrecoverableFault)
	default:
		os.Exit(exitClean)
	}
}

func handleSnapshotStream(log *logrus.Logger, k *kernel.Kernel, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := k.Subscribe(*wsBufSize)
	defer k.Unsubscribe(sub.ID())

	for s := range sub.Channel() {
		if err := conn.WriteJSON(s); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

