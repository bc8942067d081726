package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bako-Labs/bako-safe-api/engine"
	"github.com/Bako-Labs/bako-safe-api/notification"
	"github.com/Bako-Labs/bako-safe-api/realtime"
	"github.com/Bako-Labs/bako-safe-api/repository"
)

// WebServer handles HTTP and websocket requests.
type WebServer struct {
	engine        *engine.Engine
	repository    *repository.Repository
	notifications *notification.Service
	hub           *realtime.Hub
	httpAddr      string
	server        *http.Server
	logger        *logrus.Logger
	startTime     time.Time
}

// NewWebServer wires the routes and returns a server ready to Start.
func NewWebServer(eng *engine.Engine, repo *repository.Repository, notifications *notification.Service, hub *realtime.Hub, httpPort string, logger *logrus.Logger) *WebServer {
	mux := http.NewServeMux()

	ws := &WebServer{
		engine:        eng,
		repository:    repo,
		notifications: notifications,
		hub:           hub,
		httpAddr:      ":" + httpPort,
		server: &http.Server{
			Addr:    ":" + httpPort,
			Handler: mux,
		},
		logger:    logger,
		startTime: time.Now(),
	}

	mux.HandleFunc("/", ws.handleRoot)
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/transaction", ws.handleTransactionCollection)
	mux.HandleFunc("/transaction/", ws.handleTransactionAPI)
	mux.HandleFunc("/vault", ws.handleVaultCollection)
	mux.HandleFunc("/vault/", ws.handleVaultAPI)
	mux.HandleFunc("/user", ws.handleUserCollection)
	mux.HandleFunc("/notifications", ws.handleNotifications)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		realtime.ServeWS(hub, w, r)
	})

	return ws
}

// Start serves in the background until Shutdown.
func (ws *WebServer) Start() {
	ws.logger.WithField("addr", ws.httpAddr).Info("Starting web server")
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.WithError(err).Error("Web server error")
		}
	}()
}

// Shutdown gracefully shuts down the web server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// JSONError writes a JSON error body with the given status code.
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	errorResponse := struct {
		Error string `json:"error"`
	}{
		Error: message,
	}
	jsonBytes, err := json.Marshal(errorResponse)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonBytes)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(body)
}

// engineError maps a classified engine error to its HTTP answer.
func (ws *WebServer) engineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch engine.KindOf(err) {
	case engine.KindNotFound:
		status = http.StatusNotFound
	case engine.KindInvalidState:
		status = http.StatusBadRequest
	case engine.KindNetworkFailure:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		ws.logger.WithError(err).Error("Request failed")
	}
	JSONError(w, err.Error(), status)
}
