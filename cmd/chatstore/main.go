package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/comigor/chatstore/internal/config"
	"github.com/comigor/chatstore/internal/llm"
	"github.com/comigor/chatstore/internal/logger"
	"github.com/comigor/chatstore/internal/persist"
	"github.com/comigor/chatstore/internal/store"
	"github.com/comigor/chatstore/internal/telemetry"
)

type sendRequest struct {
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
}

type createRequest struct {
	Title string `json:"title,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		return
	}
	logger.SetLevel(cfg.Log.Level)
	logger.SetFile(cfg.Log.File)

	var opts []store.Option
	if cfg.Telemetry.Enabled {
		tracer, meter, shutdown, err := telemetry.Init(context.Background(), cfg.Telemetry.Dir)
		if err != nil {
			logger.L.Warn("telemetry init failed; continuing without it", "error", err)
		} else {
			defer shutdown()
			opts = append(opts, store.WithTracer(tracer), store.WithMeter(meter))
		}
	}

	persister, err := persist.New(cfg.Storage)
	if err != nil {
		logger.L.Warn("unknown storage driver; falling back to memory",
			"driver", cfg.Storage.Driver, "error", err)
		persister = persist.NewMemoryStore()
	}

	st := store.New(*cfg, llm.NewClient(cfg.LLM), persister, opts...)
	defer func() {
		if err := st.Close(); err != nil {
			logger.L.Warn("store close", "error", err)
		}
	}()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Sessions())
	})

	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, st.CreateSession(req.Title))
	})

	mux.HandleFunc("POST /messages", func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		msg := st.SendMessageTo(r.Context(), req.SessionID, req.Content)
		if msg == nil {
			// Empty input, or the request was superseded by a newer one.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	})

	mux.HandleFunc("POST /sessions/{id}/select", func(w http.ResponseWriter, r *http.Request) {
		if !st.SelectSession(r.PathValue("id")) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !st.DeleteSession(r.PathValue("id")) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /sessions/{id}/clear", func(w http.ResponseWriter, r *http.Request) {
		if !st.ClearSession(r.PathValue("id")) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /sessions/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		format := store.ExportFormat(r.URL.Query().Get("format"))
		if format == "" {
			format = store.FormatJSON
		}
		out := st.ExportSession(r.PathValue("id"), format)
		if out == "" {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if format == store.FormatJSON {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.Write([]byte(out))
	})

	mux.HandleFunc("POST /sessions/import", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		sess, err := st.ImportSession(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	})

	mux.HandleFunc("GET /sessions/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		writeJSON(w, http.StatusOK, map[string]any{
			"total_tokens": st.TotalTokensUsed(id),
			"cost_usd":     st.SessionCost(id),
		})
	})

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.L.Error("failed to start server", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("response encode failed", "error", err)
	}
}
