package offline

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

const maxControlBody = 64 << 10

// ControlRoutes exposes the worker's event entry points for local tooling.
func ControlRoutes(w *Worker, outbox *Outbox) *mux.Router {
	r := mux.NewRouter()
	s := r.PathPrefix("/_sw").Subrouter()

	s.HandleFunc("/status", func(rw http.ResponseWriter, _ *http.Request) {
		st, err := w.Status()
		if err != nil {
			writeControlError(rw, http.StatusInternalServerError, err)
			return
		}
		writeControlJSON(rw, http.StatusOK, st)
	}).Methods(http.MethodGet)

	s.HandleFunc("/push", func(rw http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, maxControlBody))
		if err != nil {
			writeControlError(rw, http.StatusBadRequest, err)
			return
		}
		if err := w.HandlePush(req.Context(), body); err != nil {
			writeControlError(rw, http.StatusBadRequest, err)
			return
		}
		writeControlJSON(rw, http.StatusAccepted, map[string]bool{"ok": true})
	}).Methods(http.MethodPost)

	s.HandleFunc("/notificationclick", func(rw http.ResponseWriter, req *http.Request) {
		var in struct {
			Tag    string `json:"tag"`
			Action string `json:"action"`
		}
		if err := json.NewDecoder(io.LimitReader(req.Body, maxControlBody)).Decode(&in); err != nil {
			writeControlError(rw, http.StatusBadRequest, err)
			return
		}
		if err := w.HandleNotificationClick(req.Context(), in.Tag, in.Action); err != nil {
			writeControlError(rw, http.StatusInternalServerError, err)
			return
		}
		writeControlJSON(rw, http.StatusOK, map[string]bool{"ok": true})
	}).Methods(http.MethodPost)

	s.HandleFunc("/sync", func(rw http.ResponseWriter, req *http.Request) {
		tag := req.URL.Query().Get("tag")
		if err := w.HandleSync(req.Context(), tag); err != nil {
			writeControlError(rw, http.StatusInternalServerError, err)
			return
		}
		writeControlJSON(rw, http.StatusOK, map[string]any{"ok": true, "tag": tag})
	}).Methods(http.MethodPost)

	if outbox != nil {
		s.HandleFunc("/notifications", func(rw http.ResponseWriter, _ *http.Request) {
			writeControlJSON(rw, http.StatusOK, outbox.Items())
		}).Methods(http.MethodGet)
	}
	return r
}

func writeControlJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logger.Warn("control_write_failed", "error", err)
	}
}

func writeControlError(rw http.ResponseWriter, status int, err error) {
	writeControlJSON(rw, status, map[string]string{"error": err.Error()})
}
