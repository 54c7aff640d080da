package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

type statusBody struct {
	Success bool `json:"success"`
	Message any  `json:"message,omitempty"`
}

func writeOK(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, statusBody{Success: true, Message: message})
}

// writeFail answers with the {success:false, message} shape clients expect.
// message is a string or a list of strings.
func writeFail(w http.ResponseWriter, code int, message any) {
	writeJSON(w, code, statusBody{Success: false, Message: message})
}
