package api

import (
	"encoding/json"
	"net/http"

	"github.com/oxtoacart/bpool"
)

var buffers = bpool.NewBufferPool(64)

// renderJSON encodes v through a pooled buffer so a marshal failure
// never leaves a half-written body.
func renderJSON(w http.ResponseWriter, status int, v any) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorBody struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, status int, msg string) {
	renderJSON(w, status, errorBody{Error: msg})
}
