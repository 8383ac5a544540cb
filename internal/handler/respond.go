package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// respondJSON writes a JSON response with the given status
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError writes an error as {"detail": "..."}
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// queryInt reads an integer query parameter, falling back to def
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// decodeJSON parses the request body into dest, answering a uniform 400 on
// malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	err := json.NewDecoder(r.Body).Decode(dest)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
