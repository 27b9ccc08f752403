package response

import (
	"encoding/json"
	"net/http"
)

// Result is the success envelope: {"success": true, "message": "..."}.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
// It sets Content-Type to application/json; charset=utf-8 if not already set.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 {"success": true, "message": msg}.
func OK(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, Result{Success: true, Message: msg})
}

// Created writes a 201 {"success": true, "message": msg}.
func Created(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusCreated, Result{Success: true, Message: msg})
}
