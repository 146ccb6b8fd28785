package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error     string        `json:"error"`
	Available []string      `json:"available,omitempty"`
	Conflicts []conflictDTO `json:"conflicts,omitempty"`
	Position  *positionDTO  `json:"position,omitempty"`
}

type conflictDTO struct {
	Instance int    `json:"instance"`
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

type positionDTO struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
