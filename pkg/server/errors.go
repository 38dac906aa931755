package server

import (
	"encoding/json"
	"net/http"
)

const generalCode = "Neo.DatabaseError.General.UnknownError"

// errorKindStatus maps each cypher.ErrorKind's wire code to its HTTP status,
// per spec.md §7's error-handling table.
var errorKindStatus = map[string]int{
	"Neo.ClientError.Statement.SyntaxError":      http.StatusBadRequest,
	"Neo.ClientError.Statement.SemanticError":    http.StatusBadRequest,
	"Neo.ClientError.Statement.ParameterMissing": http.StatusBadRequest,
	"Neo.ClientError.Statement.NotImplemented":   http.StatusBadRequest,
	"Neo.DatabaseError.General.UnknownError":     http.StatusInternalServerError,
}

// statusForCode looks up the HTTP status for a wire code, defaulting to 500
// for anything this table doesn't recognize (spec.md §7's "General" catch-all).
func statusForCode(code string) int {
	if status, ok := errorKindStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: message, Code: code, Message: message})
}
