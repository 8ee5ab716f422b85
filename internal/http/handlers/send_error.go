package handlers

import (
	"net/http"

	json "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code"`
}

func sendError(w http.ResponseWriter, message string, err error, code int) {
	log.WithFields(log.Fields{
		"error": err,
		"code":  code,
	}).Error(message)

	response := ErrorResponse{
		Message: message,
		Code:    code,
	}
	if err != nil {
		response.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

func sendJSON(w http.ResponseWriter, code int, body any) error {
	w.Header().Set(`Content-Type`, `application/json`)
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(body)
}
