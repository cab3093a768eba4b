package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response body. Code mirrors the HTTP status
// except for business errors that need a machine-readable marker, e.g.
// the expired-access-token code clients key off to call reissue.
type Envelope struct {
	Code    int         `json:"code"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func WriteJSON(w http.ResponseWriter, statusCode, businessCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	envelope := Envelope{
		Code:    businessCode,
		Status:  http.StatusText(statusCode),
		Message: message,
		Data:    data,
	}

	json.NewEncoder(w).Encode(envelope)
}

func OK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, http.StatusOK, "OK", data)
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, statusCode, message, nil)
}

// BusinessError keeps the HTTP status but overrides the body code with a
// distinct business code.
func BusinessError(w http.ResponseWriter, statusCode, businessCode int, message string) {
	WriteJSON(w, statusCode, businessCode, message, nil)
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

func UnprocessableEntity(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
