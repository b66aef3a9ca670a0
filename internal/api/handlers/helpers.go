package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Машиночитаемые коды ошибок внешнего контракта
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidDate      = "invalid_date"
	CodeInvalidCounts    = "invalid_counts"
	CodeThreshold        = "threshold"
	CodeOrderNotFound    = "order_not_found"
	CodeUnknownRegion    = "unknown_region"
	CodeTeamInvalid      = "team_invalid"
	CodeNoSequenceToday  = "no_sequence_today_in_region"
	CodeDayNotBookable   = "day_not_bookable"
	CodeNoAvailability   = "no_availability"
	CodeInvalidSignature = "invalid_signature"
	CodeInternalError    = "internal_error"
)

// ErrorResponse модель ответа с ошибкой
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody тело ошибки: машиночитаемый код и сообщение
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeJSON декодирует JSON тело запроса
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// RespondJSON отправляет JSON ответ с указанным статусом
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError отправляет структурированную ошибку
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// RespondBadRequest отправляет 400 с кодом и сообщением
func RespondBadRequest(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusBadRequest, code, message)
}

// RespondUnauthorized отправляет 401
func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnauthorized, CodeInvalidSignature, message)
}

// RespondNotFound отправляет 404
func RespondNotFound(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusNotFound, code, message)
}

// RespondInternalError отправляет 500
func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, CodeInternalError, "внутренняя ошибка сервиса")
}
