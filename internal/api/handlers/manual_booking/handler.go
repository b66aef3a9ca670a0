package manual_booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/api/handlers"
	manualBooking "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/manual_booking"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidRequest     = "некорректные параметры бронирования"
	msgInvalidDate        = "дата бронирования отсутствует или в прошлом"
	msgInvalidCounts      = "некорректные объемы работ"
	msgThreshold          = "объем монтажа выше порога, требуется диспетчер"
	msgOrderNotFound      = "заказ не найден"
	msgUnknownRegion      = "регион не настроен для планирования"
	msgTeamInvalid        = "команда не входит в ростер региона"
	msgNoSequenceToday    = "нет свободной последовательности слотов в регионе на эту дату"
)

type Handler struct {
	useCase  ManualBookingUseCase
	timezone *time.Location
	logger   Logger
}

func NewHandler(useCase ManualBookingUseCase, timezone *time.Location, logger Logger) *Handler {
	return &Handler{
		useCase:  useCase,
		timezone: timezone,
		logger:   logger,
	}
}

// Handle POST /api/v1/manual-booking
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req ManualBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /manual-booking - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidRequest, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(h.timezone)
	if err != nil {
		h.logger.Warn("POST /manual-booking - Invalid date: order_id=%d: %v", req.OrderID, err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidDate, msgInvalidDate)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, manualBooking.ErrInvalidRequest):
			h.logger.Warn("POST /manual-booking - Invalid request: order_id=%d: %v", req.OrderID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidRequest, msgInvalidRequest)

		case errors.Is(err, manualBooking.ErrInvalidDate):
			h.logger.Warn("POST /manual-booking - Invalid date: order_id=%d: %v", req.OrderID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidDate, msgInvalidDate)

		case errors.Is(err, manualBooking.ErrInvalidCounts):
			h.logger.Warn("POST /manual-booking - Invalid counts: order_id=%d: %v", req.OrderID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidCounts, msgInvalidCounts)

		case errors.Is(err, manualBooking.ErrThreshold):
			h.logger.Warn("POST /manual-booking - Threshold exceeded: order_id=%d", req.OrderID)
			handlers.RespondBadRequest(w, handlers.CodeThreshold, msgThreshold)

		case errors.Is(err, manualBooking.ErrOrderNotFound):
			h.logger.Warn("POST /manual-booking - Order not found: order_id=%d", req.OrderID)
			handlers.RespondNotFound(w, handlers.CodeOrderNotFound, msgOrderNotFound)

		case errors.Is(err, manualBooking.ErrUnknownRegion):
			h.logger.Warn("POST /manual-booking - Unknown region: order_id=%d, region=%s", req.OrderID, req.Region)
			handlers.RespondBadRequest(w, handlers.CodeUnknownRegion, msgUnknownRegion)

		case errors.Is(err, manualBooking.ErrTeamInvalid):
			h.logger.Warn("POST /manual-booking - Team invalid: order_id=%d, team=%s", req.OrderID, req.Team)
			handlers.RespondBadRequest(w, handlers.CodeTeamInvalid, msgTeamInvalid)

		case errors.Is(err, manualBooking.ErrNoSequenceToday):
			h.logger.Warn("POST /manual-booking - No sequence today: order_id=%d, date=%s", req.OrderID, req.Date)
			handlers.RespondError(w, http.StatusConflict, handlers.CodeNoSequenceToday, msgNoSequenceToday)

		default:
			h.logger.Error("POST /manual-booking - Failed: order_id=%d, error=%v", req.OrderID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /manual-booking - Booked: order_id=%d team=%s date=%s slots=%v",
		req.OrderID, result.Team, result.Date, result.Slots)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
