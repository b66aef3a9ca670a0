package webhook

import (
	"errors"
	"net/http"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/api/handlers"
	handleWebhook "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/handle_webhook"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidStart       = "некорректное время начала бронирования"
	msgInvalidSignature   = "подпись невалидна или просрочена"
	msgOrderNotFound      = "заказ не найден"
	msgNoServiceRequired  = "по заказу нет работ на выезде"
	msgUnknownRegion      = "регион не настроен для автоматического планирования"
	msgManualPlanning     = "объем монтажа требует ручного планирования"
	msgDayNotBookable     = "запрошенный день недоступен для бронирования в регионе"
	msgNoAvailability     = "нет свободной команды или последовательности слотов, выберите другую дату"
)

type Handler struct {
	useCase HandleWebhookUseCase
	logger  Logger
}

func NewHandler(useCase HandleWebhookUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/webhook
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /webhook - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidRequest, msgInvalidRequestBody)
		return
	}

	useCaseReq := req.ToUseCaseRequest()

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, handleWebhook.ErrInvalidInput):
			h.logger.Warn("POST /webhook - Invalid input: order_id=%d: %v", useCaseReq.OrderID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidRequest, msgInvalidRequestBody)

		case errors.Is(err, handleWebhook.ErrInvalidStart):
			h.logger.Warn("POST /webhook - Invalid start: order_id=%d: %v", useCaseReq.OrderID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidDate, msgInvalidStart)

		case errors.Is(err, handleWebhook.ErrInvalidSignature):
			h.logger.Warn("POST /webhook - Invalid signature: order_id=%d", useCaseReq.OrderID)
			handlers.RespondUnauthorized(w, msgInvalidSignature)

		case errors.Is(err, handleWebhook.ErrOrderNotFound):
			h.logger.Warn("POST /webhook - Order not found: order_id=%d", useCaseReq.OrderID)
			handlers.RespondNotFound(w, handlers.CodeOrderNotFound, msgOrderNotFound)

		case errors.Is(err, handleWebhook.ErrNoServiceRequired):
			h.logger.Warn("POST /webhook - No service required: order_id=%d", useCaseReq.OrderID)
			handlers.RespondBadRequest(w, handlers.CodeInvalidCounts, msgNoServiceRequired)

		case errors.Is(err, handleWebhook.ErrUnknownRegion):
			h.logger.Warn("POST /webhook - Unknown region: order_id=%d", useCaseReq.OrderID)
			handlers.RespondBadRequest(w, handlers.CodeUnknownRegion, msgUnknownRegion)

		case errors.Is(err, handleWebhook.ErrManualPlanningRequired):
			h.logger.Warn("POST /webhook - Manual planning required: order_id=%d", useCaseReq.OrderID)
			handlers.RespondBadRequest(w, handlers.CodeThreshold, msgManualPlanning)

		case errors.Is(err, handleWebhook.ErrDayNotBookable):
			h.logger.Warn("POST /webhook - Day not bookable: order_id=%d", useCaseReq.OrderID)
			handlers.RespondBadRequest(w, handlers.CodeDayNotBookable, msgDayNotBookable)

		case errors.Is(err, handleWebhook.ErrNoAvailability):
			h.logger.Warn("POST /webhook - No availability: order_id=%d", useCaseReq.OrderID)
			handlers.RespondError(w, http.StatusConflict, handlers.CodeNoAvailability, msgNoAvailability)

		default:
			h.logger.Error("POST /webhook - Failed to process event: order_id=%d, error=%v", useCaseReq.OrderID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /webhook - Processed: event=%s order_id=%d status=%s",
		result.Event, result.OrderID, result.Status)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResult(result))
}
