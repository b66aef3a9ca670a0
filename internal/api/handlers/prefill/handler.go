package prefill

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/api/handlers"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
	prefillUC "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/prefill"
)

const (
	msgInvalidRequest   = "некорректные параметры запроса"
	msgInvalidSignature = "подпись невалидна или просрочена"
	msgOrderNotFound    = "заказ не найден"
)

type Handler struct {
	useCase PrefillUseCase
	logger  Logger
}

func NewHandler(useCase PrefillUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// prefillBody тело POST варианта запроса
type prefillBody struct {
	OrderID int64  `json:"order_id"`
	Sig     string `json:"sig"`
	Region  string `json:"region"`
	SGM     *int   `json:"sgm"`
	SGE     *int   `json:"sge"`
}

// Handle GET|POST /api/v1/prefill
// GET несет параметры в query string (ссылка из письма),
// POST - в JSON теле (вызов из UI)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		h.logger.Warn("%s /prefill - Invalid request: %v", r.Method, err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidRequest, msgInvalidRequest)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, prefillUC.ErrInvalidInput):
			h.logger.Warn("%s /prefill - Invalid input: order_id=%d: %v", r.Method, req.OrderID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidRequest, msgInvalidRequest)

		case errors.Is(err, prefillUC.ErrInvalidSignature):
			h.logger.Warn("%s /prefill - Invalid signature: order_id=%d", r.Method, req.OrderID)
			handlers.RespondUnauthorized(w, msgInvalidSignature)

		case errors.Is(err, prefillUC.ErrOrderNotFound):
			h.logger.Warn("%s /prefill - Order not found: order_id=%d", r.Method, req.OrderID)
			handlers.RespondNotFound(w, handlers.CodeOrderNotFound, msgOrderNotFound)

		default:
			h.logger.Error("%s /prefill - Failed: order_id=%d, error=%v", r.Method, req.OrderID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("%s /prefill - OK: order_id=%d", r.Method, result.OrderID)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}

func (h *Handler) parseRequest(r *http.Request) (*prefillUC.Request, error) {
	if r.Method == http.MethodPost {
		var body prefillBody
		if err := handlers.DecodeJSON(r, &body); err != nil {
			return nil, err
		}
		return &prefillUC.Request{
			OrderID:   body.OrderID,
			Signature: body.Sig,
			Params: signature.Params{
				Region: body.Region,
				SGM:    countOrMissing(body.SGM),
				SGE:    countOrMissing(body.SGE),
			},
		}, nil
	}

	query := r.URL.Query()

	orderID, err := strconv.ParseInt(query.Get("order_id"), 10, 64)
	if err != nil {
		return nil, err
	}

	return &prefillUC.Request{
		OrderID:   orderID,
		Signature: query.Get("sig"),
		Params: signature.Params{
			Region: query.Get("region"),
			SGM:    queryCount(query.Get("sgm"), query.Get("m")),
			SGE:    queryCount(query.Get("sge"), query.Get("e")),
		},
	}, nil
}

// countOrMissing возвращает значение или -1 ("не передано")
func countOrMissing(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}

// queryCount разбирает счетчик из query параметров, -1 если не передан
func queryCount(candidates ...string) int {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if v, err := strconv.Atoi(c); err == nil {
			return v
		}
	}
	return -1
}
