package billing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	quote, err := h.service.Quote(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) ResolveItem(w http.ResponseWriter, r *http.Request) {
	var req ResolveItemRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.ResolveItem(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) ShowTax(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	tax, err := h.service.Tax(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !tax.Found {
		httpx.RespondError(w, fmt.Errorf("%w: tax %s", httpx.ErrNotFound, ref))
		return
	}
	httpx.JSON(w, http.StatusOK, tax.Value)
}

func (h *Handler) ShowCurrency(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	cur, err := h.service.Currency(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !cur.Found {
		httpx.RespondError(w, fmt.Errorf("%w: currency %s", httpx.ErrNotFound, ref))
		return
	}
	httpx.JSON(w, http.StatusOK, cur.Value)
}

func (h *Handler) ShowProduct(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	product, err := h.service.Product(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !product.Found {
		httpx.RespondError(w, fmt.Errorf("%w: product %s", httpx.ErrNotFound, ref))
		return
	}
	httpx.JSON(w, http.StatusOK, product.Value)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs pricing.ValidationErrors
	var mismatch *pricing.CurrencyMismatchError
	switch {
	case errors.As(err, &verrs):
		httpx.ValidationProblem(w, verrs.Fields())
	case errors.As(err, &mismatch):
		httpx.JSON(w, http.StatusConflict, httpx.ProblemDetail{
			Title:  "Currency Mismatch",
			Status: http.StatusConflict,
			Detail: mismatch.Error(),
			Errors: map[string]string{
				"bill_currency": mismatch.BillCurrency,
				"item_currency": mismatch.ItemCurrency,
			},
		})
	case errors.Is(err, pricing.ErrProductNotFound), errors.Is(err, pricing.ErrCurrencyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "billing request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
