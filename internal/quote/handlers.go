package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler exposes the quoting entry points. Both endpoints delegate to the
// same engine and return the same response shape; the per-item endpoint is
// kept for callers that predate line-based requests.
type Handler struct {
	Engine *pricing.Engine
	Log    zerolog.Logger
}

type successResponse struct {
	OK     bool                 `json:"ok"`
	Meta   pricing.Meta         `json:"meta"`
	Lines  []pricing.PricedLine `json:"lines"`
	Totals pricing.Totals       `json:"totals"`
}

type failureResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type itemRequest struct {
	PromotionCode string            `json:"promotion_code"`
	ProductID     string            `json:"product_id"`
	Qty           int               `json:"qty"`
	PriceKey      string            `json:"price_key"`
	Options       map[string]string `json:"options,omitempty"`
}

// Quote prices a full line-based request.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSON(w, http.StatusInternalServerError, failureResponse{Error: "quote engine not configured"})
		return
	}
	var req pricing.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSON(w, http.StatusBadRequest, failureResponse{Error: "invalid payload"})
		return
	}
	h.respond(w, r, req)
}

// QuoteItem prices a single product/size/quantity triple. The item is
// wrapped into a one-line request so both endpoints share every pricing
// rule and the full response contract.
func (h *Handler) QuoteItem(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSON(w, http.StatusInternalServerError, failureResponse{Error: "quote engine not configured"})
		return
	}
	var item itemRequest
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		common.JSON(w, http.StatusBadRequest, failureResponse{Error: "invalid payload"})
		return
	}
	req := pricing.Request{
		PromotionCode: item.PromotionCode,
		Lines: []pricing.Line{{
			LineID:    "item-1",
			ProductID: item.ProductID,
			Qty:       item.Qty,
			PriceKey:  item.PriceKey,
			Options:   item.Options,
		}},
	}
	h.respond(w, r, req)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, req pricing.Request) {
	start := time.Now()
	result, err := h.Engine.Quote(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		outcome := "error"
		switch {
		case errors.Is(err, pricing.ErrNoLines),
			errors.Is(err, pricing.ErrInvalidLine),
			errors.Is(err, pricing.ErrInvalidPromotion):
			status = http.StatusBadRequest
			outcome = "invalid"
		default:
			h.Log.Error().Err(err).Msg("quote failed")
			observeQuote(outcome, start)
			common.JSON(w, status, failureResponse{Error: "internal error"})
			return
		}
		observeQuote(outcome, start)
		common.JSON(w, status, failureResponse{Error: err.Error()})
		return
	}
	observeQuote("ok", start)
	if obs.MissingPriceTotal != nil && result.Meta.MissingPriceCount > 0 {
		obs.MissingPriceTotal.Add(float64(result.Meta.MissingPriceCount))
	}
	if obs.PromotionAppliedTotal != nil && result.Meta.PromoType != nil {
		outcome := "no_effect"
		if result.Totals.DiscountAmount > 0 || result.Meta.FreeUpsizeApplies {
			outcome = "applied"
		}
		obs.PromotionAppliedTotal.WithLabelValues(*result.Meta.PromoType, outcome).Inc()
	}
	common.JSON(w, http.StatusOK, successResponse{
		OK:     true,
		Meta:   result.Meta,
		Lines:  result.Lines,
		Totals: result.Totals,
	})
}

func observeQuote(outcome string, start time.Time) {
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(outcome).Inc()
	}
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.WithLabelValues(outcome).Observe(float64(time.Since(start).Milliseconds()))
	}
}
