package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/commerce-backoffice/internal/catalog"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
	"github.com/example/commerce-backoffice/internal/stock"
	"github.com/example/commerce-backoffice/internal/tenant"
)

const tenantHeader = "X-Tenant-ID"

type Handlers struct {
	registry *tenant.Registry
}

func NewHandlers(registry *tenant.Registry) *Handlers {
	return &Handlers{registry: registry}
}

func (h *Handlers) components(r *http.Request) (*tenant.Components, error) {
	id := r.Header.Get(tenantHeader)
	if id == "" {
		id = "default"
	}
	return h.registry.Tenant(id)
}

// Catalog handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.CreatedAt = time.Now()

	if err := c.Catalog.AddProduct(&p); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// GenerateVariants expands a product's options and saves the result. Kept
// variants keep their IDs; removed combinations are only reported, never
// deleted.
func (h *Handlers) GenerateVariants(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sku := extractPathParam(r.URL.Path, "/products/")
	sku = strings.TrimSuffix(sku, "/variants/generate")

	p, ok := c.Catalog.Product(sku)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	result, err := catalog.GenerateVariants(p, c.Catalog.VariantsOf(sku))
	if err != nil {
		respondError(w, err)
		return
	}

	for i := range result.Created {
		v := result.Created[i]
		if err := c.Catalog.SaveVariant(&v); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) CreateLocation(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var l catalog.Location
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := c.Catalog.AddLocation(&l); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

// Stock handlers

type adjustmentRequest struct {
	VariantID  string `json:"variant_id"`
	LocationID string `json:"location_id"`
	Delta      int64  `json:"delta"`
	Type       string `json:"type"`
	Reference  string `json:"reference"`
}

// AppendAdjustment is the write path for all inbound collaborators:
// procurement restocks, returns, manual corrections and transfers.
func (h *Handlers) AppendAdjustment(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := c.Ledger.Append(r.Context(), req.VariantID, req.LocationID,
		req.Delta, store.AdjustmentType(req.Type), req.Reference, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	variantID := r.URL.Query().Get("variant_id")
	locationID := r.URL.Query().Get("location_id")
	if variantID == "" {
		http.Error(w, "variant_id is required", http.StatusBadRequest)
		return
	}

	var available int64
	if locationID != "" {
		available, err = c.Projector.Available(r.Context(), variantID, locationID)
	} else {
		available, err = c.Projector.AvailableAcrossLocations(r.Context(), variantID)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	status, err := c.Policy.Classify(r.Context(), variantID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"variant_id": variantID,
		"available":  available,
		"status":     status,
	})
}

func (h *Handlers) GetEntries(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	variantID := r.URL.Query().Get("variant_id")
	locationID := r.URL.Query().Get("location_id")
	if variantID == "" || locationID == "" {
		http.Error(w, "variant_id and location_id are required", http.StatusBadRequest)
		return
	}

	entries, err := c.Ledger.Replay(r.Context(), variantID, locationID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Reservation handlers

type reservationRequest struct {
	VariantID  string `json:"variant_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reservation, err := c.Policy.TryReserveForSale(r.Context(), req.VariantID, req.LocationID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

func (h *Handlers) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token := extractPathParam(r.URL.Path, "/reservations/")
	if err := c.Policy.Release(token); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CommitReservation(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token := extractPathParam(r.URL.Path, "/reservations/")
	token = strings.TrimSuffix(token, "/commit")

	var req struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := c.Policy.CommitSale(r.Context(), token, req.Reference)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// Reporting handlers

func (h *Handlers) GetUnitsSold(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	variantID := r.URL.Query().Get("variant_id")
	from, to, err := parseWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	units, err := c.Analytics.UnitsSold(r.Context(), variantID, from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"variant_id": variantID,
		"units_sold": units,
	})
}

func (h *Handlers) GetInventoryValue(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sku := r.URL.Query().Get("product_sku")
	valuation, err := c.Analytics.InventoryValue(r.Context(), sku)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, valuation)
}

func (h *Handlers) GetTopSellers(w http.ResponseWriter, r *http.Request) {
	c, err := h.components(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
	}
	from, to, err := parseWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := c.Analytics.TopSellers(r.Context(), limit, from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Helpers

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now()

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, errors.New("from must be RFC3339")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, errors.New("to must be RFC3339")
		}
		to = parsed
	}
	return from, to, nil
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stock.ErrInsufficientStock):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, stock.ErrInvalidAdjustment),
		errors.Is(err, stock.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrVariantsWithoutOptions),
		errors.Is(err, catalog.ErrOptionWithoutValues),
		errors.Is(err, catalog.ErrDuplicateSKU),
		errors.Is(err, catalog.ErrDuplicateCombination),
		errors.Is(err, catalog.ErrDuplicateLocation):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, stock.ErrUnknownVariant),
		errors.Is(err, stock.ErrUnknownLocation),
		errors.Is(err, stock.ErrUnknownReservation),
		errors.Is(err, catalog.ErrUnknownProduct),
		errors.Is(err, catalog.ErrUnknownVariant),
		errors.Is(err, catalog.ErrUnknownLocation):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}
