// Package api exposes the registry over REST. Every endpoint answers JSON
// with a success flag; marketplace failures surface as structured payloads,
// not bare HTTP errors.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"commerce-sync-layer/internal/application"
	"commerce-sync-layer/internal/domain"
)

// maxWebhookBody caps inbound webhook payloads at 1MB.
const maxWebhookBody = 1 << 20

// Handlers bundles the HTTP handlers around the registry.
type Handlers struct {
	registry *application.Registry
	logger   zerolog.Logger
}

// NewHandlers creates the REST handler set.
func NewHandlers(registry *application.Registry, logger zerolog.Logger) *Handlers {
	return &Handlers{registry: registry, logger: logger}
}

// Routes mounts every endpoint on the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api/ecommerce", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/orders", h.Orders)
		r.Get("/products", h.Products)
		r.Post("/sync", h.Sync)
		r.Post("/sync/{platform}", h.Sync)
		r.Post("/connect/{platform}", h.Connect)
		r.Post("/disconnect/{platform}", h.Disconnect)
	})
	r.Post("/api/webhook/{platform}", h.Webhook)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

// Status reports connection state and last sync time per platform.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  h.registry.GetStatus(),
	})
}

// Orders returns the synced order cache, optionally filtered by the
// platform query parameter.
func (h *Handlers) Orders(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("platform"); name != "" {
		platform, err := domain.ParsePlatform(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		orders := h.registry.GetSyncedOrdersByPlatform(platform)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"count":   len(orders),
			"orders":  orders,
		})
		return
	}

	orders := h.registry.GetSyncedOrders()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(orders),
		"orders":  orders,
	})
}

// Products returns the synced product cache.
func (h *Handlers) Products(w http.ResponseWriter, r *http.Request) {
	products := h.registry.GetSyncedProducts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(products),
		"products": products,
	})
}

// Sync triggers a manual sync for one platform, or for every connected
// platform when no platform path parameter is present.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.ManualSync(r.Context(), chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

type connectRequest struct {
	domain.Credentials
}

// Connect authenticates a platform with credentials from the request body
// and registers it for syncing.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	platform, err := domain.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.registry.ConnectPlatform(r.Context(), platform, req.Credentials); err != nil {
		status := http.StatusBadGateway
		if domain.IsConfigurationError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s connected", platform),
	})
}

// Disconnect removes a platform and clears its cached data.
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	platform, err := domain.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.registry.DisconnectPlatform(platform)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s disconnected", platform),
	})
}

// Webhook receives a marketplace notification. The answer is 200 with a
// success flag even for unsupported events, so marketplaces do not retry
// payloads this service will never handle.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result := h.registry.HandleWebhook(r.Context(), chi.URLParam(r, "platform"), payload)
	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   result.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result.Event,
	})
}
