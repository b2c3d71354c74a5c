package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/wanderlate/internal/hotels"
	"go.uber.org/zap"
)

// HotelSearcher is satisfied by *hotels.Client.
type HotelSearcher interface {
	Search(ctx context.Context, req hotels.SearchRequest) ([]hotels.Hotel, error)
}

// HotelsHandler serves /api/hotels/search.
type HotelsHandler struct {
	search HotelSearcher
	log    *zap.Logger
}

// NewHotelsHandler builds the search handler. A nil searcher answers 503.
func NewHotelsHandler(search HotelSearcher, log *zap.Logger) *HotelsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HotelsHandler{search: search, log: log}
}

type searchResponse struct {
	Success bool           `json:"success"`
	Total   int            `json:"total"`
	Hotels  []hotels.Hotel `json:"hotels"`
}

// Search decodes a search request and returns the matching hotels. Invalid
// requests answer 400. Hotelbeds rejections are relayed with their status.
func (h *HotelsHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeError(w, http.StatusServiceUnavailable, "Hotel search is not configured")
		return
	}

	var req hotels.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.search.Search(r.Context(), req)
	if err != nil {
		var upstream *hotels.UpstreamError
		switch {
		case errors.Is(err, hotels.ErrMissingParams),
			errors.Is(err, hotels.ErrInvalidDates),
			errors.Is(err, hotels.ErrInvalidOccupancy):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &upstream):
			h.log.Warn("hotelbeds rejected search", zap.Int("status", upstream.Status), zap.ByteString("body", upstream.Body))
			resp := apiResponse{Message: "Failed to fetch hotels from Hotelbeds"}
			if len(upstream.Body) > 0 {
				resp.Details = json.RawMessage(upstream.Body)
			}
			writeJSON(w, upstream.Status, resp)
		default:
			h.log.Error("hotel search failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Success: true, Total: len(result), Hotels: result})
}
