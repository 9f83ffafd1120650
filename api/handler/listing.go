package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/productsense/research/models"
	"github.com/productsense/research/prose"
)

// ListingRequest is the payload for POST /api/v1/listing.
type ListingRequest struct {
	Record      *models.CanonicalRecord `json:"record" binding:"required"`
	PageContext string                  `json:"page_context,omitempty"`
}

// ListingResponse wraps the generated listing copy.
type ListingResponse struct {
	Success bool                `json:"success"`
	Listing *models.Listing     `json:"listing,omitempty"`
	Error   *models.ErrorDetail `json:"error,omitempty"`
}

// Listing returns a handler for POST /api/v1/listing. It phrases a finished
// canonical record into SEO copy via the configured prose generator.
func Listing(gen prose.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gen == nil {
			c.JSON(http.StatusServiceUnavailable, ListingResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeLLMFailure,
					Message: "prose generation is not configured",
				},
			})
			return
		}

		var req ListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ListingResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		listing, err := gen.Generate(c.Request.Context(), req.Record, req.PageContext)
		if err != nil {
			status := http.StatusBadGateway
			detail := &models.ErrorDetail{Code: models.ErrCodeLLMFailure, Message: err.Error()}
			var rerr *models.ResearchError
			if errors.As(err, &rerr) {
				detail = rerr.ToDetail()
				if rerr.Code == models.ErrCodeLLMRateLimited {
					status = http.StatusTooManyRequests
				}
			}
			c.JSON(status, ListingResponse{Success: false, Error: detail})
			return
		}

		c.JSON(http.StatusOK, ListingResponse{Success: true, Listing: listing})
	}
}
