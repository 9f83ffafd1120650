package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/productsense/research/cache"
	"github.com/productsense/research/models"
	"github.com/productsense/research/pipeline"
	"github.com/productsense/research/store"
)

// Research returns a handler for POST /api/v1/research. It runs the full
// pipeline synchronously, consulting the record cache first when the request
// sets max_age_ms.
func Research(p *pipeline.Pipeline, cc *cache.Cache, sinks []store.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ResearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ResearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		key := cache.Key(&req)
		if record, hit := cc.Get(key, req.MaxAgeMs); hit {
			c.JSON(http.StatusOK, models.ResearchResponse{
				Success:     true,
				Record:      record,
				CacheStatus: "hit",
			})
			return
		}

		resp, err := p.Research(c.Request.Context(), &req)
		if err != nil {
			c.JSON(statusForError(err), resp)
			return
		}

		if req.MaxAgeMs > 0 {
			resp.CacheStatus = "miss"
		}
		cc.Set(key, resp.Record)
		deliver(sinks, resp.Record)

		c.JSON(http.StatusOK, resp)
	}
}

// statusForError maps pipeline errors to HTTP statuses.
func statusForError(err error) int {
	var rerr *models.ResearchError
	if !errors.As(err, &rerr) {
		return http.StatusInternalServerError
	}
	switch rerr.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeExhausted:
		return http.StatusBadGateway
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// deliver fans a finished record out to the sinks in the background. The
// request's own context would die with the response, so a detached timeout
// context is used instead.
func deliver(sinks []store.Sink, record *models.CanonicalRecord) {
	if len(sinks) == 0 || record == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		store.Fanout(ctx, sinks, record)
	}()
}
