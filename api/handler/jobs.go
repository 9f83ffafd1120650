package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/productsense/research/cache"
	"github.com/productsense/research/models"
	"github.com/productsense/research/pipeline"
	"github.com/productsense/research/store"
)

// jobStore holds all in-flight and completed research jobs.
var jobStore sync.Map

func init() {
	// Expire jobs older than 1 hour so abandoned results don't accumulate.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			jobStore.Range(func(key, value any) bool {
				job := value.(*models.Job)
				if job.CreatedAt < cutoff {
					jobStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostResearchJob returns a handler for POST /api/v1/research/jobs.
// It validates the request, registers a job, and runs the pipeline in the
// background; the client polls GET /research/jobs/:id for the result.
func PostResearchJob(p *pipeline.Pipeline, cc *cache.Cache, sinks []store.Sink) gin.HandlerFunc {
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

		jobID := "job-" + randomID()
		job := &models.Job{
			ID:        jobID,
			Status:    "processing",
			CreatedAt: time.Now().Unix(),
		}
		jobStore.Store(jobID, job)

		go runJob(p, cc, sinks, job, &req)

		c.JSON(http.StatusAccepted, models.JobResponse{
			ID:     jobID,
			Status: "processing",
		})
	}
}

// GetResearchJob returns a handler for GET /api/v1/research/jobs/:id.
func GetResearchJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := jobStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "research job not found",
				},
			})
			return
		}

		job := val.(*models.Job)
		c.JSON(http.StatusOK, models.JobStatusResponse{
			ID:     job.ID,
			Status: job.Status,
			Result: job.Result,
		})
	}
}

// runJob executes one research run in the background and records the result
// on the job. The job's own deadline comes from the request's timeout_sec.
func runJob(p *pipeline.Pipeline, cc *cache.Cache, sinks []store.Sink, job *models.Job, req *models.ResearchRequest) {
	key := cache.Key(req)
	if record, hit := cc.Get(key, req.MaxAgeMs); hit {
		job.Result = &models.ResearchResponse{
			Success:     true,
			Record:      record,
			CacheStatus: "hit",
		}
		job.Status = "completed"
		return
	}

	resp, err := p.Research(context.Background(), req)
	job.Result = resp
	if err != nil {
		job.Status = "failed"
		slog.Info("research job failed", "id", job.ID, "error", err)
		return
	}

	if req.MaxAgeMs > 0 {
		resp.CacheStatus = "miss"
	}
	cc.Set(key, resp.Record)
	deliver(sinks, resp.Record)

	job.Status = "completed"
	slog.Info("research job finished", "id", job.ID,
		"sources", len(resp.Record.SourceLinks))
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
