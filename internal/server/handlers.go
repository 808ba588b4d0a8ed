package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hummingbird/internal/store"
	pkgerrors "hummingbird/pkg/errors"
)

func (s *Server) handleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleStatus reports process uptime, component health, and the
// store and index counters in one place.
func (s *Server) handleStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		overall := "healthy"
		database := gin.H{"status": "healthy"}
		if err := s.app.Store.Ping(ctx); err != nil {
			overall = "unhealthy"
			database = gin.H{"status": "unhealthy", "error": err.Error()}
		}

		var metrics *store.Metrics
		if overall == "healthy" {
			m, err := s.app.Store.Metrics(ctx)
			if err != nil {
				overall = "unhealthy"
				database = gin.H{"status": "unhealthy", "error": err.Error()}
			} else {
				metrics = m
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         overall,
			"uptime_seconds": s.app.Uptime().Seconds(),
			"checks":         gin.H{"database": database},
			"metrics":        metrics,
			"index":          s.app.Index.Stats(),
		})
	}
}

func (s *Server) handleIdentify() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, _, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := s.app.Ingestor.Ingest(c.Request.Context(), data, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleRegisterBird() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterBirdRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		birdID := req.BirdID
		name := req.Name
		if birdID == 0 {
			bird, err := s.app.Store.CreateBird(c.Request.Context(), req.Name)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			birdID = bird.ID
		}

		if err := s.app.Index.Add(req.Embedding, birdID, name, req.Metadata); err != nil {
			switch {
			case errors.Is(err, pkgerrors.ErrBirdExists):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, pkgerrors.ErrInvalidDimension):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{"bird_id": birdID})
	}
}

func (s *Server) handleListBirds() gin.HandlerFunc {
	return func(c *gin.Context) {
		birds, err := s.app.Store.ListBirds(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"birds": birds})
	}
}

func (s *Server) handleGetBird() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := birdIDParam(c)
		if !ok {
			return
		}
		bird, err := s.app.Store.GetBird(c.Request.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, pkgerrors.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		_, indexed := s.app.Index.Get(id)
		c.JSON(http.StatusOK, gin.H{"bird": bird, "indexed": indexed})
	}
}

func (s *Server) handleRenameBird() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := birdIDParam(c)
		if !ok {
			return
		}
		var req RenameBirdRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.app.Store.RenameBird(c.Request.Context(), id, req.Name); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, pkgerrors.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"bird_id": id, "name": req.Name})
	}
}

func (s *Server) handleDeleteBird() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := birdIDParam(c)
		if !ok {
			return
		}
		if err := s.app.Store.DeleteBird(c.Request.Context(), id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, pkgerrors.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		// Embedding removal follows the upstream delete; a bird that
		// was never indexed is fine.
		if err := s.app.Index.Remove(id); err != nil && !errors.Is(err, pkgerrors.ErrBirdNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleUpdateEmbedding() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := birdIDParam(c)
		if !ok {
			return
		}
		var req UpdateEmbeddingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.app.Index.Update(id, req.Embedding, req.Metadata); err != nil {
			switch {
			case errors.Is(err, pkgerrors.ErrBirdNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, pkgerrors.ErrInvalidDimension):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"bird_id": id})
	}
}

func (s *Server) handleGetEmbedding() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := birdIDParam(c)
		if !ok {
			return
		}
		entry, exists := s.app.Index.Get(id)
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": pkgerrors.ErrBirdNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"bird_id":   entry.BirdID,
			"embedding": entry.Embedding,
			"dimension": len(entry.Embedding),
			"metadata":  entry.Metadata,
		})
	}
}

func (s *Server) handleBirdVisits() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := birdIDParam(c)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		visits, err := s.app.Store.BirdVisits(c.Request.Context(), id, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"visits": visits})
	}
}

func (s *Server) handleSearchIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchIndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.K == 0 {
			req.K = s.app.Config.MatchK
		}
		matches, err := s.app.Index.Search(req.Embedding, req.K, req.Threshold)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrInvalidDimension) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
	}
}

func (s *Server) handleIndexStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.app.Index.Stats())
	}
}

func (s *Server) handleRebuildIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.app.Index.Rebuild(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s.app.Index.Stats())
	}
}

func (s *Server) handleRecentVisits() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		visits, err := s.app.Store.RecentVisits(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"visits": visits})
	}
}

func (s *Server) handleDailyVisits() gin.HandlerFunc {
	return func(c *gin.Context) {
		day := time.Now().UTC()
		if date := c.Query("date"); date != "" {
			parsed, err := time.Parse("2006-01-02", date)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			day = parsed
		}
		stats, err := s.app.Store.DailyVisitStats(c.Request.Context(), day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func (s *Server) handleActiveAlerts() gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := s.app.Store.ActiveAlerts(c.Request.Context(), c.Query("feeder_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": alerts})
	}
}

func (s *Server) handleAcknowledgeAlert() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
			return
		}
		var req AcknowledgeAlertRequest
		_ = c.ShouldBindJSON(&req)
		if err := s.app.Store.AcknowledgeAlert(c.Request.Context(), id, req.By); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, pkgerrors.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleFeederStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
		status, err := s.app.Feeder.Status(c.Request.Context(), c.Param("id"), days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func (s *Server) handleGenerateSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenerateSummaryRequest
		_ = c.ShouldBindJSON(&req)

		day := time.Now().UTC()
		if req.Date != "" {
			parsed, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			day = parsed
		}

		summary, err := s.app.Summaries.GenerateDaily(c.Request.Context(), day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func (s *Server) handleListSummaries() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
		summaries, err := s.app.Store.ListSummaries(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summaries": summaries})
	}
}

func birdIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bird id"})
		return 0, false
	}
	return id, true
}
