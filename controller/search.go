package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semchat/model"
	"semchat/service"
)

type SearchController struct {
	searchService   *service.SearchService
	backfillService *service.BackfillService
	embeddingModel  string
	store           model.EmbeddingStore
}

func NewSearchController(searchService *service.SearchService, backfillService *service.BackfillService, embeddingModel string) *SearchController {
	return &SearchController{
		searchService:   searchService,
		backfillService: backfillService,
		embeddingModel:  embeddingModel,
	}
}

func (ctrl *SearchController) Search(c *gin.Context) {
	var input struct {
		Query string `json:"query" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userId := c.GetUint("UserId")
	result, err := ctrl.searchService.Search(c.Request.Context(), userId, input.Query)
	if err != nil {
		if errors.Is(err, service.ErrQueryTooShort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Warnf("[%s] Search failed: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	logger.Infof("[%s] Search for user %d returned %d messages (%s)",
		c.GetString("requestId"), userId, result.TotalMessages, result.SearchType)
	c.JSON(http.StatusOK, result)
}

func (ctrl *SearchController) Backfill(c *gin.Context) {
	var input struct {
		Limit int `json:"limit"`
	}
	// Body is optional; limit falls back to the default.
	_ = c.ShouldBindJSON(&input)

	userId := c.GetUint("UserId")
	result, err := ctrl.backfillService.Run(c.Request.Context(), userId, input.Limit)
	if err != nil {
		logger.Warnf("[%s] Backfill failed: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backfill failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"totalProcessed": result.TotalProcessed,
		"successCount":   result.SuccessCount,
		"failCount":      result.FailCount,
		"embeddingModel": ctrl.embeddingModel,
		"errors":         result.Errors,
	})
}

func (ctrl *SearchController) Stats(c *gin.Context) {
	userId := c.GetUint("UserId")
	stats, err := ctrl.store.GetEmbeddingStats(userId)
	if err != nil {
		logger.Warnf("[%s] Failed to fetch embedding stats: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
