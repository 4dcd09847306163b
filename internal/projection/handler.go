package projection

import (
	"errors"
	"net/http"

	v1 "github.com/gridlab/gridcore/internal/api/v1"
	httperr "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/sources/:source_id/accumulated", s.HandleAccumulated)
	r.POST("/v1/sources/:source_id/cache", s.HandleFillCache)
	r.GET("/v1/consumptions/:name/:series", s.HandleConsumption)
	r.GET("/v1/performances/:name", s.HandlePerformance)
	r.GET("/v1/sequences/:name/offline", s.HandleOffline)
}

// bind binds the query parameters into req, writing a 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequest,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return false
	}
	return true
}

func writeQueryError(c *gin.Context, err error, message string) {
	if errors.Is(err, ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequest,
			Message:   message,
			Details:   err.Error(),
		})
		return
	}
	status, errorType := httperr.HTTPStatus(err)
	c.JSON(status, httperr.ErrorResponse{
		ErrorType: errorType,
		Message:   message,
		Details:   err.Error(),
	})
}

// HandleAccumulated handles GET /v1/sources/:source_id/accumulated
// Query parameters: from, to, width
func (s *Service) HandleAccumulated(c *gin.Context) {
	q := AccumulatedQuery{SourceID: c.Param("source_id")}
	if !bind(c, &q) {
		return
	}
	resp, err := s.Accumulated(c.Request.Context(), q)
	if err != nil {
		writeQueryError(c, err, "Failed to read accumulated deltas")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleFillCache handles POST /v1/sources/:source_id/cache
func (s *Service) HandleFillCache(c *gin.Context) {
	var req v1.CacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequest,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}
	if err := s.FillCache(c.Request.Context(), c.Param("source_id"), req); err != nil {
		writeQueryError(c, err, "Failed to fill cache")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "generated"})
}

// HandleConsumption handles GET /v1/consumptions/:name/:series
// Query parameters: from, to, resolution, unit
func (s *Service) HandleConsumption(c *gin.Context) {
	q := ConsumptionQuery{Name: c.Param("name"), Series: c.Param("series")}
	if !bind(c, &q) {
		return
	}
	resp, err := s.Consumption(c.Request.Context(), q)
	if err != nil {
		writeQueryError(c, err, "Failed to query consumption")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandlePerformance handles GET /v1/performances/:name
// Query parameters: from, to
func (s *Service) HandlePerformance(c *gin.Context) {
	q := PerformanceQuery{Name: c.Param("name")}
	if !bind(c, &q) {
		return
	}
	resp, err := s.Performance(c.Request.Context(), q)
	if err != nil {
		writeQueryError(c, err, "Failed to compute performance")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleOffline handles GET /v1/sequences/:name/offline
// Query parameters: from_date, to_date
func (s *Service) HandleOffline(c *gin.Context) {
	q := OfflineQuery{Name: c.Param("name")}
	if !bind(c, &q) {
		return
	}
	resp, err := s.Offline(c.Request.Context(), q)
	if err != nil {
		writeQueryError(c, err, "Failed to check offline tolerance")
		return
	}
	c.JSON(http.StatusOK, resp)
}
