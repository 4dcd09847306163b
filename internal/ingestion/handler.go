package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/gridlab/gridcore/internal/api/v1"
	httperr "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/rawdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgPersistFailed   = "Failed to persist point"
	msgStaleCache      = "Points stored but cache invalidation failed"
	msgDuplicatePoints = "Every point already exists"
	msgDeleteFailed    = "Failed to delete point"
)

// ingestionError carries the structured HTTP error shape from a helper back to the handler.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles POST /v1/sources/:source_id/points.
func (s *Service) IngestHandler(c *gin.Context) {
	src, ierr := s.lookupSource(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	req, payloadSize, ierr := s.parsePoints(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	points, ierr := toRawPoints(src, req.Points)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	slog.Info("[Ingestion] Received points",
		"source_id", src.ID,
		"source", src.Name,
		"points", len(points),
		"payload_size", payloadSize)

	resp, ierr := s.persistPoints(c.Request.Context(), src, points)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// DeleteHandler handles DELETE /v1/sources/:source_id/points/:timestamp.
func (s *Service) DeleteHandler(c *gin.Context) {
	src, ierr := s.lookupSource(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	ts, err := time.Parse(time.RFC3339, c.Param("timestamp"))
	if err != nil {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequest,
			message:    "Invalid timestamp",
			details:    err.Error(),
		})
		return
	}

	deleted, err := s.writer.Delete(c.Request.Context(), src, ts)
	if errors.Is(err, rawdata.ErrCacheInvalidation) {
		slog.Error("[Ingestion] Point deleted with stale cache", "source_id", src.ID, "timestamp", ts, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgStaleCache,
			details:    map[string]interface{}{"deleted": true},
		})
		return
	}
	if err != nil {
		slog.Error("[Ingestion] Failed to delete point", "source_id", src.ID, "timestamp", ts, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgDeleteFailed,
		})
		return
	}
	if !deleted {
		writeError(c, &ingestionError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpNotFound,
			message:    fmt.Sprintf("No point at %s", ts.Format(time.RFC3339)),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Service) lookupSource(c *gin.Context) (rawdata.Source, *ingestionError) {
	id, err := uuid.Parse(c.Param("source_id"))
	if err != nil {
		return rawdata.Source{}, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequest,
			message:    "Invalid source id",
			details:    err.Error(),
		}
	}
	src, err := s.sources.Source(id)
	if err != nil {
		status, errorType := httperr.HTTPStatus(err)
		return rawdata.Source{}, &ingestionError{
			statusCode: status,
			errorType:  errorType,
			message:    err.Error(),
		}
	}
	return src, nil
}

// parsePoints reads the raw request body and binds it into a PointsRequest.
// Returns the request and the raw payload size.
func (s *Service) parsePoints(c *gin.Context) (*v1.PointsRequest, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidRequest,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req v1.PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequest,
			message:    msgInvalidJSON,
		}
	}

	if err := req.Validate(); err != nil {
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequest,
			message:    err.Error(),
		}
	}
	return &req, len(bodyBytes), nil
}

// toRawPoints converts every posted value to a whole number of the source's
// base unit and checks its timestamp against the source's grid.
func toRawPoints(src rawdata.Source, in []v1.Point) ([]storage.RawPoint, *ingestionError) {
	out := make([]storage.RawPoint, 0, len(in))
	for i, p := range in {
		rp, err := toRawPoint(src, p)
		if err != nil {
			status, errorType := httperr.HTTPStatus(err)
			if status == http.StatusInternalServerError {
				status, errorType = http.StatusBadRequest, httperr.HttpInvalidRequest
			}
			return nil, &ingestionError{
				statusCode: status,
				errorType:  errorType,
				message:    fmt.Sprintf("points[%d]: %s", i, err),
			}
		}
		out = append(out, rp)
	}
	return out, nil
}

func toRawPoint(src rawdata.Source, p v1.Point) (storage.RawPoint, error) {
	unit := p.Unit
	if unit == "" {
		unit = src.Unit
	}
	q, err := units.FromDecimal(p.Value, unit)
	if err != nil {
		return storage.RawPoint{}, err
	}
	r, err := q.Convert(src.Unit)
	if err != nil {
		return storage.RawPoint{}, err
	}
	if !r.IsInt() || !r.Num().IsInt64() {
		return storage.RawPoint{}, fmt.Errorf("%s %s is not a whole number of %s", p.Value, unit, src.Unit)
	}
	if err := src.ValidateTimestamp(p.Timestamp); err != nil {
		return storage.RawPoint{}, err
	}
	return storage.RawPoint{Timestamp: p.Timestamp.UTC(), Value: r.Num().Int64()}, nil
}

// persistPoints stores every point. Duplicates are reported, not fatal,
// unless the whole batch was already present. A storage error stops the
// batch; a failed cache invalidation does not, since the point is stored.
// Either way the error details list what was stored.
func (s *Service) persistPoints(ctx context.Context, src rawdata.Source, points []storage.RawPoint) (v1.PointsResponse, *ingestionError) {
	resp := v1.PointsResponse{Status: "accepted"}
	var partial v1.PartialWrite
	for _, p := range points {
		err := s.writer.Insert(ctx, src, p)
		switch {
		case err == nil:
			resp.Inserted++
			partial.Accepted = append(partial.Accepted, p.Timestamp)
		case errors.Is(err, storage.ErrDuplicate):
			resp.Duplicates = append(resp.Duplicates, p.Timestamp)
		case errors.Is(err, rawdata.ErrCacheInvalidation):
			resp.Inserted++
			partial.Accepted = append(partial.Accepted, p.Timestamp)
			partial.StaleCache = append(partial.StaleCache, p.Timestamp)
		default:
			slog.Error("[Ingestion] Failed to persist point", "error", err, "source_id", src.ID, "timestamp", p.Timestamp)
			failedAt := p.Timestamp
			partial.FailedAt = &failedAt
			return resp, partialWriteError(resp, partial)
		}
	}
	if len(partial.StaleCache) > 0 {
		slog.Error("[Ingestion] Points stored with stale cache", "source_id", src.ID, "points", len(partial.StaleCache))
		return resp, partialWriteError(resp, partial)
	}

	if resp.Inserted == 0 {
		slog.Info("[Ingestion] Duplicate points rejected", "source_id", src.ID, "points", len(points))
		return resp, &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpDuplicatePoint,
			message:    msgDuplicatePoints,
		}
	}
	return resp, nil
}

func partialWriteError(resp v1.PointsResponse, partial v1.PartialWrite) *ingestionError {
	partial.Inserted = resp.Inserted
	partial.Duplicates = resp.Duplicates
	message := msgPersistFailed
	if partial.FailedAt == nil {
		message = msgStaleCache
	}
	return &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    message,
		details:    partial,
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
