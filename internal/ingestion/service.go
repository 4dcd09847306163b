// Package ingestion accepts raw readings over HTTP and writes them through
// the rawdata service, which keeps the condense cache consistent.
package ingestion

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
)

// SourceLookup resolves a source id. *catalog.Catalog implements it.
type SourceLookup interface {
	Source(id uuid.UUID) (rawdata.Source, error)
}

// PointWriter stores and removes readings. *rawdata.Service implements it.
type PointWriter interface {
	Insert(ctx context.Context, src rawdata.Source, point storage.RawPoint) error
	Delete(ctx context.Context, src rawdata.Source, t time.Time) (bool, error)
}

type Service struct {
	sources          SourceLookup
	writer           PointWriter
	maxBodySizeBytes int
}

func NewService(sources SourceLookup, writer PointWriter, maxBodySizeMB int) *Service {
	if sources == nil {
		panic("ingestion: source lookup must not be nil")
	}
	if writer == nil {
		panic("ingestion: writer must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1
	}
	return &Service{
		sources:          sources,
		writer:           writer,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/sources/:source_id/points", s.IngestHandler)
	r.DELETE("/v1/sources/:source_id/points/:timestamp", s.DeleteHandler)
}
