package driving

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// AdminService provides operational checks and destructive maintenance.
type AdminService interface {
	// Health pings every configured component and reports per-component status.
	Health(ctx context.Context) (*domain.HealthStatus, error)

	// Reset removes all documents, chunks, and vectors.
	Reset(ctx context.Context) error
}
