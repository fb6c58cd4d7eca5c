package sheets

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a dashboard report for one owner, replacing the
	// previous export.
	ReportWriter interface {
		WriteDashboard(ctx context.Context, ownerID string, d core.Dashboard) error
	}
)
