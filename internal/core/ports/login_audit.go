package ports

import (
	"context"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// LoginAuditRepository persists completed logins.
type LoginAuditRepository interface {
	InsertLogin(ctx context.Context, event *domain.LoginEvent) error
}

// LoginAuditor accepts login events for asynchronous persistence.
type LoginAuditor interface {
	Enqueue(event domain.LoginEvent)
}

// LoginHistory reads back the audit trail.
type LoginHistory interface {
	ListByUser(ctx context.Context, userID string, limit int64) ([]domain.LoginEvent, error)
}
