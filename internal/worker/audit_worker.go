package worker

import (
	"github.com/spec-kit/ops-portal/internal/service"
)

// StartAuditWorker registers the lead activity handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
