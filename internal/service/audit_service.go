package service

import (
	"context"

	"cafepos/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	StaffID    string `json:"staff_id"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	audits repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(audits repository.AuditRepository) AuditService {
	return &auditService{audits: audits}
}

// GetAuditLogs retrieves strictly paginated audit records, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	logs, total, err := s.audits.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storeErr(err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		staffID := ""
		if l.StaffID != nil {
			staffID = l.StaffID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			StaffID:    staffID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
