package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns one page of audit rows, newest first, with the acting user attached
func (s *auditService) GetAuditLogs(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		actor := "System"
		userID := ""
		if l.User != nil {
			actor = l.User.DisplayName
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Actor:      actor,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// recordAudit writes one audit row. actorID is uuid.Nil for system actions
// such as seeding.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actorID uuid.UUID, action, entityID, entityName string, details any) error {
	payload := "{}"
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		payload = string(raw)
	}

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if actorID != uuid.Nil {
		entry.UserID = &actorID
	}

	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("write audit log %s: %w", action, err)
	}
	return nil
}
