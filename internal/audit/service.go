// Package audit records who did what to the lending system. Events land in
// the audit_events table; writes are fire-and-forget so a slow disk never
// stalls a borrow.
package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mlukasik/shelfkeeper/internal/database/audit"
	"github.com/mlukasik/shelfkeeper/internal/entities"
)

// Service provides high-level audit logging.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records an audit event synchronously.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until pending async writes finish. Used on shutdown and in
// tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogBorrow records a borrow attempt.
func (s *Service) LogBorrow(userID, bookID uint, bookTitle, ipAddr string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBorrow,
		Action:      "book_borrow",
		Description: "Borrowed book: " + bookTitle,
		EntityType:  "book",
		EntityID:    &bookID,
		IPAddress:   ipAddr,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Description = "Failed to borrow book: " + bookTitle
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogReturn records a return attempt.
func (s *Service) LogReturn(userID, borrowID uint, ipAddr string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventReturn,
		Action:      "book_return",
		Description: fmt.Sprintf("Returned borrow #%d", borrowID),
		EntityType:  "borrow",
		EntityID:    &borrowID,
		IPAddress:   ipAddr,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Description = fmt.Sprintf("Failed to return borrow #%d", borrowID)
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogCatalog records a catalog change (book created, updated or deleted).
func (s *Service) LogCatalog(userID uint, action string, bookID uint, bookTitle string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCatalog,
		Action:      "book_" + action,
		Description: fmt.Sprintf("Book %s: %s", action, bookTitle),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// PruneOlderThan drops events beyond the retention window. Called once at
// startup rather than from a scheduler.
func (s *Service) PruneOlderThan(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.repo.DeleteOldEvents(cutoff)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
