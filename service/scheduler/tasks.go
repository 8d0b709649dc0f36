package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/model"
)

func (s *Service) sendApprovalReminders(ctx context.Context) (int, string, error) {
	window := time.Duration(s.config.ReminderDaysBeforeExpiry) * 24 * time.Hour
	minInterval := time.Duration(s.config.ReminderMinIntervalHours) * time.Hour
	sent, err := s.engine.SendReminders(ctx, window, minInterval)
	if err != nil {
		return sent, "", err
	}
	return sent, fmt.Sprintf("sent %d reminders", sent), nil
}

func (s *Service) expireOverdueApprovals(ctx context.Context) (int, string, error) {
	expired, err := s.engine.ExpireOverdue(ctx)
	if err != nil {
		return expired, "", err
	}
	return expired, fmt.Sprintf("expired %d overdue requests", expired), nil
}

func (s *Service) cleanupExpiredTokens(ctx context.Context) (int, string, error) {
	cutoff := clock.Now().Add(-time.Duration(s.config.ExpiredTokensCleanupDays) * 24 * time.Hour)
	cleaned, err := s.engine.CleanupTokens(ctx, cutoff)
	if err != nil {
		return cleaned, "", err
	}
	return cleaned, fmt.Sprintf("cleaned %d tokens", cleaned), nil
}

func (s *Service) sendDelayedCompletionNotifications(ctx context.Context) (int, string, error) {
	sent, err := s.engine.SendPendingCompletionNotices(ctx)
	if err != nil {
		return sent, "", err
	}
	return sent, fmt.Sprintf("delivered %d completion notices", sent), nil
}

func (s *Service) generateWeeklyStatistics(ctx context.Context) (int, string, error) {
	now := clock.Now()
	from := now.Add(-7 * 24 * time.Hour)
	requests, err := s.requests.CreatedBetween(ctx, from, now)
	if err != nil {
		return 0, "", err
	}
	byStatus := map[model.RequestStatus]int{}
	requesters := map[string]bool{}
	for _, request := range requests {
		byStatus[request.Status]++
		requesters[request.RequesterID] = true
	}
	s.logger.Info("weekly approval statistics",
		zap.Time("from", from),
		zap.Time("to", now),
		zap.Int("total", len(requests)),
		zap.Int("approved", byStatus[model.RequestApproved]),
		zap.Int("rejected", byStatus[model.RequestRejected]),
		zap.Int("pending", byStatus[model.RequestPending]),
		zap.Int("cancelled", byStatus[model.RequestCancelled]),
		zap.Int("expired", byStatus[model.RequestExpired]),
		zap.Int("activeRequesters", len(requesters)))
	message := fmt.Sprintf(
		"%d requests since %s: %d approved, %d rejected, %d pending, %d cancelled, %d expired, %d active requesters",
		len(requests), from.Format("2006-01-02"),
		byStatus[model.RequestApproved], byStatus[model.RequestRejected],
		byStatus[model.RequestPending], byStatus[model.RequestCancelled],
		byStatus[model.RequestExpired], len(requesters))
	return len(requests), message, nil
}

// cleanupOldAuditLogs purges in batches with a short pause between them so
// retention never monopolises the store.
func (s *Service) cleanupOldAuditLogs(ctx context.Context) (int, string, error) {
	cutoff := clock.Now().Add(-time.Duration(s.config.AuditLogsRetentionDays) * 24 * time.Hour)
	total := 0
	for {
		deleted, err := s.audits.DeleteOlderThan(ctx, cutoff, s.config.AuditCleanupBatchSize)
		total += deleted
		if err != nil {
			return total, "", err
		}
		if deleted < s.config.AuditCleanupBatchSize {
			break
		}
		select {
		case <-ctx.Done():
			return total, "", ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return total, fmt.Sprintf("deleted %d audit entries older than %s", total, cutoff.Format("2006-01-02")), nil
}
