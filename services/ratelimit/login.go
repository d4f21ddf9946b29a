package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LoginResult represents the result of a login throttle check
type LoginResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// LoginLimiter throttles failed logins per username using a sliding window
// over the login_attempts table.
type LoginLimiter struct {
	db          *sql.DB
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewLoginLimiter creates a new LoginLimiter. maxAttempts <= 0 disables it.
func NewLoginLimiter(db *sql.DB, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{
		db:          db,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		now:         time.Now,
	}
}

// Enabled reports whether attempts are counted at all
func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.maxAttempts > 0 && l.window > 0
}

// Check reports whether another login for username may be attempted
func (l *LoginLimiter) Check(ctx context.Context, username string) (*LoginResult, error) {
	if !l.Enabled() {
		return &LoginResult{Allowed: true}, nil
	}

	now := l.now()
	query := `
		SELECT COUNT(*), MIN(attempted_at)
		FROM login_attempts
		WHERE scope_key = $1
		  AND attempted_at >= $2
	`

	var count int
	var oldest sql.NullTime
	err := l.db.QueryRowContext(ctx, query, scopeKey(username), now.Add(-l.window)).Scan(&count, &oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to count login attempts: %w", err)
	}

	if count < l.maxAttempts {
		return &LoginResult{Allowed: true, Remaining: l.maxAttempts - count}, nil
	}

	// The window frees a slot once the oldest counted attempt ages out
	retryAfter := time.Second
	if oldest.Valid {
		if d := oldest.Time.Add(l.window).Sub(now); d > retryAfter {
			retryAfter = d
		}
	}
	return &LoginResult{Allowed: false, RetryAfter: retryAfter}, nil
}

// RecordFailure counts a failed login for username
func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) error {
	if !l.Enabled() {
		return nil
	}

	query := `
		INSERT INTO login_attempts (scope_key, attempted_at)
		VALUES ($1, $2)
	`
	if _, err := l.db.ExecContext(ctx, query, scopeKey(username), l.now()); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// Reset forgets the failed attempts for username after a successful login
func (l *LoginLimiter) Reset(ctx context.Context, username string) error {
	if !l.Enabled() {
		return nil
	}

	if _, err := l.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE scope_key = $1`, scopeKey(username)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// CleanupOldAttempts removes attempts older than the given age to keep the
// table size manageable
func (l *LoginLimiter) CleanupOldAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := l.now().Add(-olderThan)

	result, err := l.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old login attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// StartCleanupWorker periodically drops attempts that fell out of the window.
// It blocks until ctx is cancelled.
func (l *LoginLimiter) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	if !l.Enabled() || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := l.CleanupOldAttempts(ctx, l.window)
			if err != nil {
				l.logger.Error("failed to cleanup login attempts", zap.Error(err))
				continue
			}
			if deleted > 0 {
				l.logger.Debug("cleaned up login attempts", zap.Int64("deleted", deleted))
			}
		}
	}
}

// scopeKey keys attempts by normalized username so casing cannot dodge the limit
func scopeKey(username string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(username))
}
