package statedb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage1JobStatus values for the stage1_jobs claim queue.
const (
	Stage1StatusPending   = "pending"
	Stage1StatusLeased    = "leased"
	Stage1StatusSucceeded = "succeeded"
	Stage1StatusFailed    = "failed"
)

// Stage1Claim is a thread claimed for stage-1 memory extraction, along
// with the ownership token the caller must present to mark it done.
type Stage1Claim struct {
	ThreadID       string
	OwnershipToken string
}

// EnsureStage1Job registers a thread as eligible for stage-1 extraction if
// it isn't already tracked. Idempotent: a thread already in the queue is
// left untouched regardless of its current status.
func (d *DB) EnsureStage1Job(threadID, source string, rolloutUpdatedAt time.Time) error {
	now := time.Now().Unix()
	_, err := d.conn.Exec(`
		INSERT INTO stage1_jobs (thread_id, source, rollout_updated_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO NOTHING
	`, threadID, source, rolloutUpdatedAt.Unix(), Stage1StatusPending, now, now)
	if err != nil {
		return fmt.Errorf("ensure stage1 job: %w", err)
	}
	return nil
}

// ClaimStage1Jobs scans up to maxCandidates rows whose rollout has been
// idle at least minRolloutIdle, no older than maxAge, optionally filtered
// by allowedSources, and atomically claims up to maxClaimed of them with a
// lease of leaseSeconds.
func (d *DB) ClaimStage1Jobs(maxCandidates, maxClaimed int, minRolloutIdle, maxAge time.Duration, leaseSeconds int, allowedSources []string) ([]Stage1Claim, error) {
	now := time.Now()
	idleCutoff := now.Add(-minRolloutIdle).Unix()
	ageCutoff := now.Add(-maxAge).Unix()

	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("claim stage1 jobs: begin: %w", err)
	}
	defer tx.Rollback()

	var where []string
	args := []interface{}{idleCutoff, ageCutoff, now.Unix()}
	where = append(where,
		"rollout_updated_at <= ?",
		"rollout_updated_at >= ?",
		"(status = 'pending' OR (status = 'leased' AND leased_until < ?))",
		"(next_attempt_at = 0 OR next_attempt_at <= ?)",
	)
	args = append(args, now.Unix())
	if len(allowedSources) > 0 {
		placeholders := strings.Repeat("?,", len(allowedSources))
		placeholders = placeholders[:len(placeholders)-1]
		where = append(where, "source IN ("+placeholders+")")
		for _, s := range allowedSources {
			args = append(args, s)
		}
	}

	query := "SELECT thread_id FROM stage1_jobs WHERE " + strings.Join(where, " AND ") +
		" ORDER BY rollout_updated_at ASC LIMIT ?"
	args = append(args, maxCandidates)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim stage1 jobs: scan candidates: %w", err)
	}
	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("claim stage1 jobs: scan row: %w", err)
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(candidates) > maxClaimed {
		candidates = candidates[:maxClaimed]
	}

	var claims []Stage1Claim
	leasedUntil := now.Add(time.Duration(leaseSeconds) * time.Second).Unix()
	for _, threadID := range candidates {
		token := uuid.NewString()
		res, err := tx.Exec(`
			UPDATE stage1_jobs SET status = 'leased', ownership_token = ?, leased_until = ?,
				attempt_count = attempt_count + 1, updated_at = ?
			WHERE thread_id = ? AND (status = 'pending' OR (status = 'leased' AND leased_until < ?))
		`, token, leasedUntil, now.Unix(), threadID, now.Unix())
		if err != nil {
			return nil, fmt.Errorf("claim stage1 jobs: claim %s: %w", threadID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue // raced with another claimant between the scan and the update
		}
		claims = append(claims, Stage1Claim{ThreadID: threadID, OwnershipToken: token})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim stage1 jobs: commit: %w", err)
	}
	return claims, nil
}

// MarkStage1JobSucceeded records a completed extraction, gated on the
// caller presenting the same ownership token the claim returned.
func (d *DB) MarkStage1JobSucceeded(threadID, token string, updatedAt time.Time, rawMemory, summary string) error {
	res, err := d.conn.Exec(`
		UPDATE stage1_jobs SET status = ?, raw_memory = ?, summary = ?, last_error = NULL, updated_at = ?
		WHERE thread_id = ? AND ownership_token = ?
	`, Stage1StatusSucceeded, rawMemory, summary, updatedAt.Unix(), threadID, token)
	if err != nil {
		return fmt.Errorf("mark stage1 job succeeded: %w", err)
	}
	return checkTokenMatched(res, threadID)
}

// MarkStage1JobFailed records a failed extraction attempt and schedules a
// retry after retryDelaySeconds, gated on the ownership token.
func (d *DB) MarkStage1JobFailed(threadID, token, reason string, retryDelaySeconds int) error {
	now := time.Now()
	nextAttempt := now.Add(time.Duration(retryDelaySeconds) * time.Second).Unix()
	res, err := d.conn.Exec(`
		UPDATE stage1_jobs SET status = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE thread_id = ? AND ownership_token = ?
	`, Stage1StatusPending, reason, nextAttempt, now.Unix(), threadID, token)
	if err != nil {
		return fmt.Errorf("mark stage1 job failed: %w", err)
	}
	return checkTokenMatched(res, threadID)
}

func checkTokenMatched(res sql.Result, threadID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("stage1 job %s: ownership token mismatch or job not found", threadID)
	}
	return nil
}
