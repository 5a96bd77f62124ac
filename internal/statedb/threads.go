package statedb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mfateev/codex-temporal-go/internal/rollout"
)

// ThreadListSort selects the ordering column for ListThreads.
type ThreadListSort string

const (
	SortByCreatedAt ThreadListSort = "created_at"
	SortByUpdatedAt ThreadListSort = "updated_at"
)

// ThreadListFilter narrows a ListThreads scan.
type ThreadListFilter struct {
	Limit         int
	Cursor        int64 // exclusive: rows strictly before this sort-column value
	SortBy        ThreadListSort
	AllowedSources []string
	Provider      string
	Archived      *bool
	OriginTag     string // substring match against git_origin_url
}

// UpsertThreadMetadata writes the current snapshot of a thread's metadata,
// replacing any prior row for the same id. Called after scanning a rollout
// (internal/rollout.ExtractThreadMetadata) so the database mirrors what a
// full rollout re-scan would produce.
func (d *DB) UpsertThreadMetadata(m rollout.ThreadMetadata) error {
	createdAt := parseTimeOrZero(m.CreatedAt)
	updatedAt := parseTimeOrZero(m.UpdatedAt)
	archivedAt := sql.NullInt64{}
	if m.ArchivedAt != "" {
		if ts := parseTimeOrZero(m.ArchivedAt); ts > 0 {
			archivedAt = sql.NullInt64{Int64: ts, Valid: true}
		}
	}
	firstUserMessage := sql.NullString{}
	if m.FirstUserMessage != "" {
		firstUserMessage = sql.NullString{String: m.FirstUserMessage, Valid: true}
	}

	_, err := d.conn.Exec(`
		INSERT INTO thread_metadata (
			id, created_at, updated_at, source, model_provider, cwd, cli_version,
			title, sandbox_policy, approval_mode, tokens_used, first_user_message,
			git_sha, git_branch, git_origin_url, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			source = excluded.source,
			model_provider = excluded.model_provider,
			cwd = excluded.cwd,
			cli_version = excluded.cli_version,
			title = excluded.title,
			sandbox_policy = excluded.sandbox_policy,
			approval_mode = excluded.approval_mode,
			tokens_used = excluded.tokens_used,
			first_user_message = excluded.first_user_message,
			git_sha = excluded.git_sha,
			git_branch = excluded.git_branch,
			git_origin_url = excluded.git_origin_url,
			archived_at = excluded.archived_at
	`,
		m.ID, createdAt, updatedAt, m.Source, m.ModelProvider, m.CWD, m.CLIVersion,
		m.Title, m.SandboxPolicy, m.ApprovalMode, m.TokensUsed, firstUserMessage,
		m.GitSHA, m.GitBranch, m.GitOriginURL, archivedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert thread metadata: %w", err)
	}
	return nil
}

// ListThreads returns thread ids/metadata matching the filter, newest-first
// by the chosen sort column.
func (d *DB) ListThreads(f ThreadListFilter) ([]rollout.ThreadMetadata, error) {
	sortCol := string(f.SortBy)
	if sortCol != string(SortByCreatedAt) && sortCol != string(SortByUpdatedAt) {
		sortCol = string(SortByUpdatedAt)
	}

	var where []string
	var args []interface{}

	if f.Cursor > 0 {
		where = append(where, sortCol+" < ?")
		args = append(args, f.Cursor)
	}
	if len(f.AllowedSources) > 0 {
		placeholders := strings.Repeat("?,", len(f.AllowedSources))
		placeholders = placeholders[:len(placeholders)-1]
		where = append(where, "source IN ("+placeholders+")")
		for _, s := range f.AllowedSources {
			args = append(args, s)
		}
	}
	if f.Provider != "" {
		where = append(where, "model_provider = ?")
		args = append(args, f.Provider)
	}
	if f.Archived != nil {
		if *f.Archived {
			where = append(where, "archived_at IS NOT NULL")
		} else {
			where = append(where, "archived_at IS NULL")
		}
	}
	if f.OriginTag != "" {
		where = append(where, "git_origin_url LIKE ?")
		args = append(args, "%"+f.OriginTag+"%")
	}

	query := "SELECT id, created_at, updated_at, source, model_provider, cwd, cli_version, " +
		"title, sandbox_policy, approval_mode, tokens_used, first_user_message, " +
		"git_sha, git_branch, git_origin_url, archived_at FROM thread_metadata"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + sortCol + " DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var out []rollout.ThreadMetadata
	for rows.Next() {
		var m rollout.ThreadMetadata
		var createdAt, updatedAt int64
		var archivedAt sql.NullInt64
		var firstUserMessage sql.NullString
		if err := rows.Scan(&m.ID, &createdAt, &updatedAt, &m.Source, &m.ModelProvider,
			&m.CWD, &m.CLIVersion, &m.Title, &m.SandboxPolicy, &m.ApprovalMode,
			&m.TokensUsed, &firstUserMessage, &m.GitSHA, &m.GitBranch, &m.GitOriginURL,
			&archivedAt); err != nil {
			return nil, fmt.Errorf("scan thread row: %w", err)
		}
		m.CreatedAt = formatTime(createdAt)
		m.UpdatedAt = formatTime(updatedAt)
		if firstUserMessage.Valid {
			m.FirstUserMessage = firstUserMessage.String
		}
		if archivedAt.Valid {
			m.ArchivedAt = formatTime(archivedAt.Int64)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func parseTimeOrZero(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func formatTime(unix int64) string {
	if unix <= 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
