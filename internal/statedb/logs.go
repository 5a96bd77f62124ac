package statedb

import (
	"fmt"
	"strings"
)

// LogEntry is one row of the logs table.
type LogEntry struct {
	ID       int64  `json:"id"`
	Ts       int64  `json:"ts"`
	Level    string `json:"level"`
	Module   string `json:"module,omitempty"`
	File     string `json:"file,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

// AppendLog inserts a new log entry and returns its assigned id.
func (d *DB) AppendLog(e LogEntry) (int64, error) {
	res, err := d.conn.Exec(
		`INSERT INTO logs (ts, level, module, file, thread_id, message) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Ts, e.Level, e.Module, e.File, e.ThreadID, e.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("append log: %w", err)
	}
	return res.LastInsertId()
}

// LogFilter narrows a TailLogs scan.
type LogFilter struct {
	Level             string
	TsFrom, TsTo      int64 // zero means unbounded
	ModuleSubstrings  []string
	FileSubstrings    []string
	ThreadIDs         []string
	IncludeThreadless bool
	AfterID           int64
	Limit             int
	Desc              bool
}

// TailLogs scans the logs table with the given filter.
func (d *DB) TailLogs(f LogFilter) ([]LogEntry, error) {
	var where []string
	var args []interface{}

	if f.Level != "" {
		where = append(where, "level = ?")
		args = append(args, f.Level)
	}
	if f.TsFrom > 0 {
		where = append(where, "ts >= ?")
		args = append(args, f.TsFrom)
	}
	if f.TsTo > 0 {
		where = append(where, "ts <= ?")
		args = append(args, f.TsTo)
	}
	if len(f.ModuleSubstrings) > 0 {
		var clauses []string
		for _, s := range f.ModuleSubstrings {
			clauses = append(clauses, "module LIKE ?")
			args = append(args, "%"+s+"%")
		}
		where = append(where, "("+strings.Join(clauses, " OR ")+")")
	}
	if len(f.FileSubstrings) > 0 {
		var clauses []string
		for _, s := range f.FileSubstrings {
			clauses = append(clauses, "file LIKE ?")
			args = append(args, "%"+s+"%")
		}
		where = append(where, "("+strings.Join(clauses, " OR ")+")")
	}
	if len(f.ThreadIDs) > 0 {
		placeholders := strings.Repeat("?,", len(f.ThreadIDs))
		placeholders = placeholders[:len(placeholders)-1]
		clause := "thread_id IN (" + placeholders + ")"
		if f.IncludeThreadless {
			clause = "(" + clause + " OR thread_id = '')"
		}
		where = append(where, clause)
		for _, t := range f.ThreadIDs {
			args = append(args, t)
		}
	}
	if f.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, f.AfterID)
	}

	query := "SELECT id, ts, level, module, file, thread_id, message FROM logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Desc {
		query += " ORDER BY id DESC"
	} else {
		query += " ORDER BY id ASC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("tail logs: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Ts, &e.Level, &e.Module, &e.File, &e.ThreadID, &e.Message); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
