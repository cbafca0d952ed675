// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const logEntryColumns = `id, uuid, content_type, object_id, label, action, user_id, data,
	related_content_type, related_object_id, related_label, content_changed, deleted, timestamp`

func scanLogEntry(row interface{ Scan(...any) error }) (LogEntry, error) {
	var i LogEntry
	err := row.Scan(
		&i.ID,
		&i.Uuid,
		&i.ContentType,
		&i.ObjectID,
		&i.Label,
		&i.Action,
		&i.UserID,
		&i.Data,
		&i.RelatedContentType,
		&i.RelatedObjectID,
		&i.RelatedLabel,
		&i.ContentChanged,
		&i.Deleted,
		&i.Timestamp,
	)
	return i, err
}

func (q *Queries) listLogEntries(ctx context.Context, query string, args ...any) ([]LogEntry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []LogEntry
	for rows.Next() {
		i, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createLogEntry = `INSERT INTO log_entries (
	uuid, content_type, object_id, label, action, user_id, data,
	related_content_type, related_object_id, related_label, content_changed, deleted, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateLogEntryParams struct {
	Uuid               string
	ContentType        string
	ObjectID           string
	Label              string
	Action             string
	UserID             sql.NullInt64
	Data               string
	RelatedContentType sql.NullString
	RelatedObjectID    sql.NullString
	RelatedLabel       sql.NullString
	ContentChanged     bool
	Deleted            bool
	Timestamp          time.Time
}

func (q *Queries) CreateLogEntry(ctx context.Context, arg CreateLogEntryParams) (LogEntry, error) {
	result, err := q.db.ExecContext(ctx, createLogEntry,
		arg.Uuid,
		arg.ContentType,
		arg.ObjectID,
		arg.Label,
		arg.Action,
		arg.UserID,
		arg.Data,
		arg.RelatedContentType,
		arg.RelatedObjectID,
		arg.RelatedLabel,
		arg.ContentChanged,
		arg.Deleted,
		arg.Timestamp,
	)
	if err != nil {
		return LogEntry{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return LogEntry{}, err
	}
	return q.GetLogEntry(ctx, id)
}

const getLogEntry = `SELECT ` + logEntryColumns + ` FROM log_entries WHERE id = ?`

func (q *Queries) GetLogEntry(ctx context.Context, id int64) (LogEntry, error) {
	return scanLogEntry(q.db.QueryRowContext(ctx, getLogEntry, id))
}

const listLogEntriesByContentType = `SELECT ` + logEntryColumns + ` FROM log_entries
WHERE content_type = ?
ORDER BY timestamp DESC, id DESC`

func (q *Queries) ListLogEntriesByContentType(ctx context.Context, contentType string) ([]LogEntry, error) {
	return q.listLogEntries(ctx, listLogEntriesByContentType, contentType)
}

const listLogEntriesByObject = `SELECT ` + logEntryColumns + ` FROM log_entries
WHERE content_type = ? AND object_id = ?
ORDER BY timestamp DESC, id DESC`

type ListLogEntriesByObjectParams struct {
	ContentType string
	ObjectID    string
}

func (q *Queries) ListLogEntriesByObject(ctx context.Context, arg ListLogEntriesByObjectParams) ([]LogEntry, error) {
	return q.listLogEntries(ctx, listLogEntriesByObject, arg.ContentType, arg.ObjectID)
}

const listLogEntriesByUser = `SELECT ` + logEntryColumns + ` FROM log_entries
WHERE user_id = ?
ORDER BY timestamp DESC, id DESC`

func (q *Queries) ListLogEntriesByUser(ctx context.Context, userID int64) ([]LogEntry, error) {
	return q.listLogEntries(ctx, listLogEntriesByUser, userID)
}

const listLogEntriesByRelatedObject = `SELECT ` + logEntryColumns + ` FROM log_entries
WHERE related_content_type = ? AND related_object_id = ?
ORDER BY timestamp DESC, id DESC`

type ListLogEntriesByRelatedObjectParams struct {
	RelatedContentType string
	RelatedObjectID    string
}

func (q *Queries) ListLogEntriesByRelatedObject(ctx context.Context, arg ListLogEntriesByRelatedObjectParams) ([]LogEntry, error) {
	return q.listLogEntries(ctx, listLogEntriesByRelatedObject, arg.RelatedContentType, arg.RelatedObjectID)
}

const listRecentLogEntries = `SELECT ` + logEntryColumns + ` FROM log_entries
ORDER BY timestamp DESC, id DESC
LIMIT ?`

func (q *Queries) ListRecentLogEntries(ctx context.Context, limit int64) ([]LogEntry, error) {
	return q.listLogEntries(ctx, listRecentLogEntries, limit)
}

const deleteLogEntriesBefore = `DELETE FROM log_entries WHERE timestamp < ?`

func (q *Queries) DeleteLogEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteLogEntriesBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
