// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auditlog records actions performed against model instances.
//
// Each entry references the object acted upon and, optionally, a second
// related object of any type, such as the task added to a page or the
// permission granted on a collection.
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-kit/internal/store"
)

// SystemContentType is the content type used for entries that are not tied
// to a model instance, such as forwarded log records.
const SystemContentType = "system.log"

var (
	// ErrUnknownAction is returned when logging an action missing from the registry.
	ErrUnknownAction = errors.New("auditlog: unknown action")
	// ErrEntryNotFound is returned when an entry does not exist.
	ErrEntryNotFound = errors.New("auditlog: entry not found")
)

// ValidationError reports an invalid argument to LogAction.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("auditlog: invalid %s: %s", e.Field, e.Message)
}

// Object is anything an action can be logged against. Implementations are
// expected to be values; a nil pointer is rejected like a nil Object.
type Object interface {
	ContentType() string
	ObjectID() string
	ObjectLabel() string
}

// refOf snapshots obj. It reports false for a nil Object and for a nil
// pointer whose methods dereference their receiver.
func refOf(obj Object) (ref ObjectRef, ok bool) {
	if obj == nil {
		return ObjectRef{}, false
	}
	defer func() {
		if recover() != nil {
			ref, ok = ObjectRef{}, false
		}
	}()
	return ObjectRef{Type: obj.ContentType(), ID: obj.ObjectID(), Label: obj.ObjectLabel()}, true
}

// ObjectRef is a stored reference to an Object.
type ObjectRef struct {
	Type  string
	ID    string
	Label string
}

func (r ObjectRef) ContentType() string { return r.Type }
func (r ObjectRef) ObjectID() string    { return r.ID }
func (r ObjectRef) ObjectLabel() string { return r.Label }

// Ref snapshots o.
func Ref(o Object) ObjectRef {
	return ObjectRef{Type: o.ContentType(), ID: o.ObjectID(), Label: o.ObjectLabel()}
}

// Entry is one recorded action.
type Entry struct {
	ID             int64
	UUID           string
	Object         ObjectRef
	Action         string
	UserID         *int64
	Timestamp      time.Time
	Data           map[string]any
	Related        *ObjectRef
	ContentChanged bool
	Deleted        bool
}

// Service records and queries audit log entries.
type Service struct {
	queries  *store.Queries
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRegistry replaces the default action registry.
func WithRegistry(r *Registry) ServiceOption {
	return func(s *Service) { s.registry = r }
}

// WithClock sets the source of entry timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used to report write failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service backed by db.
func NewService(db store.DBTX, opts ...ServiceOption) *Service {
	s := &Service{
		queries:  store.New(db),
		registry: DefaultRegistry(),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the action registry used by the service.
func (s *Service) Registry() *Registry {
	return s.registry
}

type logParams struct {
	userID         *int64
	related        Object
	data           map[string]any
	contentChanged bool
	deleted        bool
	uuid           string
}

// LogOption configures a single LogAction call.
type LogOption func(*logParams)

// WithUser records the user who performed the action.
func WithUser(id int64) LogOption {
	return func(p *logParams) { p.userID = &id }
}

// WithRelatedObject attaches a second object the action concerns.
func WithRelatedObject(o Object) LogOption {
	return func(p *logParams) { p.related = o }
}

// WithData attaches arbitrary JSON-encodable data.
func WithData(data map[string]any) LogOption {
	return func(p *logParams) { p.data = data }
}

// WithContentChanged marks the action as having changed the object's content.
func WithContentChanged() LogOption {
	return func(p *logParams) { p.contentChanged = true }
}

// WithDeleted marks the object as deleted by this action.
func WithDeleted() LogOption {
	return func(p *logParams) { p.deleted = true }
}

// WithUUID groups the entry with others sharing u. A new UUID is generated otherwise.
func WithUUID(u uuid.UUID) LogOption {
	return func(p *logParams) { p.uuid = u.String() }
}

// LogAction records action against obj.
func (s *Service) LogAction(ctx context.Context, obj Object, action string, opts ...LogOption) (*Entry, error) {
	ref, ok := refOf(obj)
	if !ok {
		return nil, &ValidationError{Field: "object", Message: "object is required"}
	}
	if action == "" {
		return nil, &ValidationError{Field: "action", Message: "action is required"}
	}
	if _, ok := s.registry.Lookup(action); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	p := logParams{}
	for _, opt := range opts {
		opt(&p)
	}
	if p.uuid == "" {
		p.uuid = uuid.NewString()
	}

	dataJSON := "{}"
	if p.data != nil {
		b, err := json.Marshal(p.data)
		if err != nil {
			return nil, fmt.Errorf("encoding log data: %w", err)
		}
		dataJSON = string(b)
	}

	params := store.CreateLogEntryParams{
		Uuid:           p.uuid,
		ContentType:    ref.Type,
		ObjectID:       ref.ID,
		Label:          ref.Label,
		Action:         action,
		Data:           dataJSON,
		ContentChanged: p.contentChanged,
		Deleted:        p.deleted,
		Timestamp:      s.now(),
	}
	if p.userID != nil {
		params.UserID = sql.NullInt64{Int64: *p.userID, Valid: true}
	}
	if p.related != nil {
		rel, ok := refOf(p.related)
		if !ok {
			return nil, &ValidationError{Field: "related", Message: "related object is nil"}
		}
		params.RelatedContentType = sql.NullString{String: rel.Type, Valid: true}
		params.RelatedObjectID = sql.NullString{String: rel.ID, Valid: true}
		params.RelatedLabel = sql.NullString{String: rel.Label, Valid: true}
	}

	row, err := s.queries.CreateLogEntry(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to write log entry", "action", action, "content_type", params.ContentType, "error", err)
		return nil, fmt.Errorf("creating log entry: %w", err)
	}
	return toEntry(row)
}

// Get returns the entry with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	row, err := s.queries.GetLogEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading log entry %d: %w", id, err)
	}
	return toEntry(row)
}

// ForModel returns all entries for objects of contentType, newest first.
func (s *Service) ForModel(ctx context.Context, contentType string) ([]Entry, error) {
	return toEntries(s.queries.ListLogEntriesByContentType(ctx, contentType))
}

// ForInstance returns all entries for obj, newest first.
func (s *Service) ForInstance(ctx context.Context, obj Object) ([]Entry, error) {
	return toEntries(s.queries.ListLogEntriesByObject(ctx, store.ListLogEntriesByObjectParams{
		ContentType: obj.ContentType(),
		ObjectID:    obj.ObjectID(),
	}))
}

// ForUser returns all entries recorded for userID, newest first.
func (s *Service) ForUser(ctx context.Context, userID int64) ([]Entry, error) {
	return toEntries(s.queries.ListLogEntriesByUser(ctx, userID))
}

// ForRelatedObject returns all entries that reference obj as their related object.
func (s *Service) ForRelatedObject(ctx context.Context, obj Object) ([]Entry, error) {
	return toEntries(s.queries.ListLogEntriesByRelatedObject(ctx, store.ListLogEntriesByRelatedObjectParams{
		RelatedContentType: obj.ContentType(),
		RelatedObjectID:    obj.ObjectID(),
	}))
}

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return toEntries(s.queries.ListRecentLogEntries(ctx, int64(limit)))
}

// DeleteOlderThan removes entries older than olderThan and returns how many were removed.
func (s *Service) DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	n, err := s.queries.DeleteLogEntriesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting log entries before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

// Message returns the human-readable message for e's action.
func (s *Service) Message(e Entry) string {
	if a, ok := s.registry.Lookup(e.Action); ok && a.Message != "" {
		return a.Message
	}
	return e.Action
}

func toEntries(rows []store.LogEntry, err error) ([]Entry, error) {
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := toEntry(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func toEntry(row store.LogEntry) (*Entry, error) {
	e := &Entry{
		ID:   row.ID,
		UUID: row.Uuid,
		Object: ObjectRef{
			Type:  row.ContentType,
			ID:    row.ObjectID,
			Label: row.Label,
		},
		Action:         row.Action,
		Timestamp:      row.Timestamp,
		ContentChanged: row.ContentChanged,
		Deleted:        row.Deleted,
	}
	if row.UserID.Valid {
		id := row.UserID.Int64
		e.UserID = &id
	}
	if row.RelatedContentType.Valid {
		e.Related = &ObjectRef{
			Type:  row.RelatedContentType.String,
			ID:    row.RelatedObjectID.String,
			Label: row.RelatedLabel.String,
		}
	}
	if row.Data != "" {
		if err := json.Unmarshal([]byte(row.Data), &e.Data); err != nil {
			return nil, fmt.Errorf("decoding data of log entry %d: %w", row.ID, err)
		}
	}
	return e, nil
}
