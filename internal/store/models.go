// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type LogEntry struct {
	ID                 int64
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

type Collection struct {
	ID       int64
	Path     string
	Depth    int64
	Numchild int64
	Name     string
}

type CollectionMember struct {
	ID           int64
	CollectionID int64
	ContentType  string
	ObjectID     string
	Label        string
	CreatedAt    time.Time
}

type AuthGroup struct {
	ID   int64
	Name string
}

type AuthPermission struct {
	ID       int64
	Codename string
	Name     string
}

type GroupCollectionPermission struct {
	ID           int64
	GroupID      int64
	CollectionID int64
	PermissionID int64
}

type CollectionViewRestriction struct {
	ID              int64
	CollectionID    int64
	RestrictionType string
	Password        string
}
