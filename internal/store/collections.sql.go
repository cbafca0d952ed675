// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const collectionColumns = `id, path, depth, numchild, name`

func scanCollection(row interface{ Scan(...any) error }) (Collection, error) {
	var i Collection
	err := row.Scan(&i.ID, &i.Path, &i.Depth, &i.Numchild, &i.Name)
	return i, err
}

func (q *Queries) listCollections(ctx context.Context, query string, args ...any) ([]Collection, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Collection
	for rows.Next() {
		i, err := scanCollection(rows)
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

const getCollection = `SELECT ` + collectionColumns + ` FROM collections WHERE id = ?`

func (q *Queries) GetCollection(ctx context.Context, id int64) (Collection, error) {
	return scanCollection(q.db.QueryRowContext(ctx, getCollection, id))
}

const getCollectionByPath = `SELECT ` + collectionColumns + ` FROM collections WHERE path = ?`

func (q *Queries) GetCollectionByPath(ctx context.Context, path string) (Collection, error) {
	return scanCollection(q.db.QueryRowContext(ctx, getCollectionByPath, path))
}

const getFirstRootCollection = `SELECT ` + collectionColumns + ` FROM collections
WHERE depth = 1
ORDER BY path
LIMIT 1`

func (q *Queries) GetFirstRootCollection(ctx context.Context) (Collection, error) {
	return scanCollection(q.db.QueryRowContext(ctx, getFirstRootCollection))
}

const listCollections = `SELECT ` + collectionColumns + ` FROM collections ORDER BY path`

func (q *Queries) ListCollections(ctx context.Context) ([]Collection, error) {
	return q.listCollections(ctx, listCollections)
}

const listCollectionsUnderPrefix = `SELECT ` + collectionColumns + ` FROM collections
WHERE substr(path, 1, ?) = ? AND depth BETWEEN ? AND ?
ORDER BY path`

// ListCollectionsUnderPrefixParams selects nodes whose path starts with
// Prefix and whose depth lies in [MinDepth, MaxDepth].
type ListCollectionsUnderPrefixParams struct {
	Prefix   string
	MinDepth int64
	MaxDepth int64
}

func (q *Queries) ListCollectionsUnderPrefix(ctx context.Context, arg ListCollectionsUnderPrefixParams) ([]Collection, error) {
	return q.listCollections(ctx, listCollectionsUnderPrefix,
		len(arg.Prefix), arg.Prefix, arg.MinDepth, arg.MaxDepth)
}

const createCollection = `INSERT INTO collections (path, depth, numchild, name) VALUES (?, ?, 0, ?)`

type CreateCollectionParams struct {
	Path  string
	Depth int64
	Name  string
}

func (q *Queries) CreateCollection(ctx context.Context, arg CreateCollectionParams) (Collection, error) {
	result, err := q.db.ExecContext(ctx, createCollection, arg.Path, arg.Depth, arg.Name)
	if err != nil {
		return Collection{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Collection{}, err
	}
	return q.GetCollection(ctx, id)
}

const moveCollectionSubtree = `UPDATE collections
SET path = ? || substr(path, ?)
WHERE substr(path, 1, ?) = ?`

// MoveCollectionSubtreeParams rewrites the OldPrefix of every path in a
// subtree to NewPrefix. Both prefixes must have the same length.
type MoveCollectionSubtreeParams struct {
	NewPrefix string
	OldPrefix string
}

func (q *Queries) MoveCollectionSubtree(ctx context.Context, arg MoveCollectionSubtreeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, moveCollectionSubtree,
		arg.NewPrefix, len(arg.OldPrefix)+1, len(arg.OldPrefix), arg.OldPrefix)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const addCollectionNumchild = `UPDATE collections SET numchild = numchild + ? WHERE id = ?`

type AddCollectionNumchildParams struct {
	Delta int64
	ID    int64
}

func (q *Queries) AddCollectionNumchild(ctx context.Context, arg AddCollectionNumchildParams) error {
	_, err := q.db.ExecContext(ctx, addCollectionNumchild, arg.Delta, arg.ID)
	return err
}

const deleteCollection = `DELETE FROM collections WHERE id = ?`

func (q *Queries) DeleteCollection(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCollection, id)
	return err
}

const createCollectionMember = `INSERT INTO collection_members (collection_id, content_type, object_id, label, created_at)
VALUES (?, ?, ?, ?, ?)`

type CreateCollectionMemberParams struct {
	CollectionID int64
	ContentType  string
	ObjectID     string
	Label        string
	CreatedAt    time.Time
}

func (q *Queries) CreateCollectionMember(ctx context.Context, arg CreateCollectionMemberParams) (CollectionMember, error) {
	result, err := q.db.ExecContext(ctx, createCollectionMember,
		arg.CollectionID, arg.ContentType, arg.ObjectID, arg.Label, arg.CreatedAt)
	if err != nil {
		return CollectionMember{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return CollectionMember{}, err
	}
	var i CollectionMember
	err = q.db.QueryRowContext(ctx,
		`SELECT id, collection_id, content_type, object_id, label, created_at FROM collection_members WHERE id = ?`, id,
	).Scan(&i.ID, &i.CollectionID, &i.ContentType, &i.ObjectID, &i.Label, &i.CreatedAt)
	return i, err
}

const listCollectionMembers = `SELECT id, collection_id, content_type, object_id, label, created_at
FROM collection_members
WHERE collection_id = ?
ORDER BY id`

func (q *Queries) ListCollectionMembers(ctx context.Context, collectionID int64) ([]CollectionMember, error) {
	rows, err := q.db.QueryContext(ctx, listCollectionMembers, collectionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CollectionMember
	for rows.Next() {
		var i CollectionMember
		if err := rows.Scan(&i.ID, &i.CollectionID, &i.ContentType, &i.ObjectID, &i.Label, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCollectionMembers = `SELECT COUNT(*) FROM collection_members WHERE collection_id = ?`

func (q *Queries) CountCollectionMembers(ctx context.Context, collectionID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCollectionMembers, collectionID).Scan(&count)
	return count, err
}
