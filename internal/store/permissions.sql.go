// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const createGroup = `INSERT INTO auth_groups (name) VALUES (?)`

func (q *Queries) CreateGroup(ctx context.Context, name string) (AuthGroup, error) {
	result, err := q.db.ExecContext(ctx, createGroup, name)
	if err != nil {
		return AuthGroup{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return AuthGroup{}, err
	}
	return AuthGroup{ID: id, Name: name}, nil
}

const getGroupByName = `SELECT id, name FROM auth_groups WHERE name = ?`

func (q *Queries) GetGroupByName(ctx context.Context, name string) (AuthGroup, error) {
	var i AuthGroup
	err := q.db.QueryRowContext(ctx, getGroupByName, name).Scan(&i.ID, &i.Name)
	return i, err
}

const createPermission = `INSERT INTO auth_permissions (codename, name) VALUES (?, ?)`

type CreatePermissionParams struct {
	Codename string
	Name     string
}

func (q *Queries) CreatePermission(ctx context.Context, arg CreatePermissionParams) (AuthPermission, error) {
	result, err := q.db.ExecContext(ctx, createPermission, arg.Codename, arg.Name)
	if err != nil {
		return AuthPermission{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return AuthPermission{}, err
	}
	return AuthPermission{ID: id, Codename: arg.Codename, Name: arg.Name}, nil
}

const getPermissionByCodename = `SELECT id, codename, name FROM auth_permissions WHERE codename = ?`

func (q *Queries) GetPermissionByCodename(ctx context.Context, codename string) (AuthPermission, error) {
	var i AuthPermission
	err := q.db.QueryRowContext(ctx, getPermissionByCodename, codename).Scan(&i.ID, &i.Codename, &i.Name)
	return i, err
}

const createGroupCollectionPermission = `INSERT INTO group_collection_permissions (group_id, collection_id, permission_id)
VALUES (?, ?, ?)`

type CreateGroupCollectionPermissionParams struct {
	GroupID      int64
	CollectionID int64
	PermissionID int64
}

func (q *Queries) CreateGroupCollectionPermission(ctx context.Context, arg CreateGroupCollectionPermissionParams) (GroupCollectionPermission, error) {
	result, err := q.db.ExecContext(ctx, createGroupCollectionPermission, arg.GroupID, arg.CollectionID, arg.PermissionID)
	if err != nil {
		return GroupCollectionPermission{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return GroupCollectionPermission{}, err
	}
	return GroupCollectionPermission{
		ID:           id,
		GroupID:      arg.GroupID,
		CollectionID: arg.CollectionID,
		PermissionID: arg.PermissionID,
	}, nil
}

const deleteGroupCollectionPermission = `DELETE FROM group_collection_permissions WHERE id = ?`

func (q *Queries) DeleteGroupCollectionPermission(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteGroupCollectionPermission, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listGroupCollectionPermissions = `SELECT gcp.id, gcp.group_id, gcp.collection_id, gcp.permission_id,
	g.name, c.path, p.codename
FROM group_collection_permissions gcp
JOIN auth_groups g ON g.id = gcp.group_id
JOIN collections c ON c.id = gcp.collection_id
JOIN auth_permissions p ON p.id = gcp.permission_id
WHERE gcp.collection_id = ?
ORDER BY g.name, p.codename`

type ListGroupCollectionPermissionsRow struct {
	ID                 int64
	GroupID            int64
	CollectionID       int64
	PermissionID       int64
	GroupName          string
	CollectionPath     string
	PermissionCodename string
}

func (q *Queries) ListGroupCollectionPermissions(ctx context.Context, collectionID int64) ([]ListGroupCollectionPermissionsRow, error) {
	rows, err := q.db.QueryContext(ctx, listGroupCollectionPermissions, collectionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ListGroupCollectionPermissionsRow
	for rows.Next() {
		var i ListGroupCollectionPermissionsRow
		if err := rows.Scan(
			&i.ID,
			&i.GroupID,
			&i.CollectionID,
			&i.PermissionID,
			&i.GroupName,
			&i.CollectionPath,
			&i.PermissionCodename,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countGroupCollectionPermissions = `SELECT COUNT(*) FROM group_collection_permissions`

func (q *Queries) CountGroupCollectionPermissions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countGroupCollectionPermissions).Scan(&count)
	return count, err
}

const createCollectionViewRestriction = `INSERT INTO collection_view_restrictions (collection_id, restriction_type, password)
VALUES (?, ?, ?)`

type CreateCollectionViewRestrictionParams struct {
	CollectionID    int64
	RestrictionType string
	Password        string
}

func (q *Queries) CreateCollectionViewRestriction(ctx context.Context, arg CreateCollectionViewRestrictionParams) (CollectionViewRestriction, error) {
	result, err := q.db.ExecContext(ctx, createCollectionViewRestriction, arg.CollectionID, arg.RestrictionType, arg.Password)
	if err != nil {
		return CollectionViewRestriction{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return CollectionViewRestriction{}, err
	}
	return CollectionViewRestriction{
		ID:              id,
		CollectionID:    arg.CollectionID,
		RestrictionType: arg.RestrictionType,
		Password:        arg.Password,
	}, nil
}

const addViewRestrictionGroup = `INSERT INTO collection_view_restriction_groups (restriction_id, group_id) VALUES (?, ?)`

type AddViewRestrictionGroupParams struct {
	RestrictionID int64
	GroupID       int64
}

func (q *Queries) AddViewRestrictionGroup(ctx context.Context, arg AddViewRestrictionGroupParams) error {
	_, err := q.db.ExecContext(ctx, addViewRestrictionGroup, arg.RestrictionID, arg.GroupID)
	return err
}

const listCollectionViewRestrictions = `SELECT id, collection_id, restriction_type, password
FROM collection_view_restrictions
WHERE collection_id = ?
ORDER BY id`

func (q *Queries) ListCollectionViewRestrictions(ctx context.Context, collectionID int64) ([]CollectionViewRestriction, error) {
	rows, err := q.db.QueryContext(ctx, listCollectionViewRestrictions, collectionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CollectionViewRestriction
	for rows.Next() {
		var i CollectionViewRestriction
		if err := rows.Scan(&i.ID, &i.CollectionID, &i.RestrictionType, &i.Password); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listViewRestrictionGroupIDs = `SELECT group_id FROM collection_view_restriction_groups
WHERE restriction_id = ?
ORDER BY group_id`

func (q *Queries) ListViewRestrictionGroupIDs(ctx context.Context, restrictionID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listViewRestrictionGroupIDs, restrictionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
