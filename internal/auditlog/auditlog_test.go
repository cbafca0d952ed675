// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auditlog

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-kit/internal/testutil"
)

type testObject struct {
	kind  string
	id    int64
	title string
}

func (o testObject) ContentType() string { return o.kind }
func (o testObject) ObjectID() string    { return strconv.FormatInt(o.id, 10) }
func (o testObject) ObjectLabel() string { return o.title }

var (
	homePage   = testObject{kind: "ocms.page", id: 1, title: "Home"}
	simplePage = testObject{kind: "testapp.simplepage", id: 2, title: "Simple page"}
)

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	return NewService(testutil.TestDB(t),
		WithClock(testutil.FrozenClock(now)),
		WithLogger(testutil.TestLoggerSilent()),
	)
}

func TestLogAction(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	svc := newTestService(t, now)

	entry, err := svc.LogAction(context.Background(), homePage, ActionEdit, WithUser(42))
	require.NoError(t, err)

	assert.Equal(t, homePage.ContentType(), entry.Object.Type)
	assert.Equal(t, "1", entry.Object.ID)
	assert.Equal(t, "Home", entry.Object.Label)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, int64(42), *entry.UserID)
	assert.True(t, now.Equal(entry.Timestamp), "timestamp %v, want %v", entry.Timestamp, now)
	assert.Nil(t, entry.Related)
	assert.NotEmpty(t, entry.UUID)
	assert.Empty(t, entry.Data)
}

func TestLogAction_RelatedObjects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	related := []struct {
		action string
		obj    Object
	}{
		{ActionCreateRelatedObject, testObject{kind: "ocms.task", id: 1, title: "New Task"}},
		{ActionDeleteRelatedObject, testObject{kind: "ocms.task", id: 1, title: "New Task"}},
		{ActionChangeViewRestriction, testObject{kind: "ocms.pageviewrestriction", id: 4, title: "Password"}},
		{ActionEditRelatedObject, testObject{kind: "testapp.fullfeaturedsnippet", id: 9, title: "New Snippet"}},
		{ActionChangeUser, testObject{kind: "auth.user", id: 5, title: "testuser"}},
	}

	for _, tt := range related {
		t.Run(tt.action, func(t *testing.T) {
			entry, err := svc.LogAction(ctx, homePage, tt.action, WithUser(1), WithRelatedObject(tt.obj))
			require.NoError(t, err)

			assert.Equal(t, homePage.ContentType(), entry.Object.Type)
			require.NotNil(t, entry.UserID)
			assert.Equal(t, int64(1), *entry.UserID)
			assert.True(t, now.Equal(entry.Timestamp))
			require.NotNil(t, entry.Related)
			assert.Equal(t, Ref(tt.obj), *entry.Related)
		})
	}
}

func TestLogAction_LogEntryAsRelatedObject(t *testing.T) {
	svc := newTestService(t, time.Now().UTC())
	ctx := context.Background()

	first, err := svc.LogAction(ctx, simplePage, ActionEdit)
	require.NoError(t, err)

	ref := ObjectRef{Type: "ocms.logentry", ID: strconv.FormatInt(first.ID, 10), Label: first.Action}
	second, err := svc.LogAction(ctx, homePage, ActionDeleteRelatedObject, WithRelatedObject(ref))
	require.NoError(t, err)

	entries, err := svc.ForRelatedObject(ctx, ref)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ID)
}

func TestLogAction_Validation(t *testing.T) {
	svc := newTestService(t, time.Now().UTC())
	ctx := context.Background()

	_, err := svc.LogAction(ctx, homePage, "", WithUser(1))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "action", verr.Field)

	_, err = svc.LogAction(ctx, nil, ActionEdit)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "object", verr.Field)

	var missing *testObject
	_, err = svc.LogAction(ctx, missing, ActionEdit)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "object", verr.Field)

	_, err = svc.LogAction(ctx, homePage, ActionEditRelatedObject, WithRelatedObject(missing))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "related", verr.Field)

	_, err = svc.LogAction(ctx, homePage, "ocms.unheard_of")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestLogAction_FlagsDataAndUUID(t *testing.T) {
	svc := newTestService(t, time.Now().UTC())
	ctx := context.Background()

	group := uuid.New()
	entry, err := svc.LogAction(ctx, homePage, ActionDelete,
		WithDeleted(),
		WithContentChanged(),
		WithUUID(group),
		WithData(map[string]any{"title": "Home", "revision": 3}),
	)
	require.NoError(t, err)

	got, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.True(t, got.ContentChanged)
	assert.Equal(t, group.String(), got.UUID)
	assert.Equal(t, "Home", got.Data["title"])
	assert.Equal(t, float64(3), got.Data["revision"])
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, time.Now().UTC())

	_, err := svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestQueries(t *testing.T) {
	svc := newTestService(t, time.Now().UTC())
	ctx := context.Background()

	_, err := svc.LogAction(ctx, homePage, ActionEdit)
	require.NoError(t, err)
	_, err = svc.LogAction(ctx, simplePage, ActionEdit, WithUser(7))
	require.NoError(t, err)
	_, err = svc.LogAction(ctx, simplePage, ActionPublish, WithUser(7))
	require.NoError(t, err)

	byModel, err := svc.ForModel(ctx, simplePage.ContentType())
	require.NoError(t, err)
	assert.Len(t, byModel, 2)

	byInstance, err := svc.ForInstance(ctx, simplePage)
	require.NoError(t, err)
	assert.Equal(t, byModel, byInstance)

	byUser, err := svc.ForUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, ActionPublish, byUser[0].Action, "newest first")

	none, err := svc.ForUser(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, none)

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestDeleteOlderThan(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	old := NewService(db, WithClock(testutil.FrozenClock(now.Add(-100*24*time.Hour))))
	_, err := old.LogAction(ctx, homePage, ActionEdit)
	require.NoError(t, err)

	svc := NewService(db, WithClock(testutil.FrozenClock(now)))
	_, err = svc.LogAction(ctx, homePage, ActionEdit)
	require.NoError(t, err)

	n, err := svc.DeleteOlderThan(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := svc.ForInstance(ctx, homePage)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestMessage(t *testing.T) {
	svc := NewService(testutil.TestMemoryDB(t))

	assert.Equal(t, "Edited", svc.Message(Entry{Action: ActionEdit}))
	assert.Equal(t, "custom.action", svc.Message(Entry{Action: "custom.action"}))
}

func TestMemoryDBBackend(t *testing.T) {
	svc := NewService(testutil.TestMemoryDB(t), WithLogger(testutil.TestLoggerSilent()))
	ctx := context.Background()

	entry, err := svc.LogAction(ctx, homePage, ActionCreate, WithUser(3))
	require.NoError(t, err)

	got, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Object, got.Object)
}
