// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auditlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-kit/internal/testutil"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{ActionCreate, ActionEdit, ActionDelete, ActionCreateRelatedObject, ActionSystemLog} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}

	actions := r.Actions()
	for i := 1; i < len(actions); i++ {
		assert.Less(t, actions[i-1].Name, actions[i].Name)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("shop.refund", "Refund", "Refunded"))
	a, ok := r.Lookup("shop.refund")
	require.True(t, ok)
	assert.Equal(t, "Refunded", a.Message)

	err := r.Register("shop.refund", "Refund", "Refunded")
	assert.ErrorIs(t, err, ErrDuplicateAction)

	var verr *ValidationError
	assert.True(t, errors.As(r.Register("", "x", "y"), &verr))
}

func TestService_CustomRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("shop.refund", "Refund", "Refunded"))

	svc := NewService(testutil.TestDB(t), WithRegistry(r), WithClock(testutil.FrozenClock(time.Now().UTC())))
	ctx := context.Background()

	_, err := svc.LogAction(ctx, homePage, "shop.refund")
	require.NoError(t, err)

	_, err = svc.LogAction(ctx, homePage, ActionEdit)
	assert.ErrorIs(t, err, ErrUnknownAction)
}
