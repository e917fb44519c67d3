package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikit-semantics/internal/model"
)

func TestProfileRights(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewProfileService(db)

	require.NoError(t, db.Create(&model.User{Name: "tech", ProfileID: 4}).Error)
	require.NoError(t, svc.InitProfile(ctx))

	rights, err := svc.Rights(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, rights[model.RightNameAnswer])

	require.NoError(t, svc.CreateFirstAccess(ctx, 4))
	require.NoError(t, svc.Grant(ctx, 4, model.RightNameTicket, model.RightRead|model.RightReadAll))

	rights, err = svc.Rights(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, model.RightRead, rights[model.RightNameAnswer])
	assert.Equal(t, model.RightRead|model.RightUpdate, rights[model.RightNameConfig])
	assert.Equal(t, model.RightRead|model.RightReadAll, rights[model.RightNameTicket])

	var n int64
	db.Model(&model.ProfileRight{}).Where("profile_id = ?", 4).Count(&n)
	assert.Equal(t, int64(3), n, "grant updates in place")

	user, err := svc.FindUser(ctx, "tech")
	require.NoError(t, err)
	require.NotNil(t, user)
	missing, err := svc.FindUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnsureUserUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(newTestDB(t))

	first, err := svc.EnsureUser(ctx, "tech", 4, 1)
	require.NoError(t, err)
	second, err := svc.EnsureUser(ctx, "tech", 5, 2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	found, err := svc.FindUser(ctx, "tech")
	require.NoError(t, err)
	assert.Equal(t, uint(5), found.ProfileID)
	assert.Equal(t, uint(2), found.EntityID)
}
