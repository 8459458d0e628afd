package simulator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/staging-autoscaler/internal/argocd"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// liveApps fails the test on any write.
type liveApps struct {
	t        *testing.T
	autoSync map[string]bool
	replicas map[string]int64
}

func (l *liveApps) GetApplication(_ context.Context, name string) (*argocd.Application, error) {
	enabled, ok := l.autoSync[name]
	if !ok {
		return nil, argocd.ErrNotFound
	}
	return argocd.NewApplication(name, enabled), nil
}

func (l *liveApps) UpdateApplication(context.Context, *argocd.Application) error {
	l.t.Fatal("live application updated during dry run")
	return nil
}

func (l *liveApps) GetReplicas(_ context.Context, app string, d models.Deployment) (int64, error) {
	return l.replicas[app+"/"+d.Name], nil
}

func (l *liveApps) PatchReplicas(context.Context, string, models.Deployment, int64) error {
	l.t.Fatal("live replicas patched during dry run")
	return nil
}

type liveDatabases struct {
	t      *testing.T
	status map[string]models.DatabaseStatus
}

func (l *liveDatabases) Describe(_ context.Context, id string) (models.DatabaseStatus, error) {
	s, ok := l.status[id]
	if !ok {
		return "", errors.New("not found")
	}
	return s, nil
}

func (l *liveDatabases) Start(context.Context, string) error {
	l.t.Fatal("live database started during dry run")
	return nil
}

func (l *liveDatabases) Stop(context.Context, string) error {
	l.t.Fatal("live database stopped during dry run")
	return nil
}

func (l *liveDatabases) ListAll(context.Context) ([]string, error) {
	ids := make([]string, 0, len(l.status))
	for id := range l.status {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestFleet_Applications(t *testing.T) {
	ctx := context.Background()
	fleet := NewFleet()
	apps := fleet.Applications(&liveApps{
		t:        t,
		autoSync: map[string]bool{"shop": true},
		replicas: map[string]int64{"shop/shop-web": 2},
	})
	web := models.Deployment{Kind: models.KindDeployment, Name: "shop-web"}

	app, err := apps.GetApplication(ctx, "shop")
	require.NoError(t, err)
	app.SetAutoSync(false)
	require.NoError(t, apps.UpdateApplication(ctx, app))

	again, err := apps.GetApplication(ctx, "shop")
	require.NoError(t, err)
	enabled, err := again.AutoSyncEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, apps.PatchReplicas(ctx, "shop", web, 0))
	replicas, err := apps.GetReplicas(ctx, "shop", web)
	require.NoError(t, err)
	assert.Zero(t, replicas)

	assert.Equal(t, []Change{
		{Dimension: models.DimensionSync, Target: "shop", From: "enabled", To: "disabled"},
		{Dimension: models.DimensionPods, Target: "shop/shop-web", From: "2", To: "0"},
	}, fleet.Changes())
}

func TestFleet_Databases(t *testing.T) {
	ctx := context.Background()
	fleet := NewFleet()
	dbs := fleet.Databases(&liveDatabases{
		t:      t,
		status: map[string]models.DatabaseStatus{"shop-db": models.DatabaseStopped},
	})

	require.NoError(t, dbs.Start(ctx, "shop-db"))
	status, err := dbs.Describe(ctx, "shop-db")
	require.NoError(t, err)
	assert.Equal(t, models.DatabaseAvailable, status)

	ids, err := dbs.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-db"}, ids)

	assert.Error(t, dbs.Stop(ctx, "missing-db"))
	assert.Equal(t, []Change{
		{Dimension: models.DimensionDatabase, Target: "shop-db", From: "stopped", To: "available"},
	}, fleet.Changes())
}

func TestFleet_ApplicationErrorsPassThrough(t *testing.T) {
	apps := NewFleet().Applications(&liveApps{t: t})

	_, err := apps.GetApplication(context.Background(), "ghost")
	assert.ErrorIs(t, err, argocd.ErrNotFound)
}
