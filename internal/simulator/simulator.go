// Package simulator rehearses a run against the live fleet. Reads reach the
// real clients; writes are answered locally and tracked so later reads in
// the same run observe them.
package simulator

import (
	"context"
	"fmt"

	"github.com/OldStager01/staging-autoscaler/internal/argocd"
	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

type ApplicationClient interface {
	GetApplication(ctx context.Context, name string) (*argocd.Application, error)
	UpdateApplication(ctx context.Context, app *argocd.Application) error
	GetReplicas(ctx context.Context, app string, d models.Deployment) (int64, error)
	PatchReplicas(ctx context.Context, app string, d models.Deployment, replicas int64) error
}

type DatabaseClient interface {
	Describe(ctx context.Context, id string) (models.DatabaseStatus, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]string, error)
}

// Change is a write that would have been applied.
type Change struct {
	Dimension models.Dimension `json:"dimension" yaml:"dimension"`
	Target    string           `json:"target" yaml:"target"`
	From      string           `json:"from" yaml:"from"`
	To        string           `json:"to" yaml:"to"`
}

// Fleet holds the simulated state of one run.
type Fleet struct {
	autoSync  map[string]bool
	replicas  map[string]int64
	databases map[string]models.DatabaseStatus
	changes   []Change
}

func NewFleet() *Fleet {
	return &Fleet{
		autoSync:  make(map[string]bool),
		replicas:  make(map[string]int64),
		databases: make(map[string]models.DatabaseStatus),
	}
}

// Changes lists the simulated writes in the order they were made.
func (f *Fleet) Changes() []Change {
	out := make([]Change, len(f.changes))
	copy(out, f.changes)
	return out
}

func (f *Fleet) record(c Change) {
	f.changes = append(f.changes, c)
	logger.WithFields(map[string]interface{}{
		"dimension": c.Dimension,
		"target":    c.Target,
	}).Infof("[dry-run] %s would change from %s to %s", c.Target, c.From, c.To)
}

// Applications wraps next so that sync policy and replica writes only
// change the simulated fleet.
func (f *Fleet) Applications(next ApplicationClient) ApplicationClient {
	return &applications{fleet: f, next: next}
}

// Databases wraps next so that start and stop only change the simulated
// fleet.
func (f *Fleet) Databases(next DatabaseClient) DatabaseClient {
	return &databases{fleet: f, next: next}
}

type applications struct {
	fleet *Fleet
	next  ApplicationClient
}

func (a *applications) GetApplication(ctx context.Context, name string) (*argocd.Application, error) {
	app, err := a.next.GetApplication(ctx, name)
	if err != nil {
		return nil, err
	}
	if enabled, ok := a.fleet.autoSync[name]; ok {
		app.SetAutoSync(enabled)
	}
	return app, nil
}

func (a *applications) UpdateApplication(ctx context.Context, app *argocd.Application) error {
	enabled, err := app.AutoSyncEnabled()
	if err != nil {
		return err
	}

	from := "unknown"
	if live, err := a.next.GetApplication(ctx, app.Name()); err == nil {
		if was, err := live.AutoSyncEnabled(); err == nil {
			from = syncState(was)
		}
	}
	if was, ok := a.fleet.autoSync[app.Name()]; ok {
		from = syncState(was)
	}

	a.fleet.autoSync[app.Name()] = enabled
	a.fleet.record(Change{
		Dimension: models.DimensionSync,
		Target:    app.Name(),
		From:      from,
		To:        syncState(enabled),
	})
	return nil
}

func (a *applications) GetReplicas(ctx context.Context, app string, d models.Deployment) (int64, error) {
	if n, ok := a.fleet.replicas[replicaKey(app, d)]; ok {
		return n, nil
	}
	return a.next.GetReplicas(ctx, app, d)
}

func (a *applications) PatchReplicas(ctx context.Context, app string, d models.Deployment, replicas int64) error {
	current, err := a.GetReplicas(ctx, app, d)
	if err != nil {
		return err
	}

	a.fleet.replicas[replicaKey(app, d)] = replicas
	a.fleet.record(Change{
		Dimension: models.DimensionPods,
		Target:    replicaKey(app, d),
		From:      fmt.Sprint(current),
		To:        fmt.Sprint(replicas),
	})
	return nil
}

type databases struct {
	fleet *Fleet
	next  DatabaseClient
}

func (d *databases) Describe(ctx context.Context, id string) (models.DatabaseStatus, error) {
	if status, ok := d.fleet.databases[id]; ok {
		return status, nil
	}
	return d.next.Describe(ctx, id)
}

func (d *databases) Start(ctx context.Context, id string) error {
	return d.power(ctx, id, models.DatabaseAvailable)
}

func (d *databases) Stop(ctx context.Context, id string) error {
	return d.power(ctx, id, models.DatabaseStopped)
}

func (d *databases) power(ctx context.Context, id string, to models.DatabaseStatus) error {
	from, err := d.Describe(ctx, id)
	if err != nil {
		return err
	}

	d.fleet.databases[id] = to
	d.fleet.record(Change{
		Dimension: models.DimensionDatabase,
		Target:    id,
		From:      string(from),
		To:        string(to),
	})
	return nil
}

func (d *databases) ListAll(ctx context.Context) ([]string, error) {
	return d.next.ListAll(ctx)
}

func replicaKey(app string, d models.Deployment) string {
	return app + "/" + d.Name
}

func syncState(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
