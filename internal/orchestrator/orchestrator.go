// Package orchestrator runs one scaling evaluation over the whole fleet.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/staging-autoscaler/internal/argocd"
	"github.com/OldStager01/staging-autoscaler/internal/calendar"
	"github.com/OldStager01/staging-autoscaler/internal/decision"
	"github.com/OldStager01/staging-autoscaler/internal/events"
	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/internal/notify"
	"github.com/OldStager01/staging-autoscaler/internal/rds"
	"github.com/OldStager01/staging-autoscaler/internal/scaler"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

var ErrPhaseFailed = errors.New("scaling phase failed")

// ApplicationClient reads and updates applications in the delivery
// controller.
type ApplicationClient interface {
	scaler.ReplicaClient
	GetApplication(ctx context.Context, name string) (*argocd.Application, error)
	UpdateApplication(ctx context.Context, app *argocd.Application) error
	GetReplicas(ctx context.Context, app string, d models.Deployment) (int64, error)
}

// DatabaseClient manages the power state of database instances.
type DatabaseClient interface {
	scaler.InstanceClient
	ListAll(ctx context.Context) ([]string, error)
}

// Config is assembled once at startup.
type Config struct {
	Calendar  calendar.Config
	Servers   []models.ManagedResource
	Databases []models.ManagedResource
	Now       func() time.Time
}

type Orchestrator struct {
	config    Config
	apps      ApplicationClient
	databases DatabaseClient
	notifier  notify.Notifier
	publisher *events.Publisher
	pods      *scaler.PodScaler
	instances *scaler.DatabaseScaler
}

// New creates an orchestrator. A nil databases client disables the database
// phase.
func New(cfg Config, apps ApplicationClient, databases DatabaseClient, notifier notify.Notifier, bus *events.EventBus) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}

	o := &Orchestrator{
		config:    cfg,
		apps:      apps,
		databases: databases,
		notifier:  notifier,
		publisher: events.NewPublisher(bus),
		pods:      scaler.NewPodScaler(apps),
	}
	if databases != nil {
		o.instances = scaler.NewDatabaseScaler(databases)
	}
	return o
}

// run is the state of a single evaluation, threaded through every phase.
type run struct {
	state     models.CalendarState
	result    *models.RunResult
	publisher *events.Publisher
	targets   []target
}

// target is a server whose application was fetched this run.
type target struct {
	resource models.ManagedResource
	app      *argocd.Application
}

// Run evaluates every resource once. The returned result is valid even when
// an error is returned, unless the calendar state could not be resolved.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunResult, error) {
	state, err := calendar.Resolve(o.config.Now(), o.config.Calendar)
	if err != nil {
		return nil, err
	}

	r := &run{state: state, result: models.NewRunResult(state)}
	r.publisher = o.publisher.WithRun(r.result.RunID, state)
	ctx = logger.WithRunID(ctx, r.result.RunID)

	logger.InfoCtxf(ctx, "Running autoscaler on %s, status %s", state.Day, state.Bucket)
	r.publisher.RunStarted(ctx)

	err = o.execute(ctx, r)
	r.publisher.RunFinished(ctx, r.result.StartedAt, err)
	return r.result, err
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	r.targets = o.fetchApplications(ctx, r)

	if err := o.syncPhase(ctx, r); err != nil {
		return fmt.Errorf("%w: failed to enable/disable autosync: %w", ErrPhaseFailed, err)
	}

	switch r.state.Bucket {
	case models.BucketNight:
		if err := o.podPhase(ctx, r); err != nil {
			return err
		}
		return o.databasePhase(ctx, r)
	case models.BucketMorning:
		if err := o.databasePhase(ctx, r); err != nil {
			return err
		}
		return o.podPhase(ctx, r)
	default:
		logger.WarnCtx(ctx, "Scaling will not run during working hour")
		return nil
	}
}

func (o *Orchestrator) fetchApplications(ctx context.Context, r *run) []target {
	targets := make([]target, 0, len(o.config.Servers))
	for _, res := range o.config.Servers {
		app, err := o.apps.GetApplication(ctx, res.Name)
		if err != nil {
			logger.ForResource(ctx, res.Name).Errorf("Error occurs when getting app status: %v", err)
			o.notifier.Fail(ctx, notify.CategoryServer, res.Name, err.Error())
			o.record(ctx, r, models.StepResult{
				Resource:  res.Name,
				Dimension: models.DimensionSync,
				Target:    res.Name,
				Action:    models.ActionNoOp,
				Status:    models.StepSkipped,
				Reason:    "application status unavailable",
				Err:       err,
			})
			continue
		}
		targets = append(targets, target{resource: res, app: app})
	}
	return targets
}

func (o *Orchestrator) syncPhase(ctx context.Context, r *run) error {
	for _, t := range r.targets {
		name := t.resource.Name
		log := logger.ForResource(ctx, name)

		enabled, err := t.app.AutoSyncEnabled()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		c := models.SyncCriteria(enabled)
		action := decideAndPublish(ctx, r, t.resource, models.DimensionSync, name, c)
		step := models.StepResult{
			Resource:  name,
			Dimension: models.DimensionSync,
			Target:    name,
			Action:    action,
			Status:    models.StepSuccess,
		}

		if action == models.ActionNoOp {
			o.logNoOp(ctx, r.state, noOp{
				dim:      models.DimensionSync,
				resource: t.resource,
				target:   name,
				observed: syncLabel(enabled),
				criteria: c,
			})
			o.record(ctx, r, step)
			continue
		}

		t.app.SetAutoSync(action == models.ActionScaleUp)
		if err := o.apps.UpdateApplication(ctx, t.app); err != nil {
			log.Errorf("Error occurs when updating app: %v", err)
			o.notifier.Fail(ctx, notify.CategorySync, name, err.Error())
			step.Status = models.StepFailed
			step.Err = err
		} else {
			log.Infof("Autosync %s for %s", syncLabel(action == models.ActionScaleUp), name)
		}
		o.record(ctx, r, step)
	}
	return nil
}

func (o *Orchestrator) podPhase(ctx context.Context, r *run) error {
	for _, t := range r.targets {
		if err := o.scalePods(ctx, r, t); err != nil {
			return fmt.Errorf("%w: server pods scaling: %w", ErrPhaseFailed, err)
		}
	}
	logger.InfoCtx(ctx, "Server pods scaling completed")
	return nil
}

func (o *Orchestrator) scalePods(ctx context.Context, r *run, t target) error {
	name := t.resource.Name
	log := logger.ForResource(ctx, name)
	log.Debugf("Running scaling for %s", name)

	deployments, err := t.app.Resources()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	dir := scaler.DirectionFor(t.resource, r.state.Bucket)
	for _, d := range scaler.Order(deployments, dir) {
		log.Debugf("Scaling resource for %s", d.Name)

		replicas, err := o.apps.GetReplicas(ctx, name, d)
		if err != nil {
			if errors.Is(err, models.ErrUnexpectedShape) {
				return fmt.Errorf("%s/%s: %w", name, d.Name, err)
			}
			log.Errorf("Error occurs when getting app resources: %v", err)
			o.notifier.Fail(ctx, notify.CategoryServer, d.Name, err.Error())
			o.record(ctx, r, models.StepResult{
				Resource:  name,
				Dimension: models.DimensionPods,
				Target:    d.Name,
				Action:    models.ActionNoOp,
				Status:    models.StepSkipped,
				Reason:    "replica count unavailable",
				Err:       err,
			})
			continue
		}

		c := models.ReplicaCriteria(replicas)
		action := decideAndPublish(ctx, r, t.resource, models.DimensionPods, d.Name, c)
		step := models.StepResult{
			Resource:  name,
			Dimension: models.DimensionPods,
			Target:    d.Name,
			Action:    action,
			Status:    models.StepSuccess,
		}

		switch action {
		case models.ActionScaleUp:
			_, err = o.pods.ScaleUp(ctx, name, d, replicas)
		case models.ActionScaleDown:
			_, err = o.pods.ScaleDown(ctx, name, d, replicas)
		default:
			o.logNoOp(ctx, r.state, noOp{
				dim:      models.DimensionPods,
				resource: t.resource,
				target:   d.Name,
				observed: fmt.Sprint(replicas),
				criteria: c,
			})
		}

		if err != nil {
			log.Errorf("Error occurs when scaling %s: %v", d.Name, err)
			o.notifier.Fail(ctx, notify.CategoryServer, name, err.Error())
			step.Status = models.StepFailed
			step.Err = err
		}
		o.record(ctx, r, step)
	}
	return nil
}

func (o *Orchestrator) databasePhase(ctx context.Context, r *run) error {
	if o.databases == nil {
		logger.InfoCtx(ctx, "Database scaling is disabled for this run")
		return nil
	}

	ids, err := o.databases.ListAll(ctx)
	if err != nil {
		o.notifier.Fail(ctx, notify.CategoryDatabase, "database instances", err.Error())
		return fmt.Errorf("%w: database scaling: %w", ErrPhaseFailed, err)
	}

	resources := make([]models.ManagedResource, 0, len(r.targets)+len(o.config.Databases))
	for _, t := range r.targets {
		resources = append(resources, t.resource)
	}
	resources = append(resources, o.config.Databases...)

	for _, res := range resources {
		o.scaleDatabase(ctx, r, res, ids)
	}
	logger.InfoCtx(ctx, "Database scaling completed")
	return nil
}

func (o *Orchestrator) scaleDatabase(ctx context.Context, r *run, res models.ManagedResource, ids []string) {
	name := res.Name
	log := logger.ForResource(ctx, name)
	log.Infof("Beginning database scaling for %s", name)

	key, explicit := res.DatabaseKey()
	step := models.StepResult{
		Resource:  name,
		Dimension: models.DimensionDatabase,
		Target:    key,
		Action:    models.ActionNoOp,
		Status:    models.StepSkipped,
	}

	if r.result.PodScalingFailed(name) {
		log.Debugf("Skipping database scaling for %s as pod autoscaling failed for this server", name)
		step.Reason = "pod scaling failed"
		o.record(ctx, r, step)
		return
	}

	id, ok := rds.ResolveInstance(key, explicit, ids)
	if !ok {
		const msg = "Database scaling not executed due to database instance not found"
		log.Info(msg)
		o.notifier.Warn(ctx, notify.CategoryDatabase, name, msg)
		step.Reason = "database instance not found"
		o.record(ctx, r, step)
		return
	}
	step.Target = id
	log.Debugf("Database exists, database identifier: %s", id)

	status, err := o.databases.Describe(ctx, id)
	if err != nil {
		log.Errorf("Error occurs when checking database status: %v", err)
		o.notifier.Warn(ctx, notify.CategoryDatabase, name, err.Error())
		step.Reason = "database status unavailable"
		step.Err = err
		o.record(ctx, r, step)
		return
	}

	c := models.DatabaseCriteria(status)
	action := decideAndPublish(ctx, r, res, models.DimensionDatabase, id, c)
	step.Action = action
	step.Status = models.StepSuccess

	switch action {
	case models.ActionScaleUp:
		log.Infof("%s: Starting database instance", id)
		_, err = o.instances.ScaleUp(ctx, id)
	case models.ActionScaleDown:
		log.Infof("%s: Proceeding with database shutdown", id)
		_, err = o.instances.ScaleDown(ctx, id)
	default:
		o.logNoOp(ctx, r.state, noOp{
			dim:      models.DimensionDatabase,
			resource: res,
			target:   id,
			observed: string(status),
			criteria: c,
		})
	}

	switch {
	case errors.Is(err, scaler.ErrUnexpectedStatus):
		log.Warn(err.Error())
		o.notifier.Warn(ctx, notify.CategoryDatabase, name, err.Error())
		step.Status = models.StepSkipped
		step.Reason = "database status changed before acting"
		step.Err = err
	case err != nil:
		log.Errorf("Error occurs when scaling database: %v", err)
		o.notifier.Warn(ctx, notify.CategoryDatabase, name, err.Error())
		step.Status = models.StepFailed
		step.Err = err
	}
	o.record(ctx, r, step)
}

func decideAndPublish(ctx context.Context, r *run, res models.ManagedResource, dim models.Dimension, target string, c models.ScalingCriteria) models.ScalingAction {
	action := decision.Decide(res, r.state, c)
	r.publisher.DecisionMade(ctx, res.Name, dim, target, action)
	return action
}

func (o *Orchestrator) record(ctx context.Context, r *run, step models.StepResult) {
	r.result.Record(step)
	r.publisher.StepRecorded(ctx, step)
}

func (o *Orchestrator) logNoOp(ctx context.Context, state models.CalendarState, n noOp) {
	msg, warn := n.message(state)
	log := logger.ForResource(ctx, n.resource.Name)
	if warn {
		log.Warn(msg)
		return
	}
	log.Debug(msg)
}

func syncLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
