package scaler

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

var (
	ErrScalingFailed    = errors.New("scaling operation failed")
	ErrUnexpectedStatus = errors.New("instance is not in a state that can be changed")
)

// ScaleResult contains the result of a scaling operation
type ScaleResult struct {
	Target  string
	Action  models.ScalingAction
	From    string
	To      string
	Applied bool
}

// ReplicaClient patches the replica count of a deployment of an application.
type ReplicaClient interface {
	PatchReplicas(ctx context.Context, app string, d models.Deployment, replicas int64) error
}

// InstanceClient drives the power state of a database instance.
type InstanceClient interface {
	Describe(ctx context.Context, id string) (models.DatabaseStatus, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
}

// PodScaler moves deployments between zero and one replica.
type PodScaler struct {
	client ReplicaClient
}

func NewPodScaler(client ReplicaClient) *PodScaler {
	return &PodScaler{client: client}
}

func (s *PodScaler) ScaleUp(ctx context.Context, app string, d models.Deployment, current int64) (*ScaleResult, error) {
	logger.ForResource(ctx, app).Debugf("Scaling up replicas from %d to 1 for %s", current, d.Name)
	return s.patch(ctx, app, d, models.ActionScaleUp, current, 1)
}

func (s *PodScaler) ScaleDown(ctx context.Context, app string, d models.Deployment, current int64) (*ScaleResult, error) {
	logger.ForResource(ctx, app).Debugf("Scaling down replicas from %d to 0 for %s", current, d.Name)
	return s.patch(ctx, app, d, models.ActionScaleDown, current, 0)
}

func (s *PodScaler) patch(ctx context.Context, app string, d models.Deployment, action models.ScalingAction, from, to int64) (*ScaleResult, error) {
	result := &ScaleResult{
		Target: d.Name,
		Action: action,
		From:   fmt.Sprint(from),
		To:     fmt.Sprint(to),
	}

	if err := s.client.PatchReplicas(ctx, app, d, to); err != nil {
		return result, fmt.Errorf("%w: %s/%s: %w", ErrScalingFailed, app, d.Name, err)
	}

	result.Applied = true
	logger.ForResource(ctx, app).Infof("Scaling is successful for %s", d.Name)
	return result, nil
}

// DatabaseScaler starts and stops database instances. The status is
// described again right before acting, so an instance that changed since the
// decision is left alone.
type DatabaseScaler struct {
	client InstanceClient
}

func NewDatabaseScaler(client InstanceClient) *DatabaseScaler {
	return &DatabaseScaler{client: client}
}

// ScaleUp starts a stopped instance.
func (s *DatabaseScaler) ScaleUp(ctx context.Context, id string) (*ScaleResult, error) {
	return s.transition(ctx, id, powerStart, s.client.Start)
}

// ScaleDown stops an available instance.
func (s *DatabaseScaler) ScaleDown(ctx context.Context, id string) (*ScaleResult, error) {
	return s.transition(ctx, id, powerStop, s.client.Stop)
}

type powerChange struct {
	action models.ScalingAction
	verb   string
	gerund string
	from   models.DatabaseStatus
	to     models.DatabaseStatus
}

var (
	powerStart = powerChange{models.ActionScaleUp, "start", "starting", models.DatabaseStopped, models.DatabaseAvailable}
	powerStop  = powerChange{models.ActionScaleDown, "stop", "stopping", models.DatabaseAvailable, models.DatabaseStopped}
)

func (s *DatabaseScaler) transition(ctx context.Context, id string, c powerChange, apply func(context.Context, string) error) (*ScaleResult, error) {
	status, err := s.client.Describe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: describe %s: %w", ErrScalingFailed, id, err)
	}

	result := &ScaleResult{Target: id, Action: c.action, From: string(status), To: string(c.to)}
	log := logger.ForResource(ctx, id)

	switch status {
	case c.from:
		if err := apply(ctx, id); err != nil {
			return result, fmt.Errorf("%w: %s %s: %w", ErrScalingFailed, c.verb, id, err)
		}
		result.Applied = true
		log.Infof("%s: Success in %s database instance", id, c.gerund)
		return result, nil
	case c.to:
		log.Debugf("%s: Database instance is already %s, %s database action not needed", id, status, c.verb)
		return result, nil
	default:
		return result, fmt.Errorf("%w: %s: Database instance status is '%s', %s database action not executed",
			ErrUnexpectedStatus, id, status, c.verb)
	}
}
