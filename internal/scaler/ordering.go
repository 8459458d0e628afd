package scaler

import (
	"sort"
	"strings"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// Direction is the order in which a resource's deployments are walked.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// DirectionFor picks the ordering used for a resource in the given bucket.
// Calendar-gated resources outside morning and night are not ordered.
func DirectionFor(r models.ManagedResource, bucket models.TimeBucket) Direction {
	switch {
	case r.IsAlwaysOn():
		return DirectionUp
	case bucket == models.BucketMorning:
		return DirectionUp
	case bucket == models.BucketNight:
		return DirectionDown
	default:
		return DirectionNone
	}
}

// Workers go down before the web deployment, and come up after it.
func scaleDownKey(name string) int {
	switch {
	case strings.Contains(name, "sidekiq"):
		return 0
	case strings.Contains(name, "staging"):
		return 1
	default:
		return len(name)
	}
}

func scaleUpKey(name string) int {
	switch {
	case strings.Contains(name, "staging") && !strings.Contains(name, "sidekiq"):
		return 0
	case strings.Contains(name, "sidekiq"):
		return 1
	default:
		return len(name)
	}
}

// Order returns the Deployment kinds of resources sorted for the direction.
// The input slice is left untouched and equal keys keep their input order.
func Order(resources []models.Deployment, dir Direction) []models.Deployment {
	out := make([]models.Deployment, 0, len(resources))
	for _, d := range resources {
		if d.Kind == models.KindDeployment {
			out = append(out, d)
		}
	}

	var key func(string) int
	switch dir {
	case DirectionUp:
		key = scaleUpKey
	case DirectionDown:
		key = scaleDownKey
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i].Name) < key(out[j].Name)
	})
	return out
}
