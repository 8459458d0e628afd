package argocd

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// Application is an ArgoCD application object as returned by the API. The
// whole object is kept so that it can be written back unchanged apart from
// the sync policy.
type Application struct {
	obj *unstructured.Unstructured
}

// ParseApplication decodes an application payload. Integral numbers decode
// as int64.
func ParseApplication(data []byte) (*Application, error) {
	var obj map[string]interface{}
	if err := utiljson.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: empty application", ErrInvalidResponse)
	}
	return &Application{obj: &unstructured.Unstructured{Object: obj}}, nil
}

// NewApplication builds an application object with the fields the
// autoscaler reads.
func NewApplication(name string, autoSync bool, resources ...models.Deployment) *Application {
	items := make([]interface{}, len(resources))
	for i, r := range resources {
		items[i] = map[string]interface{}{
			"kind":      r.Kind,
			"name":      r.Name,
			"namespace": r.Namespace,
			"group":     r.Group,
			"version":   r.Version,
		}
	}

	app := &Application{obj: &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{"name": name},
		"spec":     map[string]interface{}{"syncPolicy": map[string]interface{}{}},
		"status":   map[string]interface{}{"resources": items},
	}}}
	app.SetAutoSync(autoSync)
	return app
}

func (a *Application) Name() string {
	return a.obj.GetName()
}

// Object returns the raw application object.
func (a *Application) Object() map[string]interface{} {
	return a.obj.Object
}

// AutoSyncEnabled reports whether spec.syncPolicy.automated is set. An
// application without a spec is an unexpected shape; a missing sync policy
// means auto-sync is off.
func (a *Application) AutoSyncEnabled() (bool, error) {
	if _, found, err := unstructured.NestedMap(a.obj.Object, "spec"); err != nil || !found {
		return false, fmt.Errorf("%w: application %q has no spec", models.ErrUnexpectedShape, a.Name())
	}

	policy, found, err := unstructured.NestedFieldNoCopy(a.obj.Object, "spec", "syncPolicy")
	if err != nil {
		return false, fmt.Errorf("%w: application %q: %v", models.ErrUnexpectedShape, a.Name(), err)
	}
	if !found || policy == nil {
		return false, nil
	}

	m, ok := policy.(map[string]interface{})
	if !ok {
		return false, fmt.Errorf("%w: application %q has a %T sync policy", models.ErrUnexpectedShape, a.Name(), policy)
	}
	_, automated := m["automated"]
	return automated, nil
}

// SetAutoSync rewrites spec.syncPolicy. Enabling turns on automated sync
// without pruning or self healing; disabling clears the policy.
func (a *Application) SetAutoSync(enabled bool) {
	policy := map[string]interface{}{}
	if enabled {
		policy["automated"] = map[string]interface{}{
			"prune":    false,
			"selfHeal": false,
		}
	}
	_ = unstructured.SetNestedMap(a.obj.Object, policy, "spec", "syncPolicy")
}

// Resources lists status.resources. An application without a status is an
// unexpected shape.
func (a *Application) Resources() ([]models.Deployment, error) {
	if _, found, err := unstructured.NestedMap(a.obj.Object, "status"); err != nil || !found {
		return nil, fmt.Errorf("%w: application %q has no status", models.ErrUnexpectedShape, a.Name())
	}

	items, found, err := unstructured.NestedSlice(a.obj.Object, "status", "resources")
	if err != nil {
		return nil, fmt.Errorf("%w: application %q: %v", models.ErrUnexpectedShape, a.Name(), err)
	}
	if !found {
		return nil, nil
	}

	out := make([]models.Deployment, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: application %q resource %d is a %T", models.ErrUnexpectedShape, a.Name(), i, item)
		}
		out = append(out, models.Deployment{
			Kind:      stringField(m, "kind"),
			Name:      stringField(m, "name"),
			Namespace: stringField(m, "namespace"),
			Group:     stringField(m, "group"),
			Version:   stringField(m, "version"),
		})
	}
	return out, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _, _ := unstructured.NestedString(m, key)
	return s
}

// replicasFromManifest reads spec.replicas from a live manifest.
func replicasFromManifest(manifest string) (int64, error) {
	if manifest == "" {
		return 0, fmt.Errorf("%w: empty manifest", models.ErrUnexpectedShape)
	}

	var obj map[string]interface{}
	if err := utiljson.Unmarshal([]byte(manifest), &obj); err != nil {
		return 0, fmt.Errorf("%w: manifest: %v", models.ErrUnexpectedShape, err)
	}

	replicas, found, err := unstructured.NestedInt64(obj, "spec", "replicas")
	if err != nil {
		return 0, fmt.Errorf("%w: manifest: %v", models.ErrUnexpectedShape, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: manifest has no spec.replicas", models.ErrUnexpectedShape)
	}
	return replicas, nil
}
