package rds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveInstance(t *testing.T) {
	ids := []string{
		"shop-staging",
		"shop-staging-v1",
		"shop-staging-replica",
		"blog-staging-v1",
		"blog-staging-v2",
		"crm-staging-v2",
		"crm-staging-v3",
		"billing",
		"cms-staging-db",
	}

	tests := []struct {
		name     string
		key      string
		explicit bool
		wantID   string
		wantOK   bool
	}{
		{"single substring match", "billing", false, "billing", true},
		{"dots become dashes", "cms.staging", false, "cms-staging-db", true},
		{"exact match among several", "shop.staging", false, "shop-staging", true},
		{"v1 suffix among several", "blog.staging", false, "blog-staging-v1", true},
		{"several without exact or v1", "crm.staging", false, "", false},
		{"no candidates", "wiki.staging", false, "", false},
		{"explicit key keeps dots", "shop.staging", true, "", false},
		{"explicit key used verbatim", "shop-staging-replica", true, "shop-staging-replica", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ResolveInstance(tt.key, tt.explicit, ids)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestResolveInstance_SingleCandidateBeatsExactness(t *testing.T) {
	id, ok := ResolveInstance("api", false, []string{"api-staging-v7"})
	assert.True(t, ok)
	assert.Equal(t, "api-staging-v7", id)
}
