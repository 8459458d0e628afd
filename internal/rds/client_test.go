package rds

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

type fakeAPI struct {
	instances map[string]string
	pages     [][]string
	err       error
	started   []string
	stopped   []string
}

func (f *fakeAPI) DescribeDBInstances(_ context.Context, in *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	if in.DBInstanceIdentifier != nil {
		id := aws.ToString(in.DBInstanceIdentifier)
		status, ok := f.instances[id]
		if !ok {
			return nil, &types.DBInstanceNotFoundFault{Message: aws.String("DBInstance " + id + " not found.")}
		}
		return &rds.DescribeDBInstancesOutput{DBInstances: []types.DBInstance{
			{DBInstanceIdentifier: aws.String(id), DBInstanceStatus: aws.String(status)},
		}}, nil
	}

	page := 0
	if in.Marker != nil {
		page = len(aws.ToString(in.Marker))
	}
	out := &rds.DescribeDBInstancesOutput{}
	for _, id := range f.pages[page] {
		out.DBInstances = append(out.DBInstances, types.DBInstance{DBInstanceIdentifier: aws.String(id)})
	}
	if page+1 < len(f.pages) {
		marker := ""
		for i := 0; i <= page; i++ {
			marker += "x"
		}
		out.Marker = aws.String(marker)
	}
	return out, nil
}

func (f *fakeAPI) StartDBInstance(_ context.Context, in *rds.StartDBInstanceInput, _ ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started = append(f.started, aws.ToString(in.DBInstanceIdentifier))
	return &rds.StartDBInstanceOutput{}, nil
}

func (f *fakeAPI) StopDBInstance(_ context.Context, in *rds.StopDBInstanceInput, _ ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.stopped = append(f.stopped, aws.ToString(in.DBInstanceIdentifier))
	return &rds.StopDBInstanceOutput{}, nil
}

func TestClient_Describe(t *testing.T) {
	api := &fakeAPI{instances: map[string]string{"shop-staging": "stopped"}}
	c := NewWithAPI(api, 0)

	status, err := c.Describe(context.Background(), "shop-staging")
	require.NoError(t, err)
	assert.Equal(t, models.DatabaseStopped, status)

	_, err = c.Describe(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestClient_StartStop(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, 0)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, "a"))
	require.NoError(t, c.Stop(ctx, "b"))
	assert.Equal(t, []string{"a"}, api.started)
	assert.Equal(t, []string{"b"}, api.stopped)
}

func TestClient_APIErrors(t *testing.T) {
	api := &fakeAPI{err: &smithy.GenericAPIError{Code: "InvalidDBInstanceState", Message: "Instance is not in available state"}}
	c := NewWithAPI(api, 0)

	err := c.Stop(context.Background(), "shop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "InvalidDBInstanceState")

	api.err = errors.New("dial tcp: timeout")
	_, err = c.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestClient_ListAllPages(t *testing.T) {
	api := &fakeAPI{pages: [][]string{{"a", "b"}, {"c"}}}
	c := NewWithAPI(api, 0)

	ids, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
