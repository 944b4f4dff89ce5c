package vsphere

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

const (
	// RealTimeSamplingInterval is the real-time stats interval in seconds.
	RealTimeSamplingInterval int32 = 20

	// Instance selectors understood by QueryPerf. A wrong selector does not
	// fail, it silently matches no series.
	aggregateInstance = ""
	allInstances      = "*"
)

// perfQuerier issues real-time QueryPerf calls for a single entity.
type perfQuerier struct {
	rt          soap.RoundTripper
	perfManager types.ManagedObjectReference
}

// BuildQuerySpec returns the query for one entity and one counter at the
// real-time interval.
func BuildQuerySpec(entity types.ManagedObjectReference, counterID int32, isAggregate bool) types.PerfQuerySpec {
	instance := allInstances
	if isAggregate {
		instance = aggregateInstance
	}
	return types.PerfQuerySpec{
		Entity: entity,
		MetricId: []types.PerfMetricId{{
			CounterId: counterID,
			Instance:  instance,
		}},
		IntervalId: RealTimeSamplingInterval,
	}
}

func (q *perfQuerier) queryCurrentStat(ctx context.Context, entityMoid string, counterID int32, isAggregate bool) (int64, error) {
	req := types.QueryPerf{
		This:      q.perfManager,
		QuerySpec: []types.PerfQuerySpec{BuildQuerySpec(Reference(VirtualMachineType, entityMoid), counterID, isAggregate)},
	}
	var res *types.QueryPerfResponse
	err := invoke(ctx, "QueryPerf", func() (err error) {
		res, err = methods.QueryPerf(ctx, q.rt, &req)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query counter %d of %s: %w", counterID, entityMoid, err)
	}
	if res == nil {
		return 0, nil
	}
	return CurrentValue(res.Returnval), nil
}

// CurrentValue reduces a QueryPerf result to one number: the last sample of
// every returned series, summed over the series. Only the first entity is
// considered. No entity, no samples, or series shorter than the sample info
// yield nothing rather than an error, as vCenter has simply no data yet.
func CurrentValue(entities []types.BasePerfEntityMetricBase) int64 {
	if len(entities) == 0 {
		return 0
	}
	entity, ok := entities[0].(*types.PerfEntityMetric)
	if !ok || entity == nil {
		return 0
	}
	n := len(entity.SampleInfo)
	if n == 0 {
		return 0
	}
	var sum int64
	for _, series := range entity.Value {
		ints, ok := series.(*types.PerfMetricIntSeries)
		if !ok || len(ints.Value) < n {
			continue
		}
		sum += ints.Value[n-1]
	}
	return sum
}
