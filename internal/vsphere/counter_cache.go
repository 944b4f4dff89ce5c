package vsphere

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kubev2v/vsphere-inspector/pkg/metrics"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const counterCacheName = "counter_id"

// CounterKey identifies a performance counter on one vCenter. Counter ids
// differ between vCenters, the key does not.
type CounterKey struct {
	Group  string
	Name   string
	Rollup types.PerfSummaryType
}

func (k CounterKey) String() string {
	return k.Group + ":" + k.Name + ":" + string(k.Rollup)
}

// ParseCounterKey parses a full counter name such as cpu:usagemhz:average.
func ParseCounterKey(fullName string) (CounterKey, error) {
	parts := strings.Split(fullName, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return CounterKey{}, fmt.Errorf("%w: %q, expected group:name:rollup", ErrInvalidCounterName, fullName)
	}
	return CounterKey{Group: parts[0], Name: parts[1], Rollup: types.PerfSummaryType(parts[2])}, nil
}

func counterKeyOf(info types.PerfCounterInfo) CounterKey {
	key := CounterKey{Rollup: info.RollupType}
	if info.GroupInfo != nil {
		key.Group = info.GroupInfo.GetElementDescription().Key
	}
	if info.NameInfo != nil {
		key.Name = info.NameInfo.GetElementDescription().Key
	}
	return key
}

// counterCache holds the counter catalog of the PerformanceManager. The
// catalog is read once and treated as immutable for the session.
type counterCache struct {
	collector   *Collector
	perfManager types.ManagedObjectReference

	mu        sync.RWMutex
	populated bool
	ids       map[string]int32
	group     singleflight.Group
}

func newCounterCache(collector *Collector, perfManager types.ManagedObjectReference) *counterCache {
	return &counterCache{
		collector:   collector,
		perfManager: perfManager,
		ids:         map[string]int32{},
	}
}

func (c *counterCache) getCounterID(ctx context.Context, fullName string) (int32, error) {
	if err := c.populate(ctx); err != nil {
		return 0, err
	}
	c.mu.RLock()
	id, ok := c.ids[fullName]
	c.mu.RUnlock()
	if !ok {
		metrics.IncreaseCacheLookupsTotalMetric(counterCacheName, metrics.ResultMiss)
		return 0, &UnknownCounterError{Name: fullName}
	}
	metrics.IncreaseCacheLookupsTotalMetric(counterCacheName, metrics.ResultHit)
	return id, nil
}

func (c *counterCache) isPopulated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.populated
}

// populate reads the catalog on first use. A failed read leaves the cache
// unpopulated so the next call tries again. The read itself is detached from
// ctx: a caller that gives up stops waiting without failing the others.
func (c *counterCache) populate(ctx context.Context) error {
	if c.isPopulated() {
		return nil
	}
	ch := c.group.DoChan(counterCacheName, func() (any, error) {
		if c.isPopulated() {
			return nil, nil
		}
		ids, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.ids = ids
		c.populated = true
		c.mu.Unlock()
		metrics.IncreaseCacheRefreshesTotalMetric(counterCacheName)
		zap.S().Named("vsphere").Debugf("loaded %d performance counters", len(ids))
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *counterCache) fetch(ctx context.Context) (map[string]int32, error) {
	obj, err := c.collector.retrieveOne(ctx, c.perfManager, perfCounterProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve performance counters: %w", err)
	}
	for _, missing := range obj.MissingSet {
		if missing.Path == perfCounterProperty {
			return nil, &MissingPropertyError{Object: c.perfManager.Value, Path: perfCounterProperty, Fault: faultMessage(missing.Fault)}
		}
	}
	for _, prop := range obj.PropSet {
		if prop.Name != perfCounterProperty {
			continue
		}
		var infos []types.PerfCounterInfo
		switch val := prop.Val.(type) {
		case types.ArrayOfPerfCounterInfo:
			infos = val.PerfCounterInfo
		case []types.PerfCounterInfo:
			infos = val
		default:
			return nil, fmt.Errorf("unexpected %s value of type %T", perfCounterProperty, prop.Val)
		}
		ids := make(map[string]int32, len(infos))
		for _, info := range infos {
			ids[counterKeyOf(info).String()] = info.Key
		}
		return ids, nil
	}
	// An empty catalog is only trusted when vCenter actually returned it.
	return nil, &MissingPropertyError{Object: c.perfManager.Value, Path: perfCounterProperty, Fault: "property not returned"}
}
