package vsphere

import (
	"context"
	"fmt"

	"github.com/kubev2v/vsphere-inspector/pkg/correlation"
	"github.com/kubev2v/vsphere-inspector/pkg/metrics"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"
)

// Item is one object returned by the property collector together with the
// values of the requested properties.
type Item struct {
	Ref   types.ManagedObjectReference
	Props map[string]any
}

// Page is one batch of items. Token is empty once the result set is
// exhausted; a page with a token is the handle passed to Continue.
type Page struct {
	Items []Item
	Token string

	entityType      string
	includeSubtypes bool
}

func (p Page) Done() bool {
	return p.Token == ""
}

// Collector is a cursor over RetrievePropertiesEx results. It never loops on
// its own: callers keep calling Continue until the returned token is empty.
type Collector struct {
	rt                soap.RoundTripper
	propertyCollector types.ManagedObjectReference
}

func NewCollector(rt soap.RoundTripper, propertyCollector types.ManagedObjectReference) *Collector {
	return &Collector{rt: rt, propertyCollector: propertyCollector}
}

// CollectObjects starts a collection of every entityType object below root,
// returning at most pageSize objects per page.
func (c *Collector) CollectObjects(
	ctx context.Context,
	root types.ManagedObjectReference,
	entityType string,
	pageSize int32,
	propertyNames []string,
	includeSubtypes bool,
) (Page, error) {
	filter := PropertyFilterSpec(
		[]types.PropertySpec{PropertySpec(entityType, propertyNames)},
		[]types.ObjectSpec{ObjectSpec(root, InventoryTraversal())},
	)
	result, err := c.retrieve(ctx, filter, pageSize)
	if err != nil {
		return Page{}, err
	}
	return toPage(result, entityType, includeSubtypes), nil
}

// Continue fetches the page following prev, applying the same type filter.
func (c *Collector) Continue(ctx context.Context, prev Page) (Page, error) {
	if prev.Done() {
		return Page{}, nil
	}
	req := types.ContinueRetrievePropertiesEx{
		This:  c.propertyCollector,
		Token: prev.Token,
	}
	var res *types.ContinueRetrievePropertiesExResponse
	err := invoke(ctx, "ContinueRetrievePropertiesEx", func() (err error) {
		res, err = methods.ContinueRetrievePropertiesEx(ctx, c.rt, &req)
		return err
	})
	if err != nil {
		return Page{}, err
	}
	if res == nil {
		return toPage(nil, prev.entityType, prev.includeSubtypes), nil
	}
	return toPage(&res.Returnval, prev.entityType, prev.includeSubtypes), nil
}

// retrieveOne fetches a single object, as for singletons or one named entity.
func (c *Collector) retrieveOne(ctx context.Context, ref types.ManagedObjectReference, path string) (*types.ObjectContent, error) {
	filter := PropertyFilterSpec(
		[]types.PropertySpec{PropertySpec(ref.Type, []string{path})},
		[]types.ObjectSpec{ObjectSpec(ref, nil)},
	)
	result, err := c.retrieve(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Objects) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrEmptyResult, ref.Type, ref.Value)
	}
	return &result.Objects[0], nil
}

func (c *Collector) retrieve(ctx context.Context, filter types.PropertyFilterSpec, maxObjects int32) (*types.RetrieveResult, error) {
	req := types.RetrievePropertiesEx{
		This:    c.propertyCollector,
		SpecSet: []types.PropertyFilterSpec{filter},
		Options: types.RetrieveOptions{MaxObjects: maxObjects},
	}
	var res *types.RetrievePropertiesExResponse
	err := invoke(ctx, "RetrievePropertiesEx", func() (err error) {
		res, err = methods.RetrievePropertiesEx(ctx, c.rt, &req)
		return err
	})
	if err != nil || res == nil {
		return nil, err
	}
	return res.Returnval, nil
}

// toPage converts a RetrieveResult. A nil result is an empty last page. When
// entityType is set and subtypes are excluded only exact type matches are
// kept.
func toPage(result *types.RetrieveResult, entityType string, includeSubtypes bool) Page {
	if result == nil {
		return Page{entityType: entityType, includeSubtypes: includeSubtypes}
	}
	page := Page{Token: result.Token, entityType: entityType, includeSubtypes: includeSubtypes}
	for _, obj := range result.Objects {
		if !includeSubtypes && entityType != "" && obj.Obj.Type != entityType {
			continue
		}
		item := Item{Ref: obj.Obj, Props: make(map[string]any, len(obj.PropSet))}
		for _, prop := range obj.PropSet {
			item.Props[prop.Name] = prop.Val
		}
		page.Items = append(page.Items, item)
	}
	return page
}

// invoke runs one remote call, recording its outcome. Errors are returned
// unchanged so that soap faults stay inspectable by callers.
func invoke(ctx context.Context, operation string, call func() error) error {
	if err := call(); err != nil {
		metrics.IncreaseVSphereCallsTotalMetric(operation, metrics.ResultFailure)
		zap.S().Named("vsphere").Debugw("vSphere call failed",
			"operation", operation, "correlation_id", correlation.FromContext(ctx), "error", err)
		return err
	}
	metrics.IncreaseVSphereCallsTotalMetric(operation, metrics.ResultSuccess)
	return nil
}
