package vsphere_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

var serviceContent = types.ServiceContent{
	RootFolder:        types.ManagedObjectReference{Type: "Folder", Value: "group-d1"},
	PropertyCollector: types.ManagedObjectReference{Type: "PropertyCollector", Value: "propertyCollector"},
	PerfManager:       &types.ManagedObjectReference{Type: "PerformanceManager", Value: "PerfMgr"},
}

// fakeVCenter answers the handful of vim25 calls issued by Operations and
// records what it was asked.
type fakeVCenter struct {
	vms        map[string]string // name -> moid
	counters   []types.PerfCounterInfo
	properties map[string]types.AnyType // moid/path -> value
	missing    map[string]string        // moid/path -> fault message
	perf       []types.BasePerfEntityMetricBase
	err        error

	counterFault string // answer perfCounter through the MissingSet
	omitCounters bool   // answer the PerfManager without any property

	// gate, when set, holds every request until it is closed. Each held
	// request first sends on entered.
	gate    chan struct{}
	entered chan struct{}

	mu sync.Mutex

	calls             map[string]int
	vmEnumerations    int
	counterRetrievals int
	pageSizes         []int32
	perfRequests      []types.QueryPerf
	propertyRequests  []types.RetrievePropertiesEx

	pending [][]types.ObjectContent
}

func newFakeVCenter() *fakeVCenter {
	return &fakeVCenter{
		vms:        map[string]string{},
		properties: map[string]types.AnyType{},
		missing:    map[string]string{},
		calls:      map[string]int{},
	}
}

func (f *fakeVCenter) addVMs(count int) {
	for i := 0; i < count; i++ {
		f.vms[fmt.Sprintf("instance-%05d", i)] = fmt.Sprintf("vm-%d", i+1)
	}
}

func counterInfo(group, name string, rollup types.PerfSummaryType, key int32) types.PerfCounterInfo {
	return types.PerfCounterInfo{
		Key:        key,
		GroupInfo:  &types.ElementDescription{Key: group},
		NameInfo:   &types.ElementDescription{Key: name},
		RollupType: rollup,
	}
}

func (f *fakeVCenter) RoundTrip(ctx context.Context, req, res soap.HasFault) error {
	if f.gate != nil {
		f.entered <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r := req.(type) {
	case *methods.RetrievePropertiesExBody:
		f.calls["RetrievePropertiesEx"]++
		if f.err != nil {
			return f.err
		}
		result, err := f.retrieve(r.Req)
		if err != nil {
			return err
		}
		res.(*methods.RetrievePropertiesExBody).Res = &types.RetrievePropertiesExResponse{Returnval: result}
	case *methods.ContinueRetrievePropertiesExBody:
		f.calls["ContinueRetrievePropertiesEx"]++
		if f.err != nil {
			return f.err
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(r.Req.Token, "page-"))
		if err != nil || idx >= len(f.pending) {
			return fmt.Errorf("invalid token %q", r.Req.Token)
		}
		res.(*methods.ContinueRetrievePropertiesExBody).Res = &types.ContinueRetrievePropertiesExResponse{
			Returnval: f.page(idx),
		}
	case *methods.QueryPerfBody:
		f.calls["QueryPerf"]++
		f.perfRequests = append(f.perfRequests, *r.Req)
		if f.err != nil {
			return f.err
		}
		res.(*methods.QueryPerfBody).Res = &types.QueryPerfResponse{Returnval: f.perf}
	default:
		return fmt.Errorf("unexpected request %T", req)
	}
	return nil
}

func (f *fakeVCenter) retrieve(req *types.RetrievePropertiesEx) (*types.RetrieveResult, error) {
	spec := req.SpecSet[0]
	obj := spec.ObjectSet[0].Obj
	propType := spec.PropSet[0].Type

	switch {
	case obj == serviceContent.RootFolder && propType == "VirtualMachine":
		f.vmEnumerations++
		f.pageSizes = append(f.pageSizes, req.Options.MaxObjects)
		f.paginate(req.Options.MaxObjects)
		result := f.page(0)
		return &result, nil
	case obj == *serviceContent.PerfManager:
		f.counterRetrievals++
		path := spec.PropSet[0].PathSet[0]
		content := types.ObjectContent{Obj: obj}
		switch {
		case f.counterFault != "":
			content.MissingSet = []types.MissingProperty{{
				Path:  path,
				Fault: types.LocalizedMethodFault{LocalizedMessage: f.counterFault},
			}}
		case f.omitCounters:
		default:
			content.PropSet = []types.DynamicProperty{{
				Name: path,
				Val:  types.ArrayOfPerfCounterInfo{PerfCounterInfo: f.counters},
			}}
		}
		return &types.RetrieveResult{Objects: []types.ObjectContent{content}}, nil
	default:
		f.propertyRequests = append(f.propertyRequests, *req)
		content := types.ObjectContent{Obj: obj}
		for _, path := range spec.PropSet[0].PathSet {
			key := obj.Value + "/" + path
			if fault, ok := f.missing[key]; ok {
				content.MissingSet = append(content.MissingSet, types.MissingProperty{
					Path:  path,
					Fault: types.LocalizedMethodFault{LocalizedMessage: fault},
				})
				continue
			}
			if val, ok := f.properties[key]; ok {
				content.PropSet = append(content.PropSet, types.DynamicProperty{Name: path, Val: val})
			}
		}
		return &types.RetrieveResult{Objects: []types.ObjectContent{content}}, nil
	}
}

func (f *fakeVCenter) paginate(pageSize int32) {
	var all []types.ObjectContent
	for name, moid := range f.vms {
		all = append(all, types.ObjectContent{
			Obj:     types.ManagedObjectReference{Type: "VirtualMachine", Value: moid},
			PropSet: []types.DynamicProperty{{Name: "name", Val: name}},
		})
	}
	f.pending = nil
	for pageSize > 0 && len(all) > int(pageSize) {
		f.pending = append(f.pending, all[:pageSize])
		all = all[pageSize:]
	}
	f.pending = append(f.pending, all)
}

func (f *fakeVCenter) page(idx int) types.RetrieveResult {
	result := types.RetrieveResult{Objects: f.pending[idx]}
	if idx+1 < len(f.pending) {
		result.Token = fmt.Sprintf("page-%d", idx+1)
	}
	return result
}

func (f *fakeVCenter) pageFetches() int {
	return f.vmEnumerations + f.calls["ContinueRetrievePropertiesEx"]
}
