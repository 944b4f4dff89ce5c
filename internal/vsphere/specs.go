package vsphere

import (
	"github.com/vmware/govmomi/vim25/types"
)

const (
	VirtualMachineType     = "VirtualMachine"
	PerformanceManagerType = "PerformanceManager"

	perfCounterProperty = "perfCounter"
	vmNameProperty      = "name"
)

// Reference builds a managed object reference of the given type. References
// are cheap values and are rebuilt on every call, only the id is ever cached.
func Reference(typeTag, id string) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: typeTag, Value: id}
}

func PropertySpec(typeTag string, propertyNames []string) types.PropertySpec {
	spec := types.PropertySpec{
		Type:    typeTag,
		PathSet: propertyNames,
	}
	if len(propertyNames) == 0 {
		spec.All = types.NewBool(true)
	}
	return spec
}

// ObjectSpec starts a filter at root. When selectSet is non-empty the root
// itself is skipped and only the objects reached by traversal are reported.
func ObjectSpec(root types.ManagedObjectReference, selectSet []types.BaseSelectionSpec) types.ObjectSpec {
	return types.ObjectSpec{
		Obj:       root,
		Skip:      types.NewBool(len(selectSet) > 0),
		SelectSet: selectSet,
	}
}

func PropertyFilterSpec(propSpecs []types.PropertySpec, objSpecs []types.ObjectSpec) types.PropertyFilterSpec {
	return types.PropertyFilterSpec{
		PropSet:   propSpecs,
		ObjectSet: objSpecs,
	}
}

func selection(name string) *types.SelectionSpec {
	return &types.SelectionSpec{Name: name}
}

func traversal(name, typeTag, path string, next ...string) *types.TraversalSpec {
	spec := &types.TraversalSpec{
		SelectionSpec: types.SelectionSpec{Name: name},
		Type:          typeTag,
		Path:          path,
		Skip:          types.NewBool(false),
	}
	for _, n := range next {
		spec.SelectSet = append(spec.SelectSet, selection(n))
	}
	return spec
}

// InventoryTraversal walks the whole inventory tree below a folder: nested
// folders, the datacenter sub-folders, compute resources with their hosts and
// resource pools, and vApp members.
func InventoryTraversal() []types.BaseSelectionSpec {
	all := []string{
		"visitFolders", "dcToVmFolder", "dcToHostFolder", "dcToDatastoreFolder",
		"dcToNetworkFolder", "crToHost", "crToRp", "rpToRp", "vAppToVm",
	}
	return []types.BaseSelectionSpec{
		traversal("visitFolders", "Folder", "childEntity", all...),
		traversal("dcToVmFolder", "Datacenter", "vmFolder", "visitFolders"),
		traversal("dcToHostFolder", "Datacenter", "hostFolder", "visitFolders"),
		traversal("dcToDatastoreFolder", "Datacenter", "datastoreFolder", "visitFolders"),
		traversal("dcToNetworkFolder", "Datacenter", "networkFolder", "visitFolders"),
		traversal("crToHost", "ComputeResource", "host"),
		traversal("crToRp", "ComputeResource", "resourcePool", "rpToRp", "vAppToVm"),
		traversal("rpToRp", "ResourcePool", "resourcePool", "rpToRp", "vAppToVm"),
		traversal("vAppToVm", "VirtualApp", "vm"),
	}
}
