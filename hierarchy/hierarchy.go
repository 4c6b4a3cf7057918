package hierarchy

// CommandHierarchy is the frozen, read-only result of a build: one Store
// shared by five Topology views (Engine, Submit, AllEvent, VulkanCall,
// VulkanEvent).
type CommandHierarchy struct {
	store           *Store
	views           [numViews]*Topology
	metadataVersion uint32
}

// Store returns the node arena backing every view.
func (h *CommandHierarchy) Store() *Store { return h.store }

// MetadataVersion is the Vulkan metadata format version the source
// capture was produced with.
func (h *CommandHierarchy) MetadataVersion() uint32 { return h.metadataVersion }

// View returns the topology for the named view.
func (h *CommandHierarchy) View(v View) *Topology { return h.views[v] }

// EventIndex returns n's 1-based rank among event (DrawDispatchDma or
// Sync) nodes, or 0 if n isn't one.
func (h *CommandHierarchy) EventIndex(n NodeIndex) int { return h.store.EventIndex(n) }

// GetEngineHierarchyTopology returns the Engine view: Root, one node per
// engine, each engine's Submit children, each Submit's top-level Ib
// children, and each Ib's Packet/Reg/Field descendants.
func (h *CommandHierarchy) GetEngineHierarchyTopology() *Topology { return h.views[ViewEngine] }

// GetSubmitHierarchyTopology returns the Submit view: Root's Submit
// children (sorted by submission order), each Submit's top-level Ib
// children sorted by declared ib-index, and each Ib's Packet/Reg/Field
// descendants.
func (h *CommandHierarchy) GetSubmitHierarchyTopology() *Topology { return h.views[ViewSubmit] }

// GetAllEventHierarchyTopology returns the AllEvent view: Root → Submit
// → event (DrawDispatchDma/Sync/PostambleState) and Present nodes, with
// per-IB structure stripped and the packets that produced each event
// attached as its shared children.
func (h *CommandHierarchy) GetAllEventHierarchyTopology() *Topology { return h.views[ViewAllEvent] }

// GetVulkanEventHierarchyTopology returns the VulkanCall view (AllEvent
// minus PM4-level draw/dispatch/dma/sync/postamble/barrier nodes).
func (h *CommandHierarchy) GetVulkanEventHierarchyTopology() *Topology {
	return h.views[ViewVulkanCall]
}

// GetVulkanDrawEventHierarchyTopology returns the VulkanEvent view
// (VulkanCall with non-event markers collapsed, shared children
// accumulated onto the nearest retained Vulkan event).
func (h *CommandHierarchy) GetVulkanDrawEventHierarchyTopology() *Topology {
	return h.views[ViewVulkanEvent]
}
