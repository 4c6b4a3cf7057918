package hierarchy

// projectVulkanCall derives the VulkanCall view from AllEvent: every
// node and edge carries over except primary children that are
// DrawDispatchDma, Sync, PostambleState, or a Marker(Barrier), the
// PM4-level execution detail a Vulkan-call-oriented view has no use for.
// Nodes aren't duplicated; this only builds a second adjacency over the
// same Store, the way Engine and Submit are two adjacencies over the
// same nodes rather than two copies of them.
//
// A filtered child's own shared children (the packets that triggered it)
// aren't dropped along with it: they're reattached as its parent's
// shared children instead, so the packets an event was closed by are
// still reachable from the nearest surviving VulkanCall node.
func (b *builder) projectVulkanCall() {
	allEvent := b.pend[ViewAllEvent]
	vc := b.pend[ViewVulkanCall]

	for _, node := range allEvent.sharedOrder {
		if !b.filteredFromVulkanCall(node) {
			vc.addSharedChildren(node, allEvent.shared[node])
		}
	}
	for _, node := range allEvent.primaryOrder {
		var kept []NodeIndex
		var absorbed []NodeIndex
		for _, c := range allEvent.primary[node] {
			if b.filteredFromVulkanCall(c) {
				absorbed = append(absorbed, allEvent.shared[c]...)
				continue
			}
			kept = append(kept, c)
		}
		vc.setChildren(node, kept)
		if len(absorbed) > 0 {
			vc.addSharedChildren(node, absorbed)
		}
	}
}

func (b *builder) filteredFromVulkanCall(n NodeIndex) bool {
	switch b.store.Type(n) {
	case NodeDrawDispatchDma, NodeSync, NodePostambleState:
		return true
	case NodeMarker:
		return b.store.Marker(n).Kind == MarkerBarrier
	default:
		return false
	}
}

// isNonEventVulkanMarker reports whether n is a marker that merely
// groups other nodes (a debug-label scope) without itself representing
// one Vulkan call.
func isNonEventVulkanMarker(s *Store, n NodeIndex) bool {
	return s.Type(n) == NodeMarker && s.Marker(n).Kind == MarkerBeginEnd
}

// isVulkanEventNode reports whether n is the node VulkanEvent groups
// preceding state packets under, the Vulkan-call-granularity analog of
// a DrawDispatchDma/Sync node in AllEvent.
func isVulkanEventNode(s *Store, n NodeIndex) bool {
	return s.Type(n) == NodeMarker && s.Marker(n).Kind == MarkerDiveMetadata
}

// projectVulkanEvent derives VulkanEvent from VulkanCall: a non-event
// Vulkan marker is skipped and its own surviving children are promoted
// up to its parent's level instead of being dropped; a retained Vulkan-
// event node picks up every packet accumulated since the last retained
// sibling as shared children (invariant 8); any other node (a Submit, a
// Present) passes its subtree through unchanged but resets the
// accumulation, since it isn't itself an event to attach it to.
func (b *builder) projectVulkanEvent() {
	rootKept, _ := b.projectVulkanEventNode(Root)
	b.pend[ViewVulkanEvent].setChildren(Root, rootKept)
}

// projectVulkanEventNode projects node's VulkanCall children into the
// VulkanEvent view (recording node's own children via the caller, since
// a node's children can only be set once their kept list is fully known)
// and returns (node's kept children, trailing accumulation still waiting
// for a retained event to attach to).
func (b *builder) projectVulkanEventNode(node NodeIndex) (kept []NodeIndex, trailing []NodeIndex) {
	vc := b.pend[ViewVulkanCall]
	ve := b.pend[ViewVulkanEvent]

	var accum []NodeIndex
	for _, c := range vc.primary[node] {
		switch {
		case isNonEventVulkanMarker(b.store, c):
			// c is collapsed out of the tree entirely: its children are
			// promoted straight into this node's kept list, so c itself
			// must NOT also claim them via ve.setChildren. A node has at
			// most one primary parent per view, and the promoted
			// children's parent is becoming node, not c.
			subKept, subTrailing := b.projectVulkanEventNode(c)
			kept = append(kept, subKept...)
			accum = append(accum, vc.shared[c]...)
			accum = append(accum, subTrailing...)
		case isVulkanEventNode(b.store, c):
			subKept, subTrailing := b.projectVulkanEventNode(c)
			ve.setChildren(c, subKept)
			combined := append(append([]NodeIndex(nil), accum...), vc.shared[c]...)
			combined = append(combined, subTrailing...)
			if len(combined) > 0 {
				ve.addSharedChildren(c, combined)
			}
			kept = append(kept, c)
			accum = nil
		default:
			subKept, _ := b.projectVulkanEventNode(c)
			ve.setChildren(c, subKept)
			kept = append(kept, c)
			accum = nil
		}
	}
	return kept, accum
}
