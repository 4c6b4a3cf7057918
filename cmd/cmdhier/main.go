// Command cmdhier reads a raw PM4 command buffer and dumps every view a
// CommandHierarchy builds from it: Engine, Submit, AllEvent, VulkanCall,
// and VulkanEvent, each walked pre-order.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ktkr.us/pkg/cmdhierarchy/capture"
	"ktkr.us/pkg/cmdhierarchy/catalog"
	"ktkr.us/pkg/cmdhierarchy/hierarchy"
)

var (
	engine = flag.String("engine", "universal", "engine the buffer targets: universal, compute, or dma")
	queue  = flag.String("queue", "graphics", "queue type to attribute the submit to: graphics, compute, or transfer")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalf("usage: %s [-engine=universal] [-queue=graphics] <pm4 buffer file>", os.Args[0])
	}

	buf, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	et, err := parseEngine(*engine)
	if err != nil {
		log.Fatal(err)
	}
	qt, err := parseQueue(*queue)
	if err != nil {
		log.Fatal(err)
	}

	h, err := hierarchy.CreateTreesFromBuffer(buf, et, qt, catalog.NewStatic())
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("metadata version %d", h.MetadataVersion())

	for _, v := range []hierarchy.View{
		hierarchy.ViewEngine,
		hierarchy.ViewSubmit,
		hierarchy.ViewAllEvent,
		hierarchy.ViewVulkanCall,
		hierarchy.ViewVulkanEvent,
	} {
		log.Printf("--- %s ---", v)
		dump(h, v, hierarchy.Root, 0)
	}
}

// dump walks one view pre-order starting at node, printing its
// description indented by depth and its shared children, if any, on the
// line below.
func dump(h *hierarchy.CommandHierarchy, v hierarchy.View, node hierarchy.NodeIndex, depth int) {
	t := h.View(v)
	store := h.Store()

	fmt.Printf("%s%s\n", indent(depth), store.Desc(node))
	if n := t.NumSharedChildren(node); n > 0 {
		fmt.Printf("%s  shared: ", indent(depth))
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(store.Desc(t.SharedChildAt(node, i)))
		}
		fmt.Println()
	}
	for c := range t.Children(node) {
		dump(h, v, c, depth+1)
	}
}

func indent(depth int) string {
	b := make([]byte, depth*2)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func parseEngine(s string) (capture.EngineType, error) {
	switch s {
	case "universal":
		return capture.EngineUniversal, nil
	case "compute":
		return capture.EngineCompute, nil
	case "dma":
		return capture.EngineDma, nil
	default:
		return 0, fmt.Errorf("unknown engine %q", s)
	}
}

func parseQueue(s string) (capture.QueueType, error) {
	switch s {
	case "graphics":
		return capture.QueueGraphics, nil
	case "compute":
		return capture.QueueCompute, nil
	case "transfer":
		return capture.QueueTransfer, nil
	default:
		return 0, fmt.Errorf("unknown queue %q", s)
	}
}
