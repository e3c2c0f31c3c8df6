package dag

import (
	"fmt"
	"sort"
	"sync"
)

// DAG represents a directed acyclic graph for task execution
type DAG struct {
	nodes      map[string]Node
	deps       map[string][]string // node -> nodes it waits on
	dependents map[string][]string // node -> nodes waiting on it
	mutex      sync.RWMutex
}

// NewDAG creates a new DAG instance
func NewDAG() *DAG {
	return &DAG{
		nodes:      make(map[string]Node),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// Build creates a validated DAG from a task table. Every declared
// dependency must name a task in the table and the graph must be acyclic.
func Build(tasks []Task) (*DAG, error) {
	d := NewDAG()
	for _, task := range tasks {
		if task == nil {
			return nil, invalidf("nil task in table")
		}
		if err := d.AddNode(NewBaseNode(task)); err != nil {
			return nil, invalidf("%v", err)
		}
	}
	for _, task := range tasks {
		for _, dep := range task.GetDependencies() {
			if _, ok := d.nodes[dep]; !ok {
				return nil, unknownf("%s depends on undeclared task %s", task.GetID(), dep)
			}
			if err := d.AddDependency(dep, task.GetID()); err != nil {
				return nil, invalidf("%v", err)
			}
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// AddNode adds a task node to the DAG
func (d *DAG) AddNode(node Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	id := node.ID()
	if id == "" {
		return fmt.Errorf("node ID cannot be empty")
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("node with ID %s already exists", id)
	}

	d.nodes[id] = node
	return nil
}

// AddDependency creates a directed edge between nodes (from -> to),
// meaning "to" waits for "from"
func (d *DAG) AddDependency(fromID, toID string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, exists := d.nodes[fromID]; !exists {
		return fmt.Errorf("source node %s does not exist", fromID)
	}
	if _, exists := d.nodes[toID]; !exists {
		return fmt.Errorf("target node %s does not exist", toID)
	}
	if fromID == toID {
		return fmt.Errorf("node %s cannot depend on itself", fromID)
	}
	for _, existing := range d.deps[toID] {
		if existing == fromID {
			return nil
		}
	}

	d.deps[toID] = append(d.deps[toID], fromID)
	d.dependents[fromID] = append(d.dependents[fromID], toID)
	return nil
}

// GetNode retrieves a node by its ID
func (d *DAG) GetNode(id string) (Node, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	node, exists := d.nodes[id]
	if !exists {
		return nil, fmt.Errorf("node %s not found", id)
	}

	return node, nil
}

// GetDependencies returns all nodes that must complete before the given node can run
func (d *DAG) GetDependencies(id string) ([]string, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if _, exists := d.nodes[id]; !exists {
		return nil, fmt.Errorf("node %s not found", id)
	}
	return sortedCopy(d.deps[id]), nil
}

// GetDependents returns all nodes that depend on the given node
func (d *DAG) GetDependents(id string) ([]string, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if _, exists := d.nodes[id]; !exists {
		return nil, fmt.Errorf("node %s not found", id)
	}
	return sortedCopy(d.dependents[id]), nil
}

// GetAllNodes returns all node IDs in the DAG, sorted
func (d *DAG) GetAllNodes() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.sortedIDs()
}

// GetRootNodes returns all nodes with no dependencies
func (d *DAG) GetRootNodes() ([]string, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var roots []string
	for _, id := range d.sortedIDs() {
		if len(d.deps[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots, nil
}

// Validate checks that the DAG is non-empty and acyclic. A cycle is
// reported with one witness path.
func (d *DAG) Validate() error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if len(d.nodes) == 0 {
		return invalidf("graph has no tasks")
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(d.nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range sortedCopy(d.dependents[id]) {
			switch color[next] {
			case gray:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				path := append(append([]string{}, stack[start:]...), next)
				return cycleError(path)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range d.sortedIDs() {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalOrder returns node IDs such that every node follows all of
// its dependencies. Ties are broken alphabetically.
func (d *DAG) TopologicalOrder() ([]string, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	inDegree := make(map[string]int, len(d.nodes))
	var queue []string
	for _, id := range d.sortedIDs() {
		inDegree[id] = len(d.deps[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		var released []string
		for _, next := range d.dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				released = append(released, next)
			}
		}
		sort.Strings(released)
		queue = append(queue, released...)
		sort.Strings(queue)
	}

	if len(order) != len(d.nodes) {
		return nil, &GraphError{Kind: ErrCycleFound, Msg: "topological sort could not order every task"}
	}
	return order, nil
}

// Subgraph returns a fresh DAG holding the targets and their transitive
// dependencies. Nodes in the result are new, so it can be executed
// independently of the receiver.
func (d *DAG) Subgraph(targets ...string) (*DAG, error) {
	return d.SubgraphWithout(nil, targets...)
}

// SubgraphWithout is Subgraph minus the nodes in done and anything
// reachable only through them. Edges to done nodes are dropped, since
// those dependencies are already satisfied. The result may be empty.
func (d *DAG) SubgraphWithout(done map[string]bool, targets ...string) (*DAG, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if len(targets) == 0 {
		return nil, invalidf("no targets requested")
	}

	keep := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if keep[id] || done[id] {
			return
		}
		keep[id] = true
		for _, dep := range d.deps[id] {
			walk(dep)
		}
	}
	for _, target := range targets {
		if _, ok := d.nodes[target]; !ok {
			return nil, unknownf("%s", target)
		}
		walk(target)
	}

	sub := NewDAG()
	for _, id := range d.sortedIDs() {
		if keep[id] {
			sub.nodes[id] = NewBaseNode(d.nodes[id].GetTask())
		}
	}
	for id := range sub.nodes {
		for _, dep := range d.deps[id] {
			if !keep[dep] {
				continue
			}
			sub.deps[id] = append(sub.deps[id], dep)
			sub.dependents[dep] = append(sub.dependents[dep], id)
		}
	}
	return sub, nil
}

// Size returns the number of nodes in the DAG
func (d *DAG) Size() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.nodes)
}

func (d *DAG) sortedIDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
