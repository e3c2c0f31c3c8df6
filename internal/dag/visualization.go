package dag

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// DAGVisualization renders a task graph and its execution state
type DAGVisualization struct {
	dag *DAG
}

// NewDAGVisualization creates a new visualization helper
func NewDAGVisualization(dag *DAG) *DAGVisualization {
	return &DAGVisualization{
		dag: dag,
	}
}

// NodeInfo contains information about a node for visualization
type NodeInfo struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Description  string     `json:"description"`
	Dependencies []string   `json:"dependencies"`
	Status       NodeStatus `json:"status"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// EdgeInfo contains information about an edge for visualization
type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DAGInfo contains the full DAG structure for visualization
type DAGInfo struct {
	Nodes []NodeInfo `json:"nodes"`
	Edges []EdgeInfo `json:"edges"`
	Order []string   `json:"order"`
	Stats DAGStats   `json:"stats"`
}

// DAGStats contains statistics about the DAG execution
type DAGStats struct {
	TotalNodes     int    `json:"totalNodes"`
	CompletedNodes int    `json:"completedNodes"`
	FailedNodes    int    `json:"failedNodes"`
	CancelledNodes int    `json:"cancelledNodes"`
	RunningNodes   int    `json:"runningNodes"`
	PendingNodes   int    `json:"pendingNodes"`
	TotalDuration  string `json:"totalDuration,omitempty"`
}

// GenerateDAGInfo creates a representation of the DAG for visualization.
// Nodes and edges are sorted by ID.
func (v *DAGVisualization) GenerateDAGInfo() (*DAGInfo, error) {
	order, err := v.dag.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	nodeIDs := v.dag.GetAllNodes()

	nodes := make([]NodeInfo, 0, len(nodeIDs))
	stats := DAGStats{TotalNodes: len(nodeIDs)}
	var earliestStart, latestEnd *time.Time

	for _, id := range nodeIDs {
		node, err := v.dag.GetNode(id)
		if err != nil {
			continue
		}
		deps, _ := v.dag.GetDependencies(id)

		task := node.GetTask()
		status := node.GetStatus()
		startTime := node.GetStartTime()
		endTime := node.GetEndTime()

		duration := ""
		if startTime != nil && endTime != nil {
			duration = endTime.Sub(*startTime).String()
		} else if startTime != nil {
			duration = time.Since(*startTime).String() + " (running)"
		}

		if startTime != nil && (earliestStart == nil || startTime.Before(*earliestStart)) {
			earliestStart = startTime
		}
		if endTime != nil && (latestEnd == nil || endTime.After(*latestEnd)) {
			latestEnd = endTime
		}

		errorMsg := ""
		if status == StatusFailed {
			if nodeErr := node.GetError(); nodeErr != nil {
				errorMsg = nodeErr.Error()
			}
		}

		nodes = append(nodes, NodeInfo{
			ID:           id,
			Type:         GetTaskType(task),
			Description:  GetTaskDescription(task),
			Dependencies: deps,
			Status:       status,
			StartTime:    startTime,
			EndTime:      endTime,
			Duration:     duration,
			Error:        errorMsg,
		})

		switch status {
		case StatusCompleted:
			stats.CompletedNodes++
		case StatusFailed:
			stats.FailedNodes++
		case StatusCancelled:
			stats.CancelledNodes++
		case StatusRunning:
			stats.RunningNodes++
		case StatusPending:
			stats.PendingNodes++
		}
	}

	if earliestStart != nil && latestEnd != nil {
		stats.TotalDuration = latestEnd.Sub(*earliestStart).String()
	}

	edges := []EdgeInfo{}
	for _, fromID := range nodeIDs {
		dependents, err := v.dag.GetDependents(fromID)
		if err != nil {
			continue
		}
		for _, toID := range dependents {
			edges = append(edges, EdgeInfo{From: fromID, To: toID})
		}
	}

	return &DAGInfo{
		Nodes: nodes,
		Edges: edges,
		Order: order,
		Stats: stats,
	}, nil
}

// GenerateJSON renders the DAG as indented JSON
func (v *DAGVisualization) GenerateJSON() ([]byte, error) {
	dagInfo, err := v.GenerateDAGInfo()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(dagInfo, "", "  ")
}

// ExportToJSON exports the DAG visualization to a JSON file
func (v *DAGVisualization) ExportToJSON(filename string) error {
	data, err := v.GenerateJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// GenerateDOTGraph creates a DOT format graph for visualization with Graphviz.
// Edges point from a dependency to the task that waits on it.
func (v *DAGVisualization) GenerateDOTGraph() (string, error) {
	dagInfo, err := v.GenerateDAGInfo()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("digraph SitePipeline {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n\n")

	for _, node := range dagInfo.Nodes {
		color := "white"
		switch node.Status {
		case StatusPending:
			color = "lightgrey"
		case StatusRunning:
			color = "lightblue"
		case StatusCompleted:
			color = "lightgreen"
		case StatusFailed:
			color = "salmon"
		case StatusCancelled:
			color = "orange"
		}

		label := fmt.Sprintf("%s\\n%s", node.ID, node.Type)
		if node.Duration != "" {
			label += fmt.Sprintf("\\n%s", node.Duration)
		}
		if node.Error != "" {
			errorMsg := node.Error
			if len(errorMsg) > 50 {
				errorMsg = errorMsg[:47] + "..."
			}
			label += fmt.Sprintf("\\nError: %s", strings.ReplaceAll(errorMsg, "\"", "'"))
		}

		sb.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"%s\"];\n",
			node.ID, label, color))
	}

	if len(dagInfo.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range dagInfo.Edges {
		sb.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", edge.From, edge.To))
	}

	sb.WriteString("}\n")
	return sb.String(), nil
}

// ExportToDOT exports the DAG visualization to a DOT file
func (v *DAGVisualization) ExportToDOT(filename string) error {
	dot, err := v.GenerateDOTGraph()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(dot), 0644)
}

// GenerateTextSummary creates a human-readable text summary of the DAG execution
func (v *DAGVisualization) GenerateTextSummary() (string, error) {
	dagInfo, err := v.GenerateDAGInfo()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("=== Task Graph Summary ===\n\n")

	sb.WriteString(fmt.Sprintf("Execution order: %s\n", strings.Join(dagInfo.Order, " -> ")))
	sb.WriteString(fmt.Sprintf("  Total: %d\n", dagInfo.Stats.TotalNodes))
	sb.WriteString(fmt.Sprintf("  Completed: %d\n", dagInfo.Stats.CompletedNodes))
	sb.WriteString(fmt.Sprintf("  Failed: %d\n", dagInfo.Stats.FailedNodes))
	sb.WriteString(fmt.Sprintf("  Cancelled: %d\n", dagInfo.Stats.CancelledNodes))
	sb.WriteString(fmt.Sprintf("  Pending: %d\n", dagInfo.Stats.PendingNodes))
	if dagInfo.Stats.TotalDuration != "" {
		sb.WriteString(fmt.Sprintf("  Total Duration: %s\n", dagInfo.Stats.TotalDuration))
	}
	sb.WriteString("\n")

	groups := []struct {
		title  string
		status NodeStatus
	}{
		{"Failed", StatusFailed},
		{"Cancelled", StatusCancelled},
		{"Running", StatusRunning},
		{"Completed", StatusCompleted},
		{"Pending", StatusPending},
	}

	for _, group := range groups {
		var members []NodeInfo
		for _, node := range dagInfo.Nodes {
			if node.Status == group.status {
				members = append(members, node)
			}
		}
		if len(members) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s (%d):\n", group.title, len(members)))
		for _, node := range members {
			sb.WriteString(fmt.Sprintf("  - %s (%s)", node.ID, node.Type))
			if node.Duration != "" {
				sb.WriteString(fmt.Sprintf(" - %s", node.Duration))
			}
			if node.Error != "" {
				sb.WriteString(fmt.Sprintf(" - Error: %s", node.Error))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
