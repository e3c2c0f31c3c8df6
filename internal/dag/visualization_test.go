package dag

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vizTestDAG(t *testing.T) *DAG {
	t.Helper()
	return buildTestDAG(t,
		newMockTask("html", "transform", "Resolve includes"),
		newMockTask("less", "transform", "Compile stylesheets"),
		newMockTask("build", "aggregate", "Build the site", "html", "less"),
	)
}

func TestNewDAGVisualization(t *testing.T) {
	dag := NewDAG()
	viz := NewDAGVisualization(dag)
	assert.NotNil(t, viz)
	assert.Equal(t, dag, viz.dag)
}

func TestDAGVisualization_GenerateDAGInfo(t *testing.T) {
	dag := vizTestDAG(t)
	html, _ := dag.GetNode("html")
	require.NoError(t, html.Execute(context.Background()))

	dagInfo, err := NewDAGVisualization(dag).GenerateDAGInfo()
	require.NoError(t, err)

	require.Len(t, dagInfo.Nodes, 3)
	assert.Equal(t, "build", dagInfo.Nodes[0].ID)
	assert.Equal(t, []string{"html", "less"}, dagInfo.Nodes[0].Dependencies)
	assert.Equal(t, "aggregate", dagInfo.Nodes[0].Type)
	assert.Equal(t, "html", dagInfo.Nodes[1].ID)
	assert.Equal(t, StatusCompleted, dagInfo.Nodes[1].Status)
	assert.NotEmpty(t, dagInfo.Nodes[1].Duration)

	assert.Equal(t, []EdgeInfo{{From: "html", To: "build"}, {From: "less", To: "build"}}, dagInfo.Edges)
	assert.Equal(t, []string{"html", "less", "build"}, dagInfo.Order)

	assert.Equal(t, 3, dagInfo.Stats.TotalNodes)
	assert.Equal(t, 1, dagInfo.Stats.CompletedNodes)
	assert.Equal(t, 2, dagInfo.Stats.PendingNodes)
}

func TestDAGVisualization_GenerateJSON(t *testing.T) {
	data, err := NewDAGVisualization(vizTestDAG(t)).GenerateJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	nodes := decoded["nodes"].([]interface{})
	first := nodes[0].(map[string]interface{})
	assert.Equal(t, "build", first["id"])
	assert.Equal(t, "pending", first["status"])
}

func TestDAGVisualization_ExportToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, NewDAGVisualization(vizTestDAG(t)).ExportToJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestDAGVisualization_GenerateDOTGraph(t *testing.T) {
	dag := vizTestDAG(t)
	less, _ := dag.GetNode("less")
	less.SetError(errors.New(`lessc: "main.less" not found`))

	dot, err := NewDAGVisualization(dag).GenerateDOTGraph()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dot, "digraph SitePipeline {"))
	assert.Contains(t, dot, `"html" -> "build";`)
	assert.Contains(t, dot, `"less" -> "build";`)
	assert.Contains(t, dot, `fillcolor="salmon"`)
	assert.Contains(t, dot, `'main.less'`)
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestDAGVisualization_ExportToDOT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.dot")
	require.NoError(t, NewDAGVisualization(vizTestDAG(t)).ExportToDOT(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph")
}

func TestDAGVisualization_GenerateTextSummary(t *testing.T) {
	dag := vizTestDAG(t)
	html, _ := dag.GetNode("html")
	require.NoError(t, html.Execute(context.Background()))
	build, _ := dag.GetNode("build")
	build.SetStatus(StatusCancelled)

	summary, err := NewDAGVisualization(dag).GenerateTextSummary()
	require.NoError(t, err)

	assert.Contains(t, summary, "Execution order: html -> less -> build")
	assert.Contains(t, summary, "Cancelled (1):\n  - build (aggregate)")
	assert.Contains(t, summary, "Completed (1):")
	assert.Contains(t, summary, "Pending (1):\n  - less (transform)")
	assert.Less(t, strings.Index(summary, "Cancelled"), strings.Index(summary, "Completed ("))
}

func TestDAGVisualization_CyclicGraph(t *testing.T) {
	dag := NewDAG()
	require.NoError(t, dag.AddNode(newMockNode("a")))
	require.NoError(t, dag.AddNode(newMockNode("b")))
	require.NoError(t, dag.AddDependency("a", "b"))
	require.NoError(t, dag.AddDependency("b", "a"))

	_, err := NewDAGVisualization(dag).GenerateDAGInfo()
	assert.ErrorIs(t, err, ErrCycleFound)
}
