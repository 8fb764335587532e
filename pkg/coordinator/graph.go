package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/heimdalr/dag"
)

var (
	// ErrUnknownDependency is returned when a stage depends on a stage that does not exist
	ErrUnknownDependency = errors.New("stage depends on unknown stage")
	// ErrDuplicateStage is returned when two stages share a name
	ErrDuplicateStage = errors.New("duplicate stage")
)

// Stage is a unit of a load
type Stage struct {
	Name      string
	DependsOn []string
	Run       func(ctx context.Context) error
}

// Graph orders the stages of a load
type Graph struct {
	dag    *dag.DAG
	stages map[string]*Stage
	mutex  sync.RWMutex
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		dag:    dag.NewDAG(),
		stages: make(map[string]*Stage),
	}
}

// Build replaces the graph with stages
func (g *Graph) Build(stages []Stage) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.dag = dag.NewDAG()
	g.stages = make(map[string]*Stage, len(stages))

	for i := range stages {
		stage := &stages[i]
		if _, exists := g.stages[stage.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, stage.Name)
		}

		g.stages[stage.Name] = stage

		if err := g.dag.AddVertexByID(stage.Name, stage.Name); err != nil {
			return fmt.Errorf("failed to add stage %s: %w", stage.Name, err)
		}
	}

	// Edges run dependency → dependent
	for i := range stages {
		stage := &stages[i]

		for _, dep := range stage.DependsOn {
			if _, exists := g.stages[dep]; !exists {
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, stage.Name, dep)
			}

			// AddEdge returns an error if it would create a cycle
			if err := g.dag.AddEdge(dep, stage.Name); err != nil {
				return fmt.Errorf("invalid dependency %s → %s: %w", dep, stage.Name, err)
			}
		}
	}

	return nil
}

// Stage returns a stage by name
func (g *Graph) Stage(name string) (*Stage, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	stage, exists := g.stages[name]

	return stage, exists
}

// Dependencies returns the direct dependencies of a stage
func (g *Graph) Dependencies(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	parents, err := g.dag.GetParents(name)
	if err != nil {
		return nil
	}

	deps := make([]string, 0, len(parents))
	for id := range parents {
		deps = append(deps, id)
	}

	sort.Strings(deps)

	return deps
}

// Descendants returns every stage that transitively depends on name
func (g *Graph) Descendants(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	descendants, err := g.dag.GetDescendants(name)
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(descendants))
	for id := range descendants {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}

// Levels groups stages by dependency depth. Stages inside a level are sorted.
func (g *Graph) Levels() [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	levels := g.calculateLevels()

	maxLevel := -1
	for _, level := range levels {
		if level > maxLevel {
			maxLevel = level
		}
	}

	grouped := make([][]string, maxLevel+1)
	for name, level := range levels {
		grouped[level] = append(grouped[level], name)
	}

	for i := range grouped {
		sort.Strings(grouped[i])
	}

	return grouped
}

// Order returns every stage in execution order
func (g *Graph) Order() []string {
	var order []string
	for _, level := range g.Levels() {
		order = append(order, level...)
	}

	return order
}

// calculateLevels assigns each stage one more than its deepest dependency
func (g *Graph) calculateLevels() map[string]int {
	levels := make(map[string]int, len(g.stages))
	for name := range g.stages {
		levels[name] = 0
	}

	// Keep updating levels until stable
	changed := true
	for changed {
		changed = false

		for name, stage := range g.stages {
			maxDepLevel := -1
			for _, dep := range stage.DependsOn {
				if depLevel, exists := levels[dep]; exists && depLevel > maxDepLevel {
					maxDepLevel = depLevel
				}
			}

			if maxDepLevel >= 0 && maxDepLevel+1 > levels[name] {
				levels[name] = maxDepLevel + 1
				changed = true
			}
		}
	}

	return levels
}

// GenerateDOTFormat generates a DOT format representation of the graph
func (g *Graph) GenerateDOTFormat() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	names := make([]string, 0, len(g.stages))
	for name := range g.stages {
		names = append(names, name)
	}

	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("digraph load {\n")
	sb.WriteString("  rankdir=LR;\n")

	for _, name := range names {
		if strings.HasPrefix(name, "fact.") {
			fmt.Fprintf(&sb, "  \"%s\" [shape=box, style=filled, fillcolor=lightblue];\n", name)
		} else {
			fmt.Fprintf(&sb, "  \"%s\";\n", name)
		}

		for _, dep := range g.stages[name].DependsOn {
			fmt.Fprintf(&sb, "  \"%s\" -> \"%s\";\n", dep, name)
		}
	}

	sb.WriteString("}")

	return sb.String()
}
