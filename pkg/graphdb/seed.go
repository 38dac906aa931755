package graphdb

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wyrmgraph/wyrm/pkg/storage"
)

// SeedFile is the YAML shape a fresh database can be bootstrapped from,
// grounded on the teacher's pkg/storage/loader.go Neo4j-export loading (same
// "nodes first, relationships second, bulk insert" structure) but reworked
// onto YAML and WyrmDB's uint64 ids: since a seed file is authored before
// any id exists, nodes are named by an arbitrary string Ref instead, and
// relationships address their endpoints by that Ref.
type SeedFile struct {
	Nodes         []SeedNode         `yaml:"nodes"`
	Relationships []SeedRelationship `yaml:"relationships"`
}

// SeedNode describes one node to create. Ref is scoped to this file only;
// it is never persisted.
type SeedNode struct {
	Ref        string                 `yaml:"ref"`
	Labels     []string               `yaml:"labels"`
	Properties map[string]interface{} `yaml:"properties"`
}

// SeedRelationship describes one relationship to create between two Refs
// declared in Nodes.
type SeedRelationship struct {
	Type       string                 `yaml:"type"`
	Start      string                 `yaml:"start"`
	End        string                 `yaml:"end"`
	Properties map[string]interface{} `yaml:"properties"`
}

// ImportSeedFile reads a YAML seed file and materializes its nodes and
// relationships into engine via ids, the same allocator the Cypher executor
// draws from, so seeded rows participate in the same monotonic id sequence
// as anything CREATE adds afterward.
func ImportSeedFile(ctx context.Context, engine storage.Engine, ids *storage.IDAllocator, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("graphdb: read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("graphdb: parse seed file: %w", err)
	}

	refToID := make(map[string]uint64, len(seed.Nodes))
	for _, n := range seed.Nodes {
		if n.Ref == "" {
			return fmt.Errorf("graphdb: seed node missing ref")
		}
		id := ids.NextNodeID()
		if err := engine.CreateNodeWithID(ctx, id, n.Labels, n.Properties); err != nil {
			return fmt.Errorf("graphdb: seed node %q: %w", n.Ref, err)
		}
		refToID[n.Ref] = id
	}

	for _, r := range seed.Relationships {
		startID, ok := refToID[r.Start]
		if !ok {
			return fmt.Errorf("graphdb: seed relationship references unknown start ref %q", r.Start)
		}
		endID, ok := refToID[r.End]
		if !ok {
			return fmt.Errorf("graphdb: seed relationship references unknown end ref %q", r.End)
		}
		relType := r.Type
		if relType == "" {
			relType = "RELATED_TO"
		}
		id := ids.NextRelationshipID()
		if err := engine.CreateRelationshipWithID(ctx, id, relType, startID, endID, r.Properties); err != nil {
			return fmt.Errorf("graphdb: seed relationship %s->%s: %w", r.Start, r.End, err)
		}
	}

	return nil
}

// ExportSeedFile writes the current contents of engine to a YAML seed file
// in the same shape ImportSeedFile reads, using "n" followed by each node's
// numeric id as its Ref — round-tripping an export through ImportSeedFile
// reassigns fresh ids but preserves the graph's shape.
func ExportSeedFile(ctx context.Context, engine storage.Engine, path string) error {
	nodes, err := engine.AllNodes(ctx)
	if err != nil {
		return fmt.Errorf("graphdb: export: list nodes: %w", err)
	}
	rels, err := engine.AllRelationships(ctx)
	if err != nil {
		return fmt.Errorf("graphdb: export: list relationships: %w", err)
	}

	seed := SeedFile{
		Nodes:         make([]SeedNode, 0, len(nodes)),
		Relationships: make([]SeedRelationship, 0, len(rels)),
	}
	for _, n := range nodes {
		seed.Nodes = append(seed.Nodes, SeedNode{
			Ref:        refFor(n.ID),
			Labels:     n.Labels,
			Properties: n.Properties,
		})
	}
	for _, r := range rels {
		seed.Relationships = append(seed.Relationships, SeedRelationship{
			Type:       r.Type,
			Start:      refFor(r.StartNodeID),
			End:        refFor(r.EndNodeID),
			Properties: r.Properties,
		})
	}

	out, err := yaml.Marshal(seed)
	if err != nil {
		return fmt.Errorf("graphdb: export: marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("graphdb: export: write file: %w", err)
	}
	return nil
}

func refFor(id uint64) string {
	return fmt.Sprintf("n%d", id)
}
