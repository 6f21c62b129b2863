package graph_test

import (
	"fmt"

	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
)

func ExampleBuild() {
	m := &manifest.Manifest{
		ID:           "demo",
		Assets:       []manifest.Asset{{ID: "raw"}, {ID: "clean"}},
		Computations: []manifest.Computation{{ID: "prep", Inputs: []string{"raw"}, Outputs: []string{"clean"}}},
		Attestations: []manifest.Attestation{{ID: "sig", Verifies: []string{"clean"}}},
	}

	g, err := graph.Build(m, config.Default())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, n := range g.Nodes {
		fmt.Println(n.ID, n.Kind, n.Role)
	}
	// Output:
	// raw asset source
	// clean asset sink
	// prep action intermediate
	// sig attestation intermediate
}
