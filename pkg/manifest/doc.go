// Package manifest defines the content-provenance manifest consumed by
// provgraph and loads it, together with the related manifests it references.
//
// A manifest declares assets, the computations that consume and produce them,
// and attestations that verify individual assets or computations. Order of
// declaration is significant: the layout engine places groups left to right
// in the order they appear.
//
// # Formats
//
// Manifests are JSON or TOML documents with the same field names:
//
//	{
//	  "id": "train-run",
//	  "steps": [{"id": "prep", "label": "Prepare", "phase": "transform"}],
//	  "assets": [{"id": "IN1", "type": "Data"}, {"id": "OUT1", "type": "Model"}],
//	  "computations": [{"id": "C1", "step": "prep", "inputs": ["IN1"], "outputs": ["OUT1"]}],
//	  "attestations": [{"id": "ATT1", "verifies": ["OUT1"]}]
//	}
//
// # Related manifests
//
// The "related" list references other workflows (ancestors, children or
// replays). [Loader] fetches them concurrently; a failed fetch is logged and
// recorded in [Bundle.Failures] without aborting the others.
package manifest
