package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Node is one node of a decision tree. Nodes are stored in a flat slice and
// linked by index, leaves carry the class-probability distribution.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Leaf      bool      `json:"leaf"`
	Probs     []float64 `json:"probs,omitempty"`
}

// Tree is a single decision tree of the forest.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a serialized random-forest classifier. It is loaded once at
// startup and never mutated afterwards.
type Forest struct {
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version"`
	ClassNames   []string `json:"classes"`
	FeatureNames []string `json:"features"`
	Trees        []Tree   `json:"trees"`
}

// Load reads and validates a forest artifact from disk.
func Load(path string) (*Forest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var f Forest
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}

	return &f, nil
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return errors.New("no trees")
	}
	if len(f.ClassNames) < 2 {
		return errors.New("need at least two classes")
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if len(n.Probs) != len(f.ClassNames) {
					return fmt.Errorf("tree %d node %d: %d probs for %d classes", ti, ni, len(n.Probs), len(f.ClassNames))
				}
				continue
			}
			if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
			if n.Feature < 0 || n.Feature >= len(f.FeatureNames) {
				return fmt.Errorf("tree %d node %d: feature index out of range", ti, ni)
			}
		}
	}
	return nil
}

// PredictProba returns the class-probability distribution for the features,
// averaged across all trees. The returned order matches Classes().
func (f *Forest) PredictProba(features []float64) ([]float64, error) {
	if len(features) != len(f.FeatureNames) {
		return nil, fmt.Errorf("expected %d features, got %d", len(f.FeatureNames), len(features))
	}

	sum := make([]float64, len(f.ClassNames))
	for ti := range f.Trees {
		probs, err := f.Trees[ti].proba(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
		for i, p := range probs {
			sum[i] += p
		}
	}

	n := float64(len(f.Trees))
	for i := range sum {
		sum[i] /= n
	}
	return sum, nil
}

func (t *Tree) proba(features []float64) ([]float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Probs, nil
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	// Index links are validated at load time, so only a cycle can get here.
	return nil, errors.New("tree traversal did not reach a leaf")
}

// Classes returns the class names in probability-column order.
func (f *Forest) Classes() []string {
	return f.ClassNames
}

// Name returns the model name from the artifact.
func (f *Forest) Name() string {
	return f.ModelName
}

// Version returns the model version from the artifact.
func (f *Forest) Version() string {
	return f.ModelVersion
}
