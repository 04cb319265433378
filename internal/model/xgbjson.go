package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// treeNode is one node of an XGBoost JSON tree dump. Internal nodes carry a
// split feature and condition with yes/no child ids; leaves carry a value.
type treeNode struct {
	NodeID         int        `json:"nodeid"`
	Split          string     `json:"split"`
	SplitCondition float64    `json:"split_condition"`
	Yes            int        `json:"yes"`
	No             int        `json:"no"`
	Missing        int        `json:"missing"`
	Leaf           *float64   `json:"leaf"`
	Children       []treeNode `json:"children"`
}

// tree is a flattened regression tree for fast evaluation.
type tree struct {
	feature   []int     // split feature per node, -1 for leaves
	condition []float64 // split threshold per node
	yes, no   []int     // child slot indices
	leaf      []float64 // leaf value (valid when feature == -1)
}

// xgbArtifact is the on-disk form: either a bare array of trees (the raw
// `Booster.dump_model(dump_format="json")` output) or a wrapper object that
// additionally carries the ensemble base score.
type xgbArtifact struct {
	BaseScore float64    `json:"base_score"`
	Trees     []treeNode `json:"trees"`
}

// XGBEnsemble is a pure-Go evaluator for XGBoost regression tree dumps. Tree
// outputs are summed and offset by the base score, matching the booster's
// own prediction rule. It needs no cgo and is the default backend.
type XGBEnsemble struct {
	trees  []tree
	base   float64
	schema string
}

// LoadXGBEnsemble reads an XGBoost JSON dump from path. schemaVersion is
// declared by the registry manifest, not the artifact.
func LoadXGBEnsemble(path, schemaVersion string) (*XGBEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	return ParseXGBEnsemble(data, schemaVersion)
}

// ParseXGBEnsemble parses an XGBoost JSON dump (bare tree array or wrapper
// object with base_score).
func ParseXGBEnsemble(data []byte, schemaVersion string) (*XGBEnsemble, error) {
	var art xgbArtifact
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &art.Trees); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
	} else {
		if err := json.Unmarshal(data, &art); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidArtifact)
	}

	e := &XGBEnsemble{base: art.BaseScore, schema: schemaVersion}
	for i := range art.Trees {
		t, err := flattenTree(&art.Trees[i])
		if err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, i, err)
		}
		e.trees = append(e.trees, t)
	}
	return e, nil
}

// flattenTree converts the nested dump into slot-indexed arrays. Node ids in
// the dump are unique within a tree but not dense, so slots are assigned in
// traversal order and child references resolved through an id map.
func flattenTree(root *treeNode) (tree, error) {
	var t tree
	slot := map[int]int{}

	var walk func(n *treeNode) error
	walk = func(n *treeNode) error {
		if _, dup := slot[n.NodeID]; dup {
			return fmt.Errorf("duplicate node id %d", n.NodeID)
		}
		slot[n.NodeID] = len(t.feature)
		t.feature = append(t.feature, 0)
		t.condition = append(t.condition, 0)
		t.yes = append(t.yes, 0)
		t.no = append(t.no, 0)
		t.leaf = append(t.leaf, 0)
		s := slot[n.NodeID]

		if n.Leaf != nil {
			t.feature[s] = -1
			t.leaf[s] = *n.Leaf
			return nil
		}
		idx, err := splitIndex(n.Split)
		if err != nil {
			return err
		}
		t.feature[s] = idx
		t.condition[s] = n.SplitCondition
		for i := range n.Children {
			if err := walk(&n.Children[i]); err != nil {
				return err
			}
		}
		yes, ok := slot[n.Yes]
		if !ok {
			return fmt.Errorf("node %d: missing yes child %d", n.NodeID, n.Yes)
		}
		no, ok := slot[n.No]
		if !ok {
			return fmt.Errorf("node %d: missing no child %d", n.NodeID, n.No)
		}
		t.yes[s], t.no[s] = yes, no
		return nil
	}
	if err := walk(root); err != nil {
		return tree{}, err
	}
	return t, nil
}

// splitIndex parses a split feature reference: "f12" or a bare index.
func splitIndex(s string) (int, error) {
	s = strings.TrimPrefix(s, "f")
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid split feature %q", s)
	}
	return idx, nil
}

func (t *tree) eval(features []float64) (float64, error) {
	s := 0
	for t.feature[s] >= 0 {
		fi := t.feature[s]
		if fi >= len(features) {
			return 0, fmt.Errorf("split feature %d outside row of width %d", fi, len(features))
		}
		if features[fi] < t.condition[s] {
			s = t.yes[s]
		} else {
			s = t.no[s]
		}
	}
	return t.leaf[s], nil
}

// Score sums the leaf values of every tree for each row, plus the base
// score.
func (e *XGBEnsemble) Score(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		sum := e.base
		for ti := range e.trees {
			v, err := e.trees[ti].eval(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			sum += v
		}
		out[i] = sum
	}
	return out, nil
}

// SchemaVersion returns the schema declared for this model.
func (e *XGBEnsemble) SchemaVersion() string { return e.schema }

// Close is a no-op for the pure-Go backend.
func (e *XGBEnsemble) Close() error { return nil }
