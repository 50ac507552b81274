package controller

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
)

const (
	opAdd    = "add"
	opChange = "change"
	opRemove = "remove"
)

// fieldChange is one leaf difference between two specs.
type fieldChange struct {
	Op   string
	Path []string
	Old  any
	New  any
}

func (c fieldChange) String() string {
	return c.Op + " spec." + strings.Join(c.Path, ".")
}

// encodeSpec renders the spec the way it is stored in the last-handled annotation.
func encodeSpec(spec devworkspacev1alpha1.DevWorkspaceSpec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to encode spec: %w", err)
	}
	return string(data), nil
}

// diffSpecs lists the leaf fields that differ between the last handled spec
// and the current one. Both sides are compared in their JSON form.
func diffSpecs(lastHandled string, current devworkspacev1alpha1.DevWorkspaceSpec) ([]fieldChange, error) {
	old := map[string]any{}
	if err := json.Unmarshal([]byte(lastHandled), &old); err != nil {
		return nil, fmt.Errorf("failed to decode last handled spec: %w", err)
	}

	encoded, err := encodeSpec(current)
	if err != nil {
		return nil, err
	}
	cur := map[string]any{}
	if err := json.Unmarshal([]byte(encoded), &cur); err != nil {
		return nil, fmt.Errorf("failed to decode current spec: %w", err)
	}

	var reporter specDiffReporter
	cmp.Equal(old, cur, cmp.Reporter(&reporter))
	return reporter.changes, nil
}

// overridesChanged reports whether any change touches spec.overrides.
func overridesChanged(changes []fieldChange) bool {
	for _, c := range changes {
		if len(c.Path) > 0 && c.Path[0] == "overrides" {
			return true
		}
	}
	return false
}

func changeStrings(changes []fieldChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.String())
	}
	return out
}

// specDiffReporter collects unequal leaves reported by cmp.
type specDiffReporter struct {
	path    cmp.Path
	changes []fieldChange
}

func (r *specDiffReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *specDiffReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func (r *specDiffReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}

	vx, vy := r.path.Last().Values()
	change := fieldChange{Path: fieldPath(r.path)}
	switch {
	case !vx.IsValid():
		change.Op = opAdd
		change.New = vy.Interface()
	case !vy.IsValid():
		change.Op = opRemove
		change.Old = vx.Interface()
	default:
		change.Op = opChange
		change.Old = vx.Interface()
		change.New = vy.Interface()
	}
	r.changes = append(r.changes, change)
}

func fieldPath(p cmp.Path) []string {
	var path []string
	for _, step := range p {
		switch s := step.(type) {
		case cmp.MapIndex:
			path = append(path, fmt.Sprint(s.Key().Interface()))
		case cmp.SliceIndex:
			ix, iy := s.SplitKeys()
			if ix < 0 {
				ix = iy
			}
			path = append(path, strconv.Itoa(ix))
		}
	}
	return path
}
