package model

import (
	"sort"
	"strings"

	"winmdgen/internal/metadata"
	"winmdgen/internal/tree"
)

// Gate is the conjunction of features and requirements a definition needs.
// Both lists are sorted and free of duplicates.
type Gate struct {
	Features     []string
	Requirements []string
}

// IsEmpty reports an ungated definition.
func (g Gate) IsEmpty() bool {
	return len(g.Features) == 0 && len(g.Requirements) == 0
}

// Terms lists features followed by requirements.
func (g Gate) Terms() []string {
	return append(append([]string(nil), g.Features...), g.Requirements...)
}

// Without drops one feature, typically the one of the emitting namespace.
func (g Gate) Without(feature string) Gate {
	out := Gate{Requirements: g.Requirements}
	for _, f := range g.Features {
		if f != feature {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// Covers reports whether g is a superset of other.
func (g Gate) Covers(other Gate) bool {
	return subset(other.Features, g.Features) && subset(other.Requirements, g.Requirements)
}

// Key is a stable identifier of the gate, empty for an ungated definition.
func (g Gate) Key() string {
	return strings.Join(g.Terms(), ",")
}

func subset(small, large []string) bool {
	set := make(map[string]bool, len(large))
	for _, s := range large {
		set[s] = true
	}
	for _, s := range small {
		if !set[s] {
			return false
		}
	}
	return true
}

// FeatureName names the feature guarding a namespace: the root segment is
// dropped and the rest joined with underscores, so Windows.Win32.Foundation
// becomes Win32_Foundation.
func FeatureName(namespace string) string {
	segments := tree.Segments(namespace)
	if len(segments) > 1 {
		segments = segments[1:]
	}
	return strings.Join(segments, "_")
}

func newGate(features, requirements map[string]bool) Gate {
	return Gate{Features: sortedKeys(features), Requirements: sortedKeys(requirements)}
}

func setOf(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Gate computes the gate of def: the features of every namespace reachable
// through field, parameter and return references plus the requirements of
// def and of everything it reaches. A definition therefore always covers the
// gate of each definition it references.
func (m *Model) Gate(def metadata.TypeDef) Gate {
	if gate, ok := m.gates[def]; ok {
		return gate
	}

	features := make(map[string]bool)
	requirements := make(map[string]bool)
	for _, r := range m.reader.TypeDefRequirements(def) {
		requirements[r] = true
	}

	visited := map[metadata.TypeDef]bool{}
	queue := m.references(def)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true

		features[FeatureName(m.reader.TypeDefNamespace(next))] = true
		for _, r := range m.reader.TypeDefRequirements(next) {
			requirements[r] = true
		}
		queue = append(queue, m.references(next)...)
	}

	gate := newGate(features, requirements)
	m.gates[def] = gate
	return gate
}

// FunctionGate computes the gate of one imported function of an API class:
// the requirements of the class plus the features and requirements its
// signature reaches. Functions are gated one by one so that a single exotic
// signature does not gate every function of the class.
func (m *Model) FunctionGate(class metadata.TypeDef, method metadata.Method) Gate {
	features := make(map[string]bool)
	requirements := make(map[string]bool)
	for _, r := range m.reader.TypeDefRequirements(class) {
		requirements[r] = true
	}

	signature := m.reader.MethodSignature(method)
	var targets []metadata.TypeDef
	for _, param := range signature.Params {
		targets = m.collect(targets, param.Type)
	}
	targets = m.collect(targets, signature.Return)

	for _, target := range targets {
		features[FeatureName(m.reader.TypeDefNamespace(target))] = true
		gate := m.Gate(target)
		for _, f := range gate.Features {
			features[f] = true
		}
		for _, r := range gate.Requirements {
			requirements[r] = true
		}
	}
	return newGate(features, requirements)
}

// references lists the definitions def names directly in its instance
// fields and method signatures. Names the reader does not know are skipped.
func (m *Model) references(def metadata.TypeDef) []metadata.TypeDef {
	if refs, ok := m.refs[def]; ok {
		return refs
	}

	var refs []metadata.TypeDef
	for _, field := range m.reader.TypeDefFields(def) {
		if !m.reader.FieldIsLiteral(field) {
			refs = m.collect(refs, m.reader.FieldType(field))
		}
	}
	for _, method := range m.reader.TypeDefMethods(def) {
		signature := m.reader.MethodSignature(method)
		for _, param := range signature.Params {
			refs = m.collect(refs, param.Type)
		}
		refs = m.collect(refs, signature.Return)
	}

	m.refs[def] = refs
	return refs
}

// collect appends the known definitions named anywhere in t.
func (m *Model) collect(refs []metadata.TypeDef, t metadata.Type) []metadata.TypeDef {
	switch t := t.(type) {
	case metadata.Pointer:
		return m.collect(refs, t.Elem)
	case metadata.Array:
		return m.collect(refs, t.Elem)
	case metadata.Named:
		if target, ok := m.reader.FindType(t.TypeName); ok {
			refs = append(refs, target)
		}
		for _, generic := range t.Generics {
			refs = m.collect(refs, generic)
		}
	}
	return refs
}
