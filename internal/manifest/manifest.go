//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

// Package manifest is a tree of deployment manifest.
// Each node is either a map, a sequence or a scalar.
package manifest

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Value is a node of manifest tree: *Map, *Seq or Scalar
type Value interface{ value() }

// Map is a mapping node, it preserves the order of keys
type Map struct {
	keys   []string
	fields map[string]Value
}

// Seq is a sequence node
type Seq struct {
	Items []Value
}

// Scalar is a leaf node, nil represents null
type Scalar struct {
	Value any
}

func (*Map) value()   {}
func (*Seq) value()   {}
func (Scalar) value() {}

// NewMap creates an empty map node
func NewMap() *Map {
	return &Map{fields: map[string]Value{}}
}

func (m *Map) Len() int { return len(m.keys) }

// Keys of the map in document order
func (m *Map) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Map) Get(key string) (Value, bool) {
	val, has := m.fields[key]
	return val, has
}

func (m *Map) Set(key string, val Value) *Map {
	if _, has := m.fields[key]; !has {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = val
	return m
}

func (m *Map) Delete(key string) {
	if _, has := m.fields[key]; !has {
		return
	}

	delete(m.fields, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Parse YAML document into manifest tree
func Parse(b []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}

	if doc.Kind == 0 {
		return nil, fmt.Errorf("empty manifest")
	}

	return fromNode(&doc)
}

func fromNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Scalar{}, nil
		}
		return fromNode(node.Content[0])
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			val, err := fromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(node.Content[i].Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := &Seq{Items: make([]Value, 0, len(node.Content))}
		for _, item := range node.Content {
			val, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, val)
		}
		return seq, nil
	case yaml.ScalarNode:
		var val any
		if err := node.Decode(&val); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Scalar{Value: val}, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node %v", node.Line, node.Kind)
	}
}

// Interface converts manifest tree to plain Go values
// (map[string]any, []any and scalars), e.g. for JSON encoding.
func Interface(v Value) any {
	switch node := v.(type) {
	case *Map:
		m := make(map[string]any, node.Len())
		for _, key := range node.keys {
			m[key] = Interface(node.fields[key])
		}
		return m
	case *Seq:
		seq := make([]any, 0, len(node.Items))
		for _, item := range node.Items {
			seq = append(seq, Interface(item))
		}
		return seq
	case Scalar:
		return node.Value
	default:
		return nil
	}
}

// Equal checks structural equality of manifest trees.
// The order of map keys is not significant.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for key, val := range x.fields {
			other, has := y.fields[key]
			if !has || !Equal(val, other) {
				return false
			}
		}
		return true
	case *Seq:
		y, ok := b.(*Seq)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case Scalar:
		y, ok := b.(Scalar)
		return ok && reflect.DeepEqual(x.Value, y.Value)
	default:
		return a == nil && b == nil
	}
}

// Find collects values of the key at any depth of the tree
func Find(v Value, key string) []Value {
	seq := []Value{}
	find(v, key, &seq)
	return seq
}

func find(v Value, key string, seq *[]Value) {
	switch node := v.(type) {
	case *Map:
		for _, k := range node.keys {
			val := node.fields[k]
			if k == key {
				*seq = append(*seq, val)
			}
			find(val, key, seq)
		}
	case *Seq:
		for _, item := range node.Items {
			find(item, key, seq)
		}
	}
}
