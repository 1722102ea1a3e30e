//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package manifest

// EmptyConfigMapRef is the reference to configmap that is not configured,
// {name: null}. Optional integrations render it when their parameter is
// missing in the environment.
func EmptyConfigMapRef() Value {
	return NewMap().Set("name", Scalar{})
}

// RemoveEmptyConfigMaps deletes every map entry whose value is the empty
// configmap reference, at any depth. A sequence item left empty by
// the deletion is removed from the sequence. The tree is modified in place,
// the function is idempotent.
func RemoveEmptyConfigMaps(v Value) {
	prune(v, EmptyConfigMapRef())
}

// returns true if node became empty map due to deletion
func prune(v Value, sentinel Value) bool {
	switch node := v.(type) {
	case *Map:
		if node.Len() == 0 {
			return false
		}

		for _, key := range node.Keys() {
			val := node.fields[key]
			if Equal(val, sentinel) {
				node.Delete(key)
				continue
			}
			prune(val, sentinel)
		}

		return node.Len() == 0
	case *Seq:
		items := node.Items[:0]
		for _, item := range node.Items {
			if prune(item, sentinel) {
				continue
			}
			items = append(items, item)
		}
		node.Items = items
	}

	return false
}
