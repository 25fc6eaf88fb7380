package model

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Registry maps names to entities and remembers insertion order, so listings
// sent to clients and files written to disk are stable.
type Registry[T any] struct {
	order []string
	items map[string]T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: map[string]T{}}
}

func (r *Registry[T]) Len() int { return len(r.order) }

func (r *Registry[T]) Has(name string) bool {
	_, ok := r.items[name]
	return ok
}

func (r *Registry[T]) Get(name string) (T, bool) {
	v, ok := r.items[name]
	return v, ok
}

// Put inserts or replaces an entry. Replacing keeps the original position.
func (r *Registry[T]) Put(name string, v T) {
	if r.items == nil {
		r.items = map[string]T{}
	}
	if _, ok := r.items[name]; !ok {
		r.order = append(r.order, name)
	}
	r.items[name] = v
}

// Delete removes an entry and reports whether it existed.
func (r *Registry[T]) Delete(name string) bool {
	if _, ok := r.items[name]; !ok {
		return false
	}
	delete(r.items, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the keys in insertion order.
func (r *Registry[T]) Names() []string {
	return append([]string(nil), r.order...)
}

// Each visits entries in insertion order until fn returns false.
func (r *Registry[T]) Each(fn func(name string, v T) bool) {
	for _, n := range r.order {
		if !fn(n, r.items[n]) {
			return
		}
	}
}

// MarshalJSON writes a JSON object whose keys follow insertion order.
func (r *Registry[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.items[n])
		if err != nil {
			return nil, errors.Wrapf(err, "entry %q", n)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the key order of the document.
func (r *Registry[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Registry[T]{items: map[string]T{}}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Errorf("expected object, got %v", tok)
	}
	out := Registry[T]{items: map[string]T{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Errorf("expected key, got %v", tok)
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return errors.Wrapf(err, "entry %q", name)
		}
		out.Put(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func (r *Registry[T]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, n := range r.order {
		var val yaml.Node
		if err := val.Encode(r.items[n]); err != nil {
			return nil, errors.Wrapf(err, "entry %q", n)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n},
			&val,
		)
	}
	return node, nil
}

func (r *Registry[T]) UnmarshalYAML(node *yaml.Node) error {
	out := Registry[T]{items: map[string]T{}}
	if node.Kind != yaml.MappingNode {
		if node.Tag == "!!null" {
			*r = out
			return nil
		}
		return errors.Errorf("line %d: expected mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var v T
		if err := node.Content[i+1].Decode(&v); err != nil {
			return errors.Wrapf(err, "entry %q", name)
		}
		out.Put(name, v)
	}
	*r = out
	return nil
}
