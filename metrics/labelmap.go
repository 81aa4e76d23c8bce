// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics contains counters that are published through expvar and
// can be rendered in Prometheus text exposition format.
package metrics

import (
	"cmp"
	"expvar"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// LabelMap is a set of counters keyed by a struct of labels, published as
// a single [expvar.Var].
//
// T must be a struct whose fields are all strings. The lowercased field
// names are the Prometheus label names, unless a "prom" struct tag is
// present. Values must be valid label values without quoting.
type LabelMap[T comparable] struct {
	name string
	help string

	m sync.Map // map[T]*expvar.Int

	mu     sync.RWMutex
	sorted []entry[T] // by labels, for stable output
}

type entry[T comparable] struct {
	key    T
	labels string // {label="value",...}
	val    *expvar.Int
}

var (
	registryMu sync.Mutex
	registry   []promWriter // sorted by name
)

type promWriter interface {
	metricName() string
	WritePrometheus(io.Writer)
}

// NewLabelMap creates a LabelMap named name, publishes it with
// expvar.Publish, and registers it for [WritePrometheus].
// Like expvar.Publish, it panics if name is already in use.
func NewLabelMap[T comparable](name, help string) *LabelMap[T] {
	var zero T
	_ = labelString(zero) // panic early if T is invalid
	m := &LabelMap[T]{name: name, help: help}
	expvar.Publish(name, m)

	registryMu.Lock()
	defer registryMu.Unlock()
	i, _ := slices.BinarySearchFunc(registry, name, func(w promWriter, name string) int {
		return cmp.Compare(w.metricName(), name)
	})
	registry = slices.Insert(registry, i, promWriter(m))
	return m
}

func labelString(k any) string {
	rv := reflect.ValueOf(k)
	t := rv.Type()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("LabelMap must use keys of type struct; got %v", t))
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i := range t.NumField() {
		ft := t.Field(i)
		if ft.Type.Kind() != reflect.String {
			panic(fmt.Sprintf("LabelMap key field %q has unsupported type %v", ft.Name, ft.Type))
		}
		if i > 0 {
			sb.WriteString(",")
		}
		label := ft.Tag.Get("prom")
		if label == "" {
			label = strings.ToLower(ft.Name)
		}
		fmt.Fprintf(&sb, "%s=%q", label, rv.Field(i).String())
	}
	sb.WriteString("}")
	return sb.String()
}

func (v *LabelMap[T]) metricName() string { return v.name }

// String implements expvar.Var, rendering the counters as a JSON object
// keyed by label string.
func (v *LabelMap[T]) String() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range v.sorted {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%q:%d", e.labels, e.val.Value())
	}
	sb.WriteString("}")
	return sb.String()
}

// counter returns the counter for key, creating it on first use.
func (v *LabelMap[T]) counter(key T) *expvar.Int {
	if c, ok := v.m.Load(key); ok {
		return c.(*expvar.Int)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.m.Load(key); ok {
		return c.(*expvar.Int)
	}
	e := entry[T]{key: key, labels: labelString(key), val: new(expvar.Int)}
	i, _ := slices.BinarySearchFunc(v.sorted, e.labels, func(e entry[T], labels string) int {
		return cmp.Compare(e.labels, labels)
	})
	v.sorted = slices.Insert(v.sorted, i, e)
	v.m.Store(key, e.val)
	return e.val
}

// Add adds delta to the counter for key.
func (v *LabelMap[T]) Add(key T, delta int64) {
	v.counter(key).Add(delta)
}

// Value returns the counter for key, or 0 if it was never added to.
func (v *LabelMap[T]) Value(key T) int64 {
	if c, ok := v.m.Load(key); ok {
		return c.(*expvar.Int).Value()
	}
	return 0
}

// Do calls f for each counter in label order.
func (v *LabelMap[T]) Do(f func(key T, value int64)) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, e := range v.sorted {
		f(e.key, e.val.Value())
	}
}

// Init resets all counters by forgetting them.
func (v *LabelMap[T]) Init() *LabelMap[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sorted = nil
	v.m.Clear()
	return v
}

// WritePrometheus writes v to w in Prometheus text exposition format, as
// a counter.
func (v *LabelMap[T]) WritePrometheus(w io.Writer) {
	if v.help != "" {
		fmt.Fprintf(w, "# HELP %s %s\n", v.name, v.help)
	}
	fmt.Fprintf(w, "# TYPE %s counter\n", v.name)
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, e := range v.sorted {
		fmt.Fprintf(w, "%s%s %d\n", v.name, e.labels, e.val.Value())
	}
}

// WritePrometheus writes every LabelMap created by NewLabelMap to w, in
// name order.
func WritePrometheus(w io.Writer) {
	registryMu.Lock()
	all := slices.Clone(registry)
	registryMu.Unlock()
	for _, m := range all {
		m.WritePrometheus(w)
	}
}
