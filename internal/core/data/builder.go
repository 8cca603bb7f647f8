// Package data merges schema defaults, mixin values and an entity's own
// attribute value into the typed data of one component instance.
package data

import (
	"errors"
	"fmt"

	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
)

// Input describes one build. Raw values are either attribute strings or
// already split maps (map[string]any, map[string]string, Values).
type Input struct {
	Entity    string
	Component string
	Schema    *schema.Schema

	Explicit    any
	HasExplicit bool

	// Mixins holds the raw values the entity's mixins supply for the
	// component, lowest precedence first.
	Mixins []any

	Cache *Cache
}

type Builder struct {
	log log.Log
}

func NewBuilder(logger log.Log) *Builder {
	return &Builder{log: logger}
}

// Build returns the merged data. It never aborts over a bad leaf: every leaf
// that fails to parse falls back to its default and the failures are returned
// joined, next to a complete value.
func (b *Builder) Build(in Input) (any, error) {
	if in.Schema == nil {
		return nil, fmt.Errorf("build %q: %w", in.Component, schema.ErrSchema)
	}
	if in.Cache == nil {
		in.Cache = NewCache()
	}
	if in.Schema.IsSingle() {
		return b.buildSingle(in)
	}
	return b.buildMulti(in)
}

const singleKey = ""

func (b *Builder) buildSingle(in Input) (any, error) {
	def := in.Schema.Single()

	var leaf any
	found := false
	// Sources from lowest to highest precedence; an empty string contributes
	// nothing.
	sources := in.Mixins
	if in.HasExplicit {
		sources = append(sources[:len(sources):len(sources)], in.Explicit)
	}
	for _, src := range sources {
		if s, ok := src.(string); ok && s == "" {
			continue
		}
		if src == nil {
			continue
		}
		leaf, found = src, true
	}

	active := make(map[string]struct{}, 1)
	defer in.Cache.retain(active)

	if !found {
		return cloneValue(def.Default), nil
	}
	value, err := b.convert(in, def, singleKey, leaf, active)
	if err != nil {
		return cloneValue(def.Default), err
	}
	return value, nil
}

func (b *Builder) buildMulti(in Input) (any, error) {
	leaves := make(map[string]any)
	for _, src := range in.Mixins {
		b.overlay(in, leaves, src)
	}
	if in.HasExplicit {
		b.overlay(in, leaves, in.Explicit)
	}

	active := make(map[string]struct{}, len(leaves))
	defer in.Cache.retain(active)

	out := make(Values, len(in.Schema.Fields()))
	var errs []error
	for _, def := range in.Schema.Fields() {
		leaf, ok := leaves[def.Name]
		if !ok {
			out[def.Name] = cloneValue(def.Default)
			continue
		}
		value, err := b.convert(in, def, def.Name, leaf, active)
		if err != nil {
			errs = append(errs, err)
			value = cloneValue(def.Default)
		}
		out[def.Name] = value
	}
	return out, errors.Join(errs...)
}

// overlay copies the keys a source specifies over leaves.
func (b *Builder) overlay(in Input, leaves map[string]any, src any) {
	switch v := src.(type) {
	case nil:
	case string:
		pairs, bare := ParseStyle(v)
		for _, segment := range bare {
			b.log.Warn("value without a property name ignored",
				log.Entity(in.Entity), log.Component(in.Component), log.String("segment", segment))
		}
		for key, raw := range pairs {
			b.set(in, leaves, key, raw)
		}
	case map[string]string:
		for key, raw := range v {
			b.set(in, leaves, key, raw)
		}
	case Values:
		for key, value := range v {
			b.set(in, leaves, key, value)
		}
	case map[string]any:
		for key, value := range v {
			b.set(in, leaves, key, value)
		}
	default:
		b.log.Warn("unsupported raw value ignored",
			log.Entity(in.Entity), log.Component(in.Component), log.String("type", fmt.Sprintf("%T", src)))
	}
}

func (b *Builder) set(in Input, leaves map[string]any, key string, value any) {
	if _, ok := in.Schema.Field(key); !ok {
		b.log.Warn("unknown property ignored",
			log.Entity(in.Entity), log.Component(in.Component), log.String("property", key))
		return
	}
	leaves[key] = value
}

// convert turns one leaf into its typed value. String leaves go through the
// cache slot of their key.
func (b *Builder) convert(in Input, def *schema.Def, key string, leaf any, active map[string]struct{}) (any, error) {
	raw, isString := leaf.(string)
	if isString {
		if value, hit := in.Cache.lookup(key, raw); hit {
			active[key] = struct{}{}
			return value, nil
		}
	}

	var (
		value any
		err   error
	)
	if isString {
		value, err = def.Parse(raw)
	} else {
		value, err = def.Coerce(leaf)
		raw = def.Stringify(leaf)
	}
	if err != nil {
		perr := &PropertyParseError{Entity: in.Entity, Component: in.Component, Key: key, Raw: raw, Err: err}
		b.log.Warn("property parse failed, using default",
			log.Entity(in.Entity), log.Component(in.Component), log.String("property", key),
			log.String("raw", raw), log.Error(err))
		return nil, perr
	}
	if isString {
		in.Cache.store(key, raw, value)
		active[key] = struct{}{}
	}
	return value, nil
}
