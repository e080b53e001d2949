// Package hydrate converts raw JSON binding documents into typed binding
// maps for chain levels.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context carries identifiers tied to a bindings document.
type Context struct {
	Ref   string
	Scope string
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded bindings.
type PostHook[V any] func(Context, map[string]V) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[V any] func(Context, map[string]any) (map[string]V, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[V any] func(*Decoder[V])

// Decoder converts raw payloads into typed binding maps.
type Decoder[V any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[V]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[V]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[V any](hook PreHook) DecoderOption[V] {
	return func(d *Decoder[V]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[V any](hook PostHook[V]) DecoderOption[V] {
	return func(d *Decoder[V]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[V any]() DecoderOption[V] {
	return func(d *Decoder[V]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDecoderConfig allows callers to configure the json.Decoder directly.
func WithDecoderConfig[V any](configure func(*json.Decoder)) DecoderOption[V] {
	return func(d *Decoder[V]) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[V any](decoder CustomDecoder[V]) DecoderOption[V] {
	return func(d *Decoder[V]) {
		d.custom = decoder
	}
}

func NewDecoder[V any](opts ...DecoderOption[V]) *Decoder[V] {
	d := &Decoder[V]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into typed bindings applying configured hooks.
func (d *Decoder[V]) Decode(ctx Context, payload map[string]any) (map[string]V, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for ref %q", ctx.Ref)
	}

	current, err := clonePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("hydrate: clone payload for ref %q: %w", ctx.Ref, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for ref %q failed: %w", ctx.Ref, err)
		}
		if next != nil {
			current = next
		}
	}

	var result map[string]V
	if d.custom != nil {
		result, err = d.custom(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: custom decoder for ref %q failed: %w", ctx.Ref, err)
		}
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: marshal payload for ref %q: %w", ctx.Ref, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			if configure != nil {
				configure(decoder)
			}
		}
		if err := decoder.Decode(&result); err != nil {
			return nil, fmt.Errorf("hydrate: decode ref %q: %w", ctx.Ref, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, result); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for ref %q failed: %w", ctx.Ref, err)
		}
	}

	return result, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
