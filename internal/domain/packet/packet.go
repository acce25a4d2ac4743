// Package packet models a single JSON message travelling on the rapid.
//
// A Packet is an ordered set of top-level keys. Keys are kept in arrival order and new
// keys are appended at the end; a key holding a value can never be replaced, while a
// key holding JSON null counts as absent and is filled in where it stands.
// This gives the solution key its set-once semantics for free: a handler only sees
// packets without a "@løsning" value and a second Set on the same key fails.
package packet

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	KeyNeed        = "@behov"
	KeyID          = "@id"
	KeySolution    = "@løsning"
	KeySubject     = "fødselsnummer"
	KeyVedtaksID   = "vedtaksperiodeId"
	KeyWindowStart = "periodeFom"
	KeyWindowEnd   = "periodeTom"

	// DateLayout is the ISO-8601 calendar date used for every date on the rapid.
	DateLayout = "2006-01-02"
)

var (
	ErrNotObject  = errors.New("packet: payload is not a JSON object")
	ErrKeyExists  = errors.New("packet: key already set")
	ErrKeyMissing = errors.New("packet: key missing")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Packet struct {
	keys   []string
	fields map[string][]byte
}

// Parse decodes a rapid message. Only JSON objects are accepted.
func Parse(data []byte) (*Packet, error) {
	iter := jsoniter.ParseBytes(json, data)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, ErrNotObject
	}

	p := &Packet{fields: make(map[string][]byte)}
	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		raw := it.SkipAndReturnBytes()
		if it.Error != nil {
			return false
		}
		if _, dup := p.fields[key]; !dup {
			p.keys = append(p.keys, key)
		}
		// [OWNERSHIP] The iterator reuses its buffer; keep our own copy.
		p.fields[key] = append([]byte(nil), raw...)
		return true
	})
	if iter.Error != nil {
		return nil, fmt.Errorf("packet: decode: %w", iter.Error)
	}

	return p, nil
}

// Keys returns the top-level keys in order.
func (p *Packet) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Lookup returns the value stored under key. JSON null counts as absent.
func (p *Packet) Lookup(key string) (jsoniter.Any, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return nil, false
	}
	v := json.Get(raw)
	if v.ValueType() == jsoniter.NilValue || v.ValueType() == jsoniter.InvalidValue {
		return nil, false
	}
	return v, true
}

func (p *Packet) Has(key string) bool {
	_, ok := p.Lookup(key)
	return ok
}

// String returns key as text. Numbers and booleans are rendered the way they appear on the wire.
func (p *Packet) String(key string) (string, bool) {
	v, ok := p.Lookup(key)
	if !ok {
		return "", false
	}
	switch v.ValueType() {
	case jsoniter.StringValue, jsoniter.NumberValue, jsoniter.BoolValue:
		return v.ToString(), true
	default:
		return "", false
	}
}

// Contains reports whether key equals want, or is an array holding want.
func (p *Packet) Contains(key, want string) bool {
	v, ok := p.Lookup(key)
	if !ok {
		return false
	}
	switch v.ValueType() {
	case jsoniter.StringValue:
		return v.ToString() == want
	case jsoniter.ArrayValue:
		for i := 0; i < v.Size(); i++ {
			el := v.Get(i)
			if el.ValueType() == jsoniter.StringValue && el.ToString() == want {
				return true
			}
		}
	}
	return false
}

// Date parses key as a calendar date.
func (p *Packet) Date(key string) (time.Time, error) {
	v, ok := p.Lookup(key)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrKeyMissing, key)
	}
	if v.ValueType() != jsoniter.StringValue {
		return time.Time{}, fmt.Errorf("packet: %s is not a date", key)
	}
	d, err := time.Parse(DateLayout, v.ToString())
	if err != nil {
		return time.Time{}, fmt.Errorf("packet: %s: %w", key, err)
	}
	return d, nil
}

// Set appends key with the JSON encoding of value. A key present as null keeps its position.
func (p *Packet) Set(key string, value any) error {
	if p.Has(key) {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("packet: encode %s: %w", key, err)
	}
	if _, present := p.fields[key]; !present {
		p.keys = append(p.keys, key)
	}
	p.fields[key] = raw
	return nil
}

// Clone returns a deep copy, so that independent handlers never share a packet.
func (p *Packet) Clone() *Packet {
	c := &Packet{
		keys:   p.Keys(),
		fields: make(map[string][]byte, len(p.fields)),
	}
	for k, v := range p.fields {
		c.fields[k] = append([]byte(nil), v...)
	}
	return c
}

// MarshalJSON writes the keys back in their original order.
func (p *Packet) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, k := range p.keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		stream.WriteRaw(string(p.fields[k]))
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, fmt.Errorf("packet: encode: %w", stream.Error)
	}
	return append([]byte(nil), stream.Buffer()...), nil
}
