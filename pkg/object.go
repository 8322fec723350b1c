package pkg

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/araddon/dateparse"
)

// Kind identifies the concrete type of an Object.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindReal
	KindString
	KindData
	KindDate
	KindArray
	KindDictionary
)

var kindNames = map[Kind]string{
	KindNull:       "null",
	KindBoolean:    "boolean",
	KindInteger:    "integer",
	KindReal:       "real",
	KindString:     "string",
	KindData:       "data",
	KindDate:       "date",
	KindArray:      "array",
	KindDictionary: "dict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Object is one node of a plist tree. The concrete types are Null,
// Boolean, Integer, Real, String, Data, Date, Array and Dictionary;
// callers inspect them with a type switch or assertion. Every non-root
// object has exactly one owning parent slot.
type Object interface {
	Kind() Kind
	release()
}

// liveObjects counts constructed-but-not-released objects. Tests use it
// to verify that failed parses do not leak partial trees.
var liveObjects atomic.Int64

func retainObject() { liveObjects.Add(1) }
func releaseObject() { liveObjects.Add(-1) }

// Null is the empty value.
type Null struct{}

func NewNull() *Null {
	retainObject()
	return &Null{}
}

func (*Null) Kind() Kind { return KindNull }
func (*Null) release() { releaseObject() }

// Boolean carries its value from construction and is immutable.
type Boolean struct {
	value bool
}

func NewBoolean(value bool) *Boolean {
	retainObject()
	return &Boolean{value: value}
}

func (*Boolean) Kind() Kind { return KindBoolean }
func (b *Boolean) Value() bool { return b.value }
func (b *Boolean) release() { releaseObject() }

// Integer is a signed 64-bit integer leaf.
type Integer struct {
	value int64
}

func NewInteger() *Integer {
	retainObject()
	return &Integer{}
}

func (*Integer) Kind() Kind { return KindInteger }
func (i *Integer) Value() int64 { return i.value }
func (i *Integer) SetValue(value int64) { i.value = value }
func (i *Integer) release() { releaseObject() }

// Real is a 64-bit float leaf.
type Real struct {
	value float64
}

func NewReal() *Real {
	retainObject()
	return &Real{}
}

func (*Real) Kind() Kind { return KindReal }
func (r *Real) Value() float64 { return r.value }
func (r *Real) SetValue(value float64) { r.value = value }
func (r *Real) release() { releaseObject() }

// String is a text leaf.
type String struct {
	value string
}

func NewString() *String {
	retainObject()
	return &String{}
}

func (*String) Kind() Kind { return KindString }
func (s *String) Value() string { return s.value }
func (s *String) SetValue(value string) { s.value = value }
func (s *String) release() { releaseObject() }

// base64Whitespace strips the whitespace Base64 payloads are allowed to
// carry between groups.
var base64Whitespace = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "")

// Data is a raw byte buffer decoded from Base64 text.
type Data struct {
	value []byte
}

func NewData() *Data {
	retainObject()
	return &Data{}
}

func (*Data) Kind() Kind { return KindData }
func (d *Data) Bytes() []byte { return d.value }

// SetBase64Value decodes text as standard Base64, ignoring interior
// whitespace. Characters outside the Base64 alphabet are an error.
func (d *Data) SetBase64Value(text string) error {
	decoded, err := base64.StdEncoding.DecodeString(base64Whitespace.Replace(text))
	if err != nil {
		return fmt.Errorf("invalid base64 data: %w", err)
	}
	d.value = decoded
	return nil
}

func (d *Data) release() {
	d.value = nil
	releaseObject()
}

// Date is an instant leaf parsed from ISO-8601 text.
type Date struct {
	value time.Time
}

func NewDate() *Date {
	retainObject()
	return &Date{}
}

func (*Date) Kind() Kind { return KindDate }
func (d *Date) Value() time.Time { return d.value }

// SetStringValue parses text as an ISO-8601 instant. The canonical
// plist form is 2006-01-02T15:04:05Z; other unambiguous ISO-8601
// spellings are accepted as well.
func (d *Date) SetStringValue(text string) error {
	t, err := dateparse.ParseStrict(text)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", text, err)
	}
	d.value = t.UTC()
	return nil
}

func (d *Date) release() { releaseObject() }

// Array is an ordered sequence of objects. It owns its children.
type Array struct {
	items []Object
}

func NewArray() *Array {
	retainObject()
	return &Array{}
}

func (*Array) Kind() Kind { return KindArray }

// Append adds child at the end, transferring ownership to the array.
func (a *Array) Append(child Object) {
	a.items = append(a.items, child)
}

func (a *Array) Len() int { return len(a.items) }
func (a *Array) At(i int) Object { return a.items[i] }
func (a *Array) Items() []Object { return a.items }

func (a *Array) release() {
	for _, item := range a.items {
		item.release()
	}
	a.items = nil
	releaseObject()
}

// Dictionary is an ordered mapping from string keys to objects.
// Iteration order is insertion order of unique keys; re-binding an
// existing key replaces (and releases) the previous value without
// moving the key.
type Dictionary struct {
	keys   []string
	values map[string]Object
}

func NewDictionary() *Dictionary {
	retainObject()
	return &Dictionary{values: make(map[string]Object)}
}

func (*Dictionary) Kind() Kind { return KindDictionary }

// Set binds key to child, transferring ownership. Last writer wins;
// the first occurrence fixes the key's position.
func (d *Dictionary) Set(key string, child Object) {
	if previous, ok := d.values[key]; ok {
		previous.release()
	} else {
		d.keys = append(d.keys, key)
	}
	d.values[key] = child
}

func (d *Dictionary) Get(key string) (Object, bool) {
	value, ok := d.values[key]
	return value, ok
}

func (d *Dictionary) Len() int { return len(d.keys) }
func (d *Dictionary) Keys() []string { return d.keys }

func (d *Dictionary) release() {
	for _, value := range d.values {
		value.release()
	}
	d.keys = nil
	d.values = nil
	releaseObject()
}

// Equal reports structural equality: dictionaries as mappings (equal
// key sets, equal values per key), arrays as ordered sequences, leaves
// by typed value.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Null:
		return true
	case *Boolean:
		return av.Value() == b.(*Boolean).Value()
	case *Integer:
		return av.Value() == b.(*Integer).Value()
	case *Real:
		return av.Value() == b.(*Real).Value()
	case *String:
		return av.Value() == b.(*String).Value()
	case *Data:
		return string(av.Bytes()) == string(b.(*Data).Bytes())
	case *Date:
		return av.Value().Equal(b.(*Date).Value())
	case *Array:
		bv := b.(*Array)
		if av.Len() != bv.Len() {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case *Dictionary:
		bv := b.(*Dictionary)
		if av.Len() != bv.Len() {
			return false
		}
		for key, value := range av.values {
			other, ok := bv.values[key]
			if !ok || !Equal(value, other) {
				return false
			}
		}
		return true
	}
	return false
}
