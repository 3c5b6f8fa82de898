package timerz

import (
	"maps"
	"strconv"
)

// ResultKey is the property that holds a span outcome.
const ResultKey Property = "Result"

// Result classifies the outcome of a timed span.
type Result int

const (
	// ResultUnspecified means no outcome was recorded.
	ResultUnspecified Result = iota
	// ResultSuccess means the operation completed.
	ResultSuccess
	// ResultFailure means the operation failed.
	ResultFailure
	// ResultUserCancel means the user cancelled the operation.
	ResultUserCancel
	// ResultUserFault means the operation failed because of user input.
	ResultUserFault
)

var resultNames = [...]string{
	ResultUnspecified: "Unspecified",
	ResultSuccess:     "Success",
	ResultFailure:     "Failure",
	ResultUserCancel:  "UserCancel",
	ResultUserFault:   "UserFault",
}

// String returns the stored form of the result.
func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "Result(" + strconv.Itoa(int(r)) + ")"
}

// ParseResult converts a stored result back into a Result.
// Numeric text is accepted when it names a defined value.
func ParseResult(s string) (Result, bool) {
	for i, name := range resultNames {
		if s == name {
			return Result(i), true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(resultNames) {
		return Result(n), true
	}
	return ResultUnspecified, false
}

// MetadataCarrier is implemented by any metadata type a TimerCounter can attach
// to its spans. Types usually satisfy it by embedding *Metadata.
type MetadataCarrier interface {
	Properties() map[Property]string
}

// Metadata is a mutable property bag attached to a timed span.
// Not safe for concurrent use; it belongs to one tracker at a time.
type Metadata struct {
	props map[Property]string
}

// NewMetadata returns an empty property bag.
func NewMetadata() *Metadata {
	return &Metadata{props: make(map[Property]string)}
}

// MetadataFrom wraps an existing property map. The map is used directly,
// not copied. A nil map yields an empty bag.
func MetadataFrom(props map[Property]string) *Metadata {
	if props == nil {
		props = make(map[Property]string)
	}
	return &Metadata{props: props}
}

// Properties returns the live property map.
func (m *Metadata) Properties() map[Property]string {
	if m == nil {
		return nil
	}
	if m.props == nil {
		m.props = make(map[Property]string)
	}
	return m.props
}

// Get returns the value stored under key.
func (m *Metadata) Get(key Property) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.props[key]
	return v, ok
}

// Set stores value under key.
func (m *Metadata) Set(key Property, value string) {
	m.Properties()[key] = value
}

// Delete removes key.
func (m *Metadata) Delete(key Property) {
	if m == nil {
		return
	}
	delete(m.props, key)
}

// Result returns the recorded outcome. Missing or unparsable values read as
// ResultUnspecified.
func (m *Metadata) Result() Result {
	raw, ok := m.Get(ResultKey)
	if !ok {
		return ResultUnspecified
	}
	r, ok := ParseResult(raw)
	if !ok {
		return ResultUnspecified
	}
	return r
}

// SetResult records an outcome. ResultUnspecified removes the property.
func (m *Metadata) SetResult(r Result) {
	if r == ResultUnspecified {
		m.Delete(ResultKey)
		return
	}
	m.Set(ResultKey, r.String())
}

// SetUserFault marks the span as failed because of the user.
func (m *Metadata) SetUserFault() {
	m.Set(ResultKey, ResultUserFault.String())
}

// Clone returns a copy that shares nothing with m.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return NewMetadata()
	}
	return &Metadata{props: maps.Clone(m.Properties())}
}

// cloneProperties copies the properties of any carrier. Nil carriers and
// empty bags yield nil.
func cloneProperties(c MetadataCarrier) map[Property]string {
	if c == nil {
		return nil
	}
	props := c.Properties()
	if len(props) == 0 {
		return nil
	}
	return maps.Clone(props)
}
