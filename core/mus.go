// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the types the key-value cache backend stores as
// binary values. Written by hand against the mus-go primitives; the
// encoding is length-prefixed and position-independent, so values round
// trip without schema metadata.
var (
	SpanMUS      = spanMUS{}
	SpanSliceMUS = spanSliceMUS{}
)

type spanMUS struct{}

func (spanMUS) Marshal(v Span, bs []byte) (n int) {
	n = ord.String.Marshal(v.Text, bs)
	n += varint.Int.Marshal(len(v.Labels), bs[n:])
	for _, label := range v.Labels {
		n += ord.String.Marshal(label, bs[n:])
	}
	n += varint.Int.Marshal(v.Start, bs[n:])
	n += varint.Int.Marshal(v.End, bs[n:])
	n += raw.Float64.Marshal(v.Confidence, bs[n:])
	return n
}

func (spanMUS) Unmarshal(bs []byte) (v Span, n int, err error) {
	var n1 int
	v.Text, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var count int
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.Labels = make([]string, count)
		for i := 0; i < count; i++ {
			v.Labels[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	v.Start, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.End, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	return
}

func (spanMUS) Size(v Span) (size int) {
	size = ord.String.Size(v.Text)
	size += varint.Int.Size(len(v.Labels))
	for _, label := range v.Labels {
		size += ord.String.Size(label)
	}
	size += varint.Int.Size(v.Start)
	size += varint.Int.Size(v.End)
	size += raw.Float64.Size(v.Confidence)
	return size
}

type spanSliceMUS struct{}

func (spanSliceMUS) Marshal(v []Span, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, span := range v {
		n += SpanMUS.Marshal(span, bs[n:])
	}
	return n
}

func (spanSliceMUS) Unmarshal(bs []byte) (v []Span, n int, err error) {
	var count, n1 int
	count, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if count == 0 {
		return
	}
	v = make([]Span, count)
	for i := 0; i < count; i++ {
		v[i], n1, err = SpanMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (spanSliceMUS) Size(v []Span) (size int) {
	size = varint.Int.Size(len(v))
	for _, span := range v {
		size += SpanMUS.Size(span)
	}
	return size
}

// MarshalSpans serializes a span list to bytes.
func MarshalSpans(spans []Span) []byte {
	buf := make([]byte, SpanSliceMUS.Size(spans))
	SpanSliceMUS.Marshal(spans, buf)
	return buf
}

// UnmarshalSpans deserializes a span list from bytes.
func UnmarshalSpans(data []byte) ([]Span, error) {
	spans, _, err := SpanSliceMUS.Unmarshal(data)
	return spans, err
}
