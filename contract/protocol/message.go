// Package protocol groups a flat stream of varint integers into tagged
// fields. A stream is a sequence of (tag, value) pairs, except for the Who
// tag which is followed by two raw 128-bit halves of a 32-byte staker key.
package protocol

import (
	"talos-staking/contract/varint"

	"github.com/holiman/uint256"
)

// Encoder builds a tagged integer stream.
type Encoder struct {
	ints []uint256.Int
}

func (e *Encoder) Push(tag Tag, value *uint256.Int) {
	e.ints = append(e.ints, *uint256.NewInt(uint64(tag)), *value)
}

func (e *Encoder) PushUint64(tag Tag, value uint64) {
	e.Push(tag, uint256.NewInt(value))
}

// AppendWho appends the Who tag followed by the high and low halves of
// staker, each read as a big-endian 128-bit integer.
func (e *Encoder) AppendWho(staker [32]byte) {
	hi := new(uint256.Int).SetBytes(staker[:16])
	lo := new(uint256.Int).SetBytes(staker[16:])
	e.ints = append(e.ints, *uint256.NewInt(uint64(TagWho)), *hi, *lo)
}

func (e *Encoder) Integers() []uint256.Int {
	return e.ints
}

// Bytes varint-encodes the stream.
func (e *Encoder) Bytes() ([]byte, error) {
	var (
		out []byte
		err error
	)
	for i := range e.ints {
		out, err = varint.Append(out, &e.ints[i])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type fieldQueue struct {
	values []uint256.Int
	next   int
}

// Message is a decoded stream: values queued per tag plus the staker
// bytes collected from Who halves. Take consumes values through a cursor,
// the message never shares state with the integers it was built from.
type Message struct {
	fields map[Tag]*fieldQueue
	staker []byte
}

// FromIntegers groups ints into a Message. A trailing tag with no value
// ends the scan, as does a Who tag missing either half. Tags wider than
// 64 bits cannot name a known field and their pair is skipped.
func FromIntegers(ints []uint256.Int) *Message {
	m := &Message{fields: make(map[Tag]*fieldQueue)}
	for i := 0; i+1 < len(ints); {
		if !ints[i].IsUint64() {
			i += 2
			continue
		}
		tag := Tag(ints[i].Uint64())
		if tag == TagWho {
			if i+2 >= len(ints) {
				break
			}
			m.staker = append(m.staker, half(&ints[i+1])...)
			m.staker = append(m.staker, half(&ints[i+2])...)
			m.push(tag, ints[i+1])
			i += 3
			continue
		}
		m.push(tag, ints[i+1])
		i += 2
	}
	return m
}

// Decode reads a varint buffer into a Message.
func Decode(buf []byte) (*Message, error) {
	ints, err := varint.DecodeAll(buf)
	if err != nil {
		return nil, err
	}
	return FromIntegers(ints), nil
}

func half(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[16:]
}

func (m *Message) push(tag Tag, value uint256.Int) {
	q, ok := m.fields[tag]
	if !ok {
		q = &fieldQueue{}
		m.fields[tag] = q
	}
	q.values = append(q.values, value)
}

// Take returns the next n values queued under tag. It reports false and
// consumes nothing when fewer than n values remain. The tag is dropped
// once all of its values have been taken.
func (m *Message) Take(tag Tag, n int) ([]uint256.Int, bool) {
	q, ok := m.fields[tag]
	if !ok || n <= 0 || len(q.values)-q.next < n {
		return nil, false
	}
	out := make([]uint256.Int, n)
	copy(out, q.values[q.next:q.next+n])
	q.next += n
	if q.next == len(q.values) {
		delete(m.fields, tag)
	}
	return out, true
}

// Has reports whether any value is still queued under tag.
func (m *Message) Has(tag Tag) bool {
	_, ok := m.fields[tag]
	return ok
}

// Staker returns the bytes assembled from Who halves, in stream order.
func (m *Message) Staker() []byte {
	return m.staker
}
