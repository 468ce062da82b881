// Copyright 2024 The Linhash Authors
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

// Package linhash is a Go implementation of linear hashing as described
// by Litwin in "Linear Hashing: A New Tool for File and Table
// Addressing" (VLDB 1980). See also:
// https://en.wikipedia.org/wiki/Linear_hashing.
//
// # Linear Hashing
//
// Linear hashing is a scheme for growing a hash table incrementally.
// Where a conventional table doubles its bucket array and rehashes
// every entry when it overflows, a linear hash table splits exactly one
// bucket per overflow event. The resize cost is amortized across
// insertions: no single Put ever pays for rehashing the whole table,
// which avoids the latency spike a one-shot rehash produces at large
// table sizes.
//
// The table maintains an address width in bits. Primary addressing
// masks hash(key) to the low bits of the current width, which produces
// a candidate index in [0, 2^bits). Because the table grows by one
// bucket at a time its length is usually not a power of two, so the
// candidate can point past the end of the bucket array. Such a
// candidate belongs to a bucket that has not been split off yet at the
// current depth; clearing the top addressing bit redirects it to the
// bucket still holding those entries. This folding step is the core
// addressing invariant of linear hashing: it is what lets the bucket
// count grow by ones while every hash value stays resolvable.
//
// Buckets split in a fixed round-robin order tracked by a split
// pointer, not in overflow order. When any bucket outgrows the split
// threshold, the bucket at the split pointer (usually a different
// bucket) is drained, a new bucket is appended, and the drained entries
// are redistributed between the two. The drained bucket is always the
// folding partner of the appended one: splitting bucket p appends
// bucket 2^(bits-1)+p, so the entries that folded into p can move to
// their unfolded address and nothing else shifts. When the append
// pushes the bucket count past a power of two the address width
// increases by one and a new round begins; when the pointer has walked
// the entire low half it wraps back to the front.
//
// The split trigger compares a bucket's length against 2^bits, the
// fan-out of the current address space. This is a global, not
// per-bucket, signal: any bucket growing past the fan-out implies the
// table as a whole is under-provisioned at the current depth. A
// consequence worth knowing about is that a pathologically hot bucket
// (adversarial or heavily skewed keys) can grow well past the average
// bucket length before enough rounds complete to thin it out; the
// trigger is deliberately not a load-factor policy.
//
// # Implementation
//
// Buckets are ordinary slices scanned linearly. The split policy
// bounds bucket lengths, so a per-bucket secondary structure would
// cost more than it saves and would break the threshold accounting.
// Entries are redistributed by value during a split; values with
// reference semantics (pointers, slices, maps) are shared with the
// caller, exactly as with Go's builtin map.
//
// The table never shrinks: Delete removes entries but no bucket is
// ever reclaimed, so the bucket count is monotonically non-decreasing.
//
// A Map is NOT goroutine-safe. Callers that share a table across
// goroutines must serialize access externally.
package linhash

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	debug = false

	// defaultInitialBuckets is the bucket count a table starts with
	// unless WithInitialBuckets says otherwise. Must be a power of two.
	defaultInitialBuckets = 32
)

// entry holds an owned key and its value. Entries within a bucket are
// kept in insertion order, though the order carries no guarantee.
type entry[V any] struct {
	key   string
	value V
}

// Map is a hash table from string keys to values of type V with Put,
// Get, Delete, and All operations. The bucket array grows one bucket
// at a time using linear hashing; see the package documentation for
// the algorithm.
//
// A Map is NOT goroutine-safe.
type Map[V any] struct {
	// The hash function applied to keys. Defaults to the multiplier-31
	// polynomial hash; replaceable via WithHash.
	hash func(key string) uint64
	// buckets[i] holds the entries addressed to bucket i. The length
	// of this slice only ever grows, and only by one bucket at a time.
	buckets [][]entry[V]
	// bits is the current address width. The low bits of hash(key)
	// form the candidate bucket index. 2^(bits-1) < len(buckets) <=
	// 2^bits at all times.
	bits uint
	// split is the index of the next bucket due to split. It walks the
	// low half of the table in order and is always < 2^(bits-1).
	split int
	// used is the number of entries across all buckets.
	used int
	// maxBuckets caps growth when non-zero. A table at its cap skips
	// splitting entirely and degrades to a fixed-size chained table.
	maxBuckets int
}

// New constructs an empty Map with the default initial bucket count of
// 32 and an address width of 5 bits. The zero value for a Map is not
// usable.
func New[V any](options ...option[V]) *Map[V] {
	m := &Map[V]{hash: hashString}
	m.initBuckets(defaultInitialBuckets)

	for _, op := range options {
		op.apply(m)
	}

	m.checkInvariants()
	return m
}

// initBuckets sizes the empty bucket array. The count is rounded up to
// a power of two so that the address width spans the table exactly.
func (m *Map[V]) initBuckets(n int) {
	if n < 2 {
		n = 2
	}
	b := uint(bits.Len(uint(n - 1)))
	m.buckets = make([][]entry[V], 1<<b)
	m.bits = b
	m.split = 0
}

// bucketIndex resolves hash value h to a valid bucket index. The low
// bits of h form the candidate. A candidate pointing past the end of
// the table belongs to a bucket not yet split off at the current
// depth; clearing its top addressing bit folds it back onto the bucket
// that still holds those entries, which is always in range.
func (m *Map[V]) bucketIndex(h uint64) int {
	i := int(h & (1<<m.bits - 1))
	if i >= len(m.buckets) {
		i ^= 1 << (m.bits - 1)
	}
	return i
}

// Get retrieves the value for the specified key, returning ok=false if
// the key is not present. An absent key is a normal outcome, not an
// error.
func (m *Map[V]) Get(key string) (value V, ok bool) {
	i := m.bucketIndex(m.hash(key))
	if debug {
		fmt.Printf("get(%q): bucket=%d len=%d\n", key, i, len(m.buckets[i]))
	}

	b := m.buckets[i]
	for j := range b {
		if b[j].key == key {
			return b[j].value, true
		}
	}
	return value, false
}

// Put inserts an entry into the map, overwriting the existing value if
// an entry with the same key already exists. It reports whether a new
// key was inserted (false means an existing key was overwritten).
//
// The value is stored by assignment; values with reference semantics
// remain shared with the caller.
func (m *Map[V]) Put(key string, value V) bool {
	i := m.bucketIndex(m.hash(key))
	b := m.buckets[i]

	for j := range b {
		if b[j].key == key {
			if debug {
				fmt.Printf("put(%q): bucket=%d overwriting\n", key, i)
			}
			// Overwriting does not grow the bucket, so no split check
			// happens on this path.
			b[j].value = value
			m.checkInvariants()
			return false
		}
	}

	m.buckets[i] = append(b, entry[V]{key: key, value: value})
	m.used++
	if debug {
		fmt.Printf("put(%q): bucket=%d len=%d used=%d\n", key, i, len(m.buckets[i]), m.used)
	}

	// The trigger compares the bucket's length against the fan-out of
	// the current address space. Any single bucket outgrowing 2^bits
	// means the table is under-provisioned at this depth, irrespective
	// of which bucket overflowed.
	if len(m.buckets[i]) > 1<<m.bits {
		if m.maxBuckets == 0 || len(m.buckets) < m.maxBuckets {
			m.splitBucket()
		}
	}

	m.checkInvariants()
	return true
}

// Delete removes the entry corresponding to the specified key and
// returns its value, or ok=false if no such entry exists. The relative
// order of the remaining entries in the bucket is preserved. The table
// never gives back buckets: no split or shrink happens on deletion.
func (m *Map[V]) Delete(key string) (value V, ok bool) {
	i := m.bucketIndex(m.hash(key))
	b := m.buckets[i]

	for j := range b {
		if b[j].key == key {
			value = b[j].value
			copy(b[j:], b[j+1:])
			b[len(b)-1] = entry[V]{}
			m.buckets[i] = b[:len(b)-1]
			m.used--
			if debug {
				fmt.Printf("delete(%q): bucket=%d len=%d used=%d\n", key, i, len(m.buckets[i]), m.used)
			}
			m.checkInvariants()
			return value, true
		}
	}
	return value, false
}

// splitBucket grows the table by exactly one bucket, redistributing
// the entries of the bucket at the split pointer. The split bucket is
// usually not the bucket that overflowed: linear hashing always splits
// in pointer order, which is what keeps every address resolvable while
// the table grows by ones. Draining pointer p while appending bucket
// 2^(bits-1)+p pairs each bucket with its folding partner, so the
// advance below must keep the pointer in lockstep with the append. The
// split completes before the triggering Put returns; no lookup can
// observe a half-split table.
func (m *Map[V]) splitBucket() {
	drained := m.buckets[m.split]
	m.buckets[m.split] = nil
	m.buckets = append(m.buckets, nil)

	if len(m.buckets) > 1<<m.bits {
		// The append pushed the bucket count past the power-of-two
		// boundary. Widen the address and start the next round; bucket
		// 0 was the one just drained, so the pointer moves to 1.
		m.bits++
		m.split = 1
	} else if m.split++; m.split == 1<<(m.bits-1) {
		// The pointer has walked the entire low half; wrap to the
		// front. The next split widens the address.
		m.split = 0
	}

	if debug {
		fmt.Printf("split: buckets=%d bits=%d split=%d redistributing=%d\n",
			len(m.buckets), m.bits, m.split, len(drained))
	}

	// Redistribute under the new address width. Each drained entry
	// resolves either to the new bucket or back to the one just
	// drained. Redistribution cannot recurse into another split: the
	// drained entries were within the old threshold and are now spread
	// across two buckets.
	for _, e := range drained {
		m.uncheckedPut(e)
	}
}

// uncheckedPut appends an entry known not to be in the table. Used by
// split when redistributing drained entries (violating the known-absent
// requirement would create a duplicate key within a bucket).
func (m *Map[V]) uncheckedPut(e entry[V]) {
	i := m.bucketIndex(m.hash(e.key))
	m.buckets[i] = append(m.buckets[i], e)
}

// All calls yield sequentially for each key and value present in the
// map. If yield returns false, iteration stops. The map must not be
// mutated during iteration.
func (m *Map[V]) All(yield func(key string, value V) bool) {
	for i := range m.buckets {
		for j := range m.buckets[i] {
			if !yield(m.buckets[i][j].key, m.buckets[i][j].value) {
				return
			}
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map[V]) Len() int {
	return m.used
}

// Buckets returns the current bucket count. It starts at the initial
// bucket count and grows by one per split, never shrinking.
func (m *Map[V]) Buckets() int {
	return len(m.buckets)
}

// checkInvariants verifies the addressing state when built with the
// invariants tag. It is a no-op otherwise.
func (m *Map[V]) checkInvariants() {
	if invariants {
		n := len(m.buckets)
		if n <= 1<<(m.bits-1) || n > 1<<m.bits {
			panic(fmt.Sprintf("invariant failed: %d buckets at address width %d\n%s",
				n, m.bits, m.debugString()))
		}
		if m.split < 0 || m.split >= 1<<(m.bits-1) {
			panic(fmt.Sprintf("invariant failed: split pointer %d at address width %d\n%s",
				m.split, m.bits, m.debugString()))
		}

		var used int
		for i := range m.buckets {
			for j, e := range m.buckets[i] {
				if got := m.bucketIndex(m.hash(e.key)); got != i {
					panic(fmt.Sprintf("invariant failed: %q stored in bucket %d but addresses to %d\n%s",
						e.key, i, got, m.debugString()))
				}
				for k := j + 1; k < len(m.buckets[i]); k++ {
					if m.buckets[i][k].key == e.key {
						panic(fmt.Sprintf("invariant failed: duplicate key %q in bucket %d\n%s",
							e.key, i, m.debugString()))
					}
				}
			}
			used += len(m.buckets[i])
		}
		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d entries, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
	}
}

func (m *Map[V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets=%d  bits=%d  split=%d  used=%d\n",
		len(m.buckets), m.bits, m.split, m.used)
	for i := range m.buckets {
		if len(m.buckets[i]) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", i)
		for _, e := range m.buckets[i] {
			fmt.Fprintf(&buf, " %q[%0*b]", e.key, int(m.bits), m.hash(e.key)&(1<<m.bits-1))
		}
		fmt.Fprintf(&buf, "\n")
	}
	return buf.String()
}
