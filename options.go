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

package linhash

// option provides an interface to do work on Map while it is being
// created.
type option[V any] interface {
	apply(m *Map[V])
}

type hashOption[V any] struct {
	hash func(key string) uint64
}

func (op hashOption[V]) apply(m *Map[V]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a
// Map[V]. Any fixed function of the key keeps the table correct; only
// the balance of entries across buckets changes. The function must be
// deterministic for the lifetime of the table.
func WithHash[V any](hash func(key string) uint64) option[V] {
	return hashOption[V]{hash}
}

type initialBucketsOption[V any] struct {
	n int
}

func (op initialBucketsOption[V]) apply(m *Map[V]) {
	m.initBuckets(op.n)
}

// WithInitialBuckets is an option to specify the initial bucket count
// for a Map[V], rounded up to a power of two. The default is 32.
func WithInitialBuckets[V any](n int) option[V] {
	return initialBucketsOption[V]{n}
}

type maxBucketsOption[V any] struct {
	n int
}

func (op maxBucketsOption[V]) apply(m *Map[V]) {
	m.maxBuckets = op.n
}

// WithMaxBuckets is an option to cap bucket-count growth for a Map[V].
// Zero, the default, means unbounded. A table at its cap stops
// splitting and behaves as a fixed-size chained hash table; combined
// with WithInitialBuckets(n) this reproduces a statically-sized table
// that never splits, at the cost of unbounded bucket lengths.
func WithMaxBuckets[V any](n int) option[V] {
	return maxBucketsOption[V]{n}
}
