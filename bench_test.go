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

import (
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/cespare/xxhash/v2"
)

func BenchmarkMapGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetHit))
	b.Run("impl=linearMap", benchSizes(benchmarkLinearMapGetHit))
}

func BenchmarkMapGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetMiss))
	b.Run("impl=linearMap", benchSizes(benchmarkLinearMapGetMiss))
}

func BenchmarkMapPutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutGrow))
	b.Run("impl=linearMap", benchSizes(benchmarkLinearMapPutGrow))
}

func BenchmarkMapPutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutDelete))
	b.Run("impl=linearMap", benchSizes(benchmarkLinearMapPutDelete))
}

// BenchmarkMapHash compares growth with the default polynomial hash
// against xxhash plugged in via WithHash. The polynomial hash mixes
// its high bits poorly, which linear hashing tolerates because
// addressing consumes the low bits; this benchmark keeps that tradeoff
// visible.
func BenchmarkMapHash(b *testing.B) {
	b.Run("hash=poly31", benchSizes(func(b *testing.B, n int) {
		benchmarkHashPutGrow(b, n, hashString)
	}))
	b.Run("hash=xxhash", benchSizes(func(b *testing.B, n int) {
		benchmarkHashPutGrow(b, n, xxhash.Sum64String)
	}))
}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	// Powers of two so the key-selection mask below stays cheap.
	var cases = []int{
		16,
		64,
		256,
		1024,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genKeys(start, end int) []string {
	keys := make([]string, end-start)
	for i := range keys {
		keys[i] = strconv.Itoa(start + i)
	}
	return keys
}

func benchmarkRuntimeMapGetHit(b *testing.B, n int) {
	m := make(map[string]string, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}

	// Go's builtin map has an optimization to avoid string comparisons
	// if there is pointer equality. Defeat this optimization to get a
	// better apples-to-apples comparison.
	keys = genKeys(0, n)

	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[keys[i&(n-1)]]
	}
	b.StopTimer()
	cs.Stop()
}

func benchmarkLinearMapGetHit(b *testing.B, n int) {
	m := New[string]()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Put(k, k)
	}
	keys = genKeys(0, n)

	cs := perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(keys[i&(n-1)])
	}
	b.StopTimer()
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapGetMiss(b *testing.B, n int) {
	m := make(map[string]string)
	keys := genKeys(0, n)
	miss := genKeys(-n, 0)
	for _, k := range keys {
		m[k] = k
	}

	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[miss[i&(n-1)]]
	}
	b.StopTimer()
	cs.Stop()
}

func benchmarkLinearMapGetMiss(b *testing.B, n int) {
	m := New[string]()
	keys := genKeys(0, n)
	miss := genKeys(-n, 0)
	for _, k := range keys {
		m.Put(k, k)
	}

	cs := perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(miss[i&(n-1)])
	}
	b.StopTimer()
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := make(map[string]string)
		for _, k := range keys {
			m[k] = k
		}
	}
	b.StopTimer()
	cs.Stop()
}

func benchmarkLinearMapPutGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := New[string]()
		for _, k := range keys {
			m.Put(k, k)
		}
	}
	b.StopTimer()
	cs.Stop()
}

func benchmarkRuntimeMapPutDelete(b *testing.B, n int) {
	m := make(map[string]string, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}

	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i & (n - 1)
		delete(m, keys[j])
		m[keys[j]] = keys[j]
	}
	b.StopTimer()
	cs.Stop()
}

func benchmarkLinearMapPutDelete(b *testing.B, n int) {
	m := New[string]()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Put(k, k)
	}

	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i & (n - 1)
		m.Delete(keys[j])
		m.Put(keys[j], keys[j])
	}
	b.StopTimer()
	cs.Stop()
}

func benchmarkHashPutGrow(b *testing.B, n int, hash func(string) uint64) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := New[string](WithHash[string](hash))
		for _, k := range keys {
			m.Put(k, k)
		}
	}
	b.StopTimer()
	cs.Stop()
}
