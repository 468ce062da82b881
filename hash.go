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

// hashMultiplier is the classic multiplier for polynomial string
// hashing. 31 is odd, prime, and a shift-and-subtract on most CPUs.
const hashMultiplier = 31

// hashString is the default key hash: a rolling polynomial over the
// key's bytes on a fixed-width unsigned integer. Overflow wraps, which
// is fine; addressing only ever consumes the low bits. This is a fast
// distribution hash, not a collision-resistant one.
func hashString(key string) uint64 {
	var h uint64
	for i := 0; i < len(key); i++ {
		h = h*hashMultiplier + uint64(key[i])
	}
	return h
}
