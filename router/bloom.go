// Copyright 2025 The pgr Authors
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

package router

// FNV-1a 64-bit constants. Hashing is done inline so that method and path
// can be hashed in sequence without concatenating them.
const (
	fnvOffsetBasis = 14695981039346656037
	fnvPrime       = 1099511628211
)

func hashRoute(method, path string) uint64 {
	hash := uint64(fnvOffsetBasis)
	for i := range len(method) {
		hash ^= uint64(method[i])
		hash *= fnvPrime
	}
	hash ^= ' '
	hash *= fnvPrime
	for i := range len(path) {
		hash ^= uint64(path[i])
		hash *= fnvPrime
	}
	return hash
}

// bloomFilter rejects static lookups for keys that were never added.
// A negative answer is exact; a positive answer must be confirmed
// against the static map.
type bloomFilter struct {
	bits  []uint64
	size  uint64
	seeds []uint64
}

func newBloomFilter(size uint64, numHashFuncs int) *bloomFilter {
	if size == 0 {
		size = 64
	}
	bf := &bloomFilter{
		bits:  make([]uint64, (size+63)/64),
		size:  size,
		seeds: make([]uint64, numHashFuncs),
	}
	for i := range numHashFuncs {
		bf.seeds[i] = uint64(i + 1)
	}
	return bf
}

func (bf *bloomFilter) position(hash, seed uint64) uint64 {
	return (hash ^ seed) % bf.size
}

func (bf *bloomFilter) add(hash uint64) {
	for _, seed := range bf.seeds {
		pos := bf.position(hash, seed)
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
}

func (bf *bloomFilter) test(hash uint64) bool {
	for _, seed := range bf.seeds {
		pos := bf.position(hash, seed)
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}
