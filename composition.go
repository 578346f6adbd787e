package hardyhash

import (
	"math/big"
	"sync"
)

// The fixed-weight encoding maps message hashes onto restricted
// integer compositions: vectors of wotsWidth parts in [0, wotsDepth]
// summing to wotsWeight, ordered lexicographically.

var (
	countsOnce  sync.Once
	countsTable [][]*big.Int
	zeroCount   = new(big.Int)
)

// compositionCounts returns the table where entry [w][n] counts the
// compositions of weight w into n parts with every part in
// [0, wotsDepth].  Built once per process.
func compositionCounts() [][]*big.Int {
	countsOnce.Do(func() {
		countsTable = make([][]*big.Int, wotsWeight+1)
		for w := range countsTable {
			countsTable[w] = make([]*big.Int, wotsWidth+1)
		}
		countsTable[0][0] = big.NewInt(1)
		for n := 1; n <= wotsWidth; n++ {
			for w := 0; w <= wotsWeight; w++ {
				total := new(big.Int)
				for d := 0; d <= wotsDepth && d <= w; d++ {
					if c := countsTable[w-d][n-1]; c != nil {
						total.Add(total, c)
					}
				}
				countsTable[w][n] = total
			}
		}
	})
	return countsTable
}

// compositionCount returns the count for (w, n), zero outside the
// table.  The returned value is shared and must not be mutated.
func compositionCount(w, n int) *big.Int {
	if w < 0 || n < 0 {
		return zeroCount
	}
	if c := compositionCounts()[w][n]; c != nil {
		return c
	}
	return zeroCount
}

// numCompositions returns the total number of valid compositions,
// i.e. one past the largest decodable index.
func numCompositions() *big.Int {
	return compositionCount(wotsWeight, wotsWidth)
}

// indexToComposition decodes the index-th composition in
// lexicographic order.  index is not modified.
func indexToComposition(index *big.Int) ([]uint8, error) {
	if index.Sign() < 0 || index.Cmp(numCompositions()) >= 0 {
		return nil, errorf("composition index out of range")
	}
	idx := new(big.Int).Set(index)
	w := wotsWeight
	n := wotsWidth
	composition := make([]uint8, wotsWidth)
	for i := range composition {
		placed := false
		for depth := 0; depth <= wotsDepth; depth++ {
			c := compositionCount(w-depth, n-1)
			if idx.Cmp(c) < 0 {
				composition[i] = uint8(depth)
				placed = true
				break
			}
			idx.Sub(idx, c)
		}
		if !placed {
			return nil, errorf("composition decoding did not converge")
		}
		w -= int(composition[i])
		n--
	}
	return composition, nil
}

// compositionToIndex is the inverse of indexToComposition.
func compositionToIndex(composition []uint8) *big.Int {
	index := new(big.Int)
	w := wotsWeight
	n := wotsWidth
	for _, d := range composition {
		for prev := 0; prev < int(d); prev++ {
			index.Add(index, compositionCount(w-prev, n-1))
		}
		w -= int(d)
		n--
	}
	return index
}
