package hardyhash

import (
	"math/bits"
)

// SignerState is the durable per-signer signing state.  The stored
// authentication path always points at the sibling of the next leaf to
// consume; entries above the subtree height were copied from the
// shared tree-top at setup and never change.
type SignerState struct {
	secretKey         [HashSize]byte
	authPath          []MerkleNode
	retain            MerkleNode
	treehashInstances []Treehash
	keep              []MerkleNode
	treehashStack     []MerkleNode
	root              MerkleNode
	exhausted         bool
}

// attachStacks re-points every treehash instance at the state-owned
// shared stack.  Must run after construction and after decode.
func (s *SignerState) attachStacks() {
	for i := range s.treehashInstances {
		s.treehashInstances[i].setStack(&s.treehashStack)
	}
}

// subTreeHeight is the height of this signer's subtree.
func (s *SignerState) subTreeHeight() uint32 {
	return uint32(len(s.keep))
}

// Root returns the root of this signer's subtree.
func (s *SignerState) Root() MerkleNode {
	return s.root
}

// Exhausted reports whether every leaf under this signer has been
// consumed.
func (s *SignerState) Exhausted() bool {
	return s.exhausted
}

// currentLeaf derives the next leaf to consume as the opposite-parity
// neighbor of the stored sibling.
func (s *SignerState) currentLeaf() uint64 {
	index := uint64(s.authPath[0].Index)
	if index%2 == 1 {
		return index - 1
	}
	return index + 1
}

// updateAuthPath shifts the stored authentication path from the leaf
// just consumed to its successor.  The amortization (keep array,
// retain node, treehash instances advanced lowest-tail-first) keeps
// the cost at O(H) hash evaluations and O(H) stored nodes per
// signature.
func (s *SignerState) updateAuthPath() error {
	leafIndex := s.currentLeaf()
	height := s.subTreeHeight()

	tau := uint32(bits.TrailingZeros64(leafIndex + 1))
	parentEven := (leafIndex>>(tau+1))%2 == 0

	if tau < height && parentEven {
		s.keep[tau] = s.authPath[tau]
	}

	if tau == 0 {
		// The consumed leaf is the next leaf's sibling.
		leaf, err := leafCalc(s.secretKey[:], leafIndex)
		if err != nil {
			return err
		}
		s.authPath[0] = leaf
	} else {
		s.authPath[tau] = combine(s.authPath[tau-1], s.keep[tau-1])

		for h := uint32(0); h < tau; h++ {
			if h == height-2 {
				s.authPath[h] = s.retain
			} else {
				s.authPath[h] = s.treehashInstances[h].node
			}

			startIndex := 1 + leafIndex + 3*(uint64(1)<<h)
			if startIndex < uint64(1)<<height {
				s.treehashInstances[h].initialize(startIndex)
			}
		}
	}

	// ceil(height/2) scheduler ticks, lowest tail node first, ties
	// to the lowest instance index.  Both rules are load-bearing:
	// they bound the shared stack.
	for tick := uint32(0); tick < (height+1)/2; tick++ {
		best := -1
		bestHeight := heightInfinity
		for i := range s.treehashInstances {
			if h := s.treehashInstances[i].lowestHeight(); h < bestHeight {
				bestHeight = h
				best = i
			}
		}
		if best == -1 {
			break
		}
		if err := s.treehashInstances[best].update(); err != nil {
			return err
		}
	}
	return nil
}
