package hardyhash

// MerkleNode is one node of a complete binary tree whose leaves are at
// height 0.  (Height, Index) addresses the node; Hash carries its
// value.
type MerkleNode struct {
	Hash   [HashSize]byte
	Height uint8
	Index  uint32
}

// updateOrder maps a node to its completion time in a left-to-right
// treehash traversal.
func (mn MerkleNode) updateOrder() uint64 {
	return uint64(1+mn.Index) << mn.Height
}

// Less reports whether mn completes before other in a left-to-right
// treehash traversal.  Equal completion times are broken by lower
// height first, which makes the relation a strict total order on
// distinct (Height, Index) pairs.
func (mn MerkleNode) Less(other MerkleNode) bool {
	a := mn.updateOrder()
	b := other.updateOrder()
	if a < b {
		return true
	}
	return a == b && mn.Height < other.Height
}

// combine hashes two sibling nodes into their parent.  a must be the
// left sibling of b (a.Index+1 == b.Index, equal heights); callers
// guarantee that.
func combine(a, b MerkleNode) MerkleNode {
	var buf [2 * HashSize]byte
	copy(buf[:HashSize], a.Hash[:])
	copy(buf[HashSize:], b.Hash[:])
	b.Hash = hashSum(buf[:])
	b.Index /= 2
	b.Height++
	return b
}

// leafCalc computes the leaf at the given index: the public key of the
// one-time keypair derived from secret at that index.
func leafCalc(secret []byte, index uint64) (MerkleNode, error) {
	w, err := wotsCalc(secret, index)
	if err != nil {
		return MerkleNode{}, err
	}
	return MerkleNode{
		Hash:   w.PublicKey(),
		Height: 0,
		Index:  uint32(index),
	}, nil
}

// wotsCalc derives the one-time keypair consumed at the given leaf
// index.
func wotsCalc(secret []byte, index uint64) (*WOTS, error) {
	seed, err := prg(secret, HashSize, index)
	if err != nil {
		return nil, err
	}
	var keyMaterial [HashSize]byte
	copy(keyMaterial[:], seed)
	return NewFixedWeightWOTS(keyMaterial)
}
