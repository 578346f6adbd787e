package hardyhash

// Log-space Merkle tree traversal following Buchmann, Dahmen and
// Schneider, "Merkle Tree Traversal Revisited".

// heightInfinity is reported by lowestHeight for instances that are
// not traversing.
const heightInfinity = ^uint32(0)

// Treehash advances a left-to-right postorder traversal of a complete
// binary subtree of targetHeight rooted at leafIndex.  Several
// instances inside one signer share a single stack; the top
// nodesOnStack entries belong to this instance.  Ownership regions
// cannot interleave because only one instance advances at a time.
type Treehash struct {
	secret       [HashSize]byte
	leafIndex    uint64
	targetHeight uint8
	nodesOnStack uint32
	initialized  bool
	nUpdates     uint64
	node         MerkleNode

	// stack is the signer-owned shared stack.  Not serialized;
	// re-attached after decode.
	stack *[]MerkleNode

	// leaves, when non-nil, replaces leaf derivation with
	// precomputed nodes (the tree-top combiner over subtree roots).
	leaves []MerkleNode
}

func newTreehash(secret [HashSize]byte, stack *[]MerkleNode,
	leafIndex uint64, targetHeight uint8) *Treehash {
	return &Treehash{
		secret:       secret,
		stack:        stack,
		leafIndex:    leafIndex,
		targetHeight: targetHeight,
	}
}

// setStack re-points the instance at the signer-owned shared stack.
func (th *Treehash) setStack(stack *[]MerkleNode) {
	th.stack = stack
}

// initialize reseats the instance at a new starting leaf.
func (th *Treehash) initialize(leafIndex uint64) {
	th.leafIndex = leafIndex
	th.nodesOnStack = 0
	th.initialized = true
	th.nUpdates = 0
	th.leaves = nil
}

// leafAt produces the leaf at the given index, from the explicit
// leaves array when present.
func (th *Treehash) leafAt(index uint64) (MerkleNode, error) {
	if th.leaves != nil {
		return th.leaves[index], nil
	}
	return leafCalc(th.secret[:], index)
}

// update performs one treehash step.
func (th *Treehash) update() error {
	_, err := th.updateSaving(nil)
	return err
}

// updateSaving performs one treehash step: produce the next leaf, then
// combine while the stack top has the pending node's height, then push.
// When the instance ends up owning exactly its target-height node it
// pops that node into th.node and stops traversing.
//
// toSave, when non-nil, holds wanted (Height, Index) pairs sorted so
// the next wanted node is last; every produced node matching that top
// entry is appended to the returned list and popped from toSave.  This
// is how the initializer harvests interior nodes during one sweep.
func (th *Treehash) updateSaving(toSave *[]MerkleNode) ([]MerkleNode, error) {
	node, err := th.leafAt(th.leafIndex)
	if err != nil {
		return nil, err
	}
	th.leafIndex++

	var saved []MerkleNode
	save := func(n MerkleNode) {
		if toSave == nil || len(*toSave) == 0 {
			return
		}
		want := (*toSave)[len(*toSave)-1]
		if want.Height == n.Height && want.Index == n.Index {
			saved = append(saved, n)
			*toSave = (*toSave)[:len(*toSave)-1]
		}
	}

	for th.nodesOnStack > 0 &&
		(*th.stack)[len(*th.stack)-1].Height == node.Height {
		save(node)
		top := (*th.stack)[len(*th.stack)-1]
		*th.stack = (*th.stack)[:len(*th.stack)-1]
		th.nodesOnStack--
		node = combine(top, node)
	}
	save(node)
	*th.stack = append(*th.stack, node)
	th.nodesOnStack++

	if th.nodesOnStack == 1 && node.Height == th.targetHeight {
		th.node = node
		*th.stack = (*th.stack)[:len(*th.stack)-1]
		th.nodesOnStack--
		th.initialized = false
	}

	return saved, nil
}

// lowestHeight returns the lowest height among the stack nodes owned
// by this instance (its target height when it owns none), or
// heightInfinity when the instance is not traversing.  This drives the
// lowest-tail-first scheduling of the signer.
func (th *Treehash) lowestHeight() uint32 {
	if !th.initialized {
		return heightInfinity
	}
	lowest := uint32(th.targetHeight)
	stack := *th.stack
	for i := uint32(0); i < th.nodesOnStack; i++ {
		n := stack[len(stack)-1-int(i)]
		if uint32(n.Height) < lowest {
			lowest = uint32(n.Height)
		}
	}
	return lowest
}
