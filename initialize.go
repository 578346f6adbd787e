package hardyhash

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Keys is the output of Initialize: one public key committing to the
// whole hypertree and an independent state per signer.
type Keys struct {
	PublicKey    [HashSize]byte
	SignerStates []*SignerState
	NumSigners   uint32
}

// Initialize builds the full hypertree from the given user randomness:
// derives one seed per signer, sweeps every signer subtree (in
// parallel), combines the subtree roots into the tree-top and copies
// the upper authentication paths into each state.
func (ctx *Context) Initialize(randomness []byte) (*Keys, Error) {
	n := ctx.numSigners

	log.Logf("Generating %d signer seeds", n)
	seeds := make([][HashSize]byte, n)
	for i := range seeds {
		buf, err := prg(randomness, HashSize, uint64(i))
		if err != nil {
			return nil, wrapErrorf(err, "deriving seed of signer %d", i)
		}
		copy(seeds[i][:], buf)
	}

	threads := ctx.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	log.Logf("Initializing %d subtrees of height %d on %d workers",
		n, ctx.subTreeHeight, threads)

	// Bounded worker pool over signer indices.  Subtrees share no
	// mutable state; results land in their slot, errors are joined.
	states := make([]*SignerState, n)
	var (
		wg      sync.WaitGroup
		mux     sync.Mutex
		nextIdx uint32
		errs    *multierror.Error
	)
	wg.Add(threads)
	for t := 0; t < threads; t++ {
		go func() {
			defer wg.Done()
			for {
				mux.Lock()
				i := nextIdx
				nextIdx++
				mux.Unlock()
				if i >= n {
					return
				}
				state, err := initializeSubTree(seeds[i], ctx.subTreeHeight)
				if err != nil {
					mux.Lock()
					errs = multierror.Append(errs,
						wrapErrorf(err, "subtree %d", i))
					mux.Unlock()
					continue
				}
				states[i] = state
			}
		}()
	}
	wg.Wait()
	if err := errs.ErrorOrNil(); err != nil {
		return nil, wrapErrorf(err, "subtree initialization failed")
	}

	log.Logf("Calculating public key")
	treeTop, err := ctx.initializeTreeTop(states)
	if err != nil {
		return nil, wrapErrorf(err, "tree-top computation failed")
	}

	type nodeAddr struct {
		height uint8
		index  uint32
	}
	topNodes := make(map[nodeAddr]MerkleNode, len(treeTop))
	for _, nd := range treeTop {
		topNodes[nodeAddr{nd.Height, nd.Index}] = nd
	}

	// Extend each signer's authentication path with its tree-top
	// siblings, re-addressed to their height in the full hypertree.
	for i := range states {
		index := uint32(i)
		for h := uint32(0); h < ctx.p.LgNumSigners; h++ {
			neighbor := index + 1
			if index%2 == 1 {
				neighbor = index - 1
			}
			nd := topNodes[nodeAddr{uint8(h), neighbor}]
			nd.Height += uint8(ctx.p.LgMessagesPerSigner)
			states[i].authPath = append(states[i].authPath, nd)
			index /= 2
		}
	}

	keys := &Keys{
		PublicKey:    topNodes[nodeAddr{uint8(ctx.p.LgNumSigners), 0}].Hash,
		SignerStates: states,
		NumSigners:   n,
	}
	log.Logf("Initialization successful")
	return keys, nil
}

// initializeSubTree sweeps one signer's full subtree, harvesting the
// initial authentication path (index 1 at every height), the
// pre-completed tail nodes and the retain node (index 3), and the
// subtree root, all in a single pass.
func initializeSubTree(secret [HashSize]byte, height uint32) (*SignerState, error) {
	state := &SignerState{
		secretKey: secret,
		authPath:  make([]MerkleNode, height),
		keep:      make([]MerkleNode, height),
	}

	sweep := newTreehash(secret, &state.treehashStack, 0, uint8(height))
	for h := uint32(0); h <= height-2; h++ {
		state.treehashInstances = append(state.treehashInstances,
			*newTreehash(secret, &state.treehashStack, 0, uint8(h)))
	}
	state.attachStacks()

	toSave := make([]MerkleNode, 0, 2*height)
	for h := uint32(0); h < height; h++ {
		toSave = append(toSave, MerkleNode{Height: uint8(h), Index: 1})
	}
	for h := uint32(0); h+1 < height; h++ {
		toSave = append(toSave, MerkleNode{Height: uint8(h), Index: 3})
	}
	toSave = append(toSave, MerkleNode{Height: uint8(height), Index: 0})
	sortSaveList(toSave)

	saved := make([]MerkleNode, 0, cap(toSave))
	for i := uint64(0); i < uint64(1)<<height; i++ {
		newlySaved, err := sweep.updateSaving(&toSave)
		if err != nil {
			return nil, err
		}
		saved = append(saved, newlySaved...)
	}

	for _, nd := range saved {
		switch {
		case nd.Index == 1:
			state.authPath[nd.Height] = nd
		case nd.Index == 3 && uint32(nd.Height) < height-2:
			state.treehashInstances[nd.Height].node = nd
		case nd.Index == 3 && uint32(nd.Height) == height-2:
			state.retain = nd
		case nd.Index == 0 && uint32(nd.Height) == height:
			state.root = nd
		}
	}
	return state, nil
}

// initializeTreeTop combines the subtree roots into the upper levels
// of the hypertree, saving every internal node.  Runs single-threaded
// after the subtree phase has joined.
func (ctx *Context) initializeTreeTop(states []*SignerState) ([]MerkleNode, error) {
	n := ctx.numSigners
	leaves := make([]MerkleNode, n)
	for i, state := range states {
		leaves[i] = MerkleNode{
			Hash:   state.root.Hash,
			Height: 0,
			Index:  uint32(i),
		}
	}

	var stack []MerkleNode
	combiner := newTreehash([HashSize]byte{}, &stack, 0, uint8(ctx.p.LgNumSigners))
	combiner.leaves = leaves

	toSave := make([]MerkleNode, 0, 2*n-1)
	for h := uint32(0); uint32(1)<<h <= n; h++ {
		for ix := uint32(0); ix < n>>h; ix++ {
			toSave = append(toSave, MerkleNode{Height: uint8(h), Index: ix})
		}
	}
	sortSaveList(toSave)

	saved := make([]MerkleNode, 0, cap(toSave))
	for i := uint32(0); i < n; i++ {
		newlySaved, err := combiner.updateSaving(&toSave)
		if err != nil {
			return nil, err
		}
		saved = append(saved, newlySaved...)
	}
	return saved, nil
}

// sortSaveList orders a save list so the node wanted next by the
// traversal sits at the end, where updateSaving looks for it.
func sortSaveList(nodes []MerkleNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[j].Less(nodes[i])
	})
}

// WriteToDir writes one state file per signer plus the public key into
// an existing directory, laid out as signer_{i} and public_key.
func (keys *Keys) WriteToDir(dir string) Error {
	for i, state := range keys.SignerStates {
		path := filepath.Join(dir, fmt.Sprintf("signer_%d", i))
		if err := writeStateFile(path, state); err != nil {
			return err
		}
	}
	return writePublicKey(filepath.Join(dir, "public_key"), keys.PublicKey)
}
