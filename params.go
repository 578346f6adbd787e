// Go implementation of the hardyhash stateful hash-based signature
// scheme: a two-level Merkle hypertree over fixed-weight Winternitz
// one-time signatures.  Security rests only on the collision
// resistance of SHA-256.
package hardyhash

import (
	"fmt"
)

const (
	// HashSize is the byte length of every node hash and seed.
	HashSize = 32

	// wotsWidth is the number of hash chains in a one-time signature.
	wotsWidth = 134

	// wotsDepth is the maximum number of iterations per chain.
	wotsDepth = 3

	// wotsWeight is the fixed digit total of a one-time signature;
	// the number of weight-241 compositions of 134 parts in [0,3]
	// exceeds 2^256, so every message hash has an encoding.
	wotsWeight = 241
)

// Parameters of a hardyhash instance.  Both logarithms must be even
// integers in [2, 16].
type Params struct {
	LgNumSigners        uint32 // lg of the number of signer states
	LgMessagesPerSigner uint32 // lg of the signatures per signer state
}

// Hardyhash instance.  Create one using NewContext.
type Context struct {
	// Number of worker goroutines ("threads") to use for expensive
	// operations.  Will guess an appropriate number if set to 0.
	Threads int

	p             Params
	numSigners    uint32 // 2^LgNumSigners
	subTreeHeight uint32 // height of one signer's subtree
	totalHeight   uint32 // height of the full hypertree
}

// Creates a new context.
func NewContext(params Params) (*Context, error) {
	if err := checkLgParam(params.LgNumSigners, "LgNumSigners"); err != nil {
		return nil, err
	}
	if err := checkLgParam(params.LgMessagesPerSigner, "LgMessagesPerSigner"); err != nil {
		return nil, err
	}

	ctx := &Context{
		p:             params,
		numSigners:    1 << params.LgNumSigners,
		subTreeHeight: params.LgMessagesPerSigner,
		totalHeight:   params.LgNumSigners + params.LgMessagesPerSigner,
	}
	return ctx, nil
}

func checkLgParam(v uint32, name string) error {
	if v%2 != 0 || v < 2 || v > 16 {
		return fmt.Errorf(
			"%s must be an even integer between 2 and 16, inclusive", name)
	}
	return nil
}

// Get parameters of a hardyhash instance.
func (ctx *Context) Params() Params {
	return ctx.p
}

// Returns the number of independent signer states.
func (ctx *Context) NumSigners() uint32 {
	return ctx.numSigners
}

// Returns the number of signatures each signer state can emit.
func (ctx *Context) MessagesPerSigner() uint64 {
	return 1 << ctx.subTreeHeight
}

// Returns the number of nodes in a signature's authentication path.
func (ctx *Context) AuthPathLen() uint32 {
	return ctx.totalHeight
}
