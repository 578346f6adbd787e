package hardyhash

import (
	"encoding/binary"
)

// A single deterministic codec serializes every persisted structure:
// little-endian integers, fixed-size byte arrays as raw bytes, dynamic
// sequences as a uint32 length prefix followed by elements, structs as
// the concatenation of their fields in declaration order.  Treehash
// stack back-references are not serialized; they are re-attached after
// load.

type codecWriter struct {
	buf []byte
}

func (w *codecWriter) bytes(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *codecWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *codecWriter) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *codecWriter) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *codecWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *codecWriter) node(mn MerkleNode) {
	w.bytes(mn.Hash[:])
	w.u8(mn.Height)
	w.u32(mn.Index)
}

func (w *codecWriter) nodes(mns []MerkleNode) {
	w.u32(uint32(len(mns)))
	for _, mn := range mns {
		w.node(mn)
	}
}

func (w *codecWriter) treehash(th *Treehash) {
	w.bytes(th.secret[:])
	w.u64(th.leafIndex)
	w.u8(th.targetHeight)
	w.u32(th.nodesOnStack)
	w.boolean(th.initialized)
	w.u64(th.nUpdates)
	w.node(th.node)
}

// codecReader decodes with a sticky error; every accessor returns the
// zero value once the input has run short.
type codecReader struct {
	buf []byte
	err error
}

func (r *codecReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = errorf("unexpected end of input")
		return nil
	}
	p := r.buf[:n]
	r.buf = r.buf[n:]
	return p
}

func (r *codecReader) bytesInto(p []byte) {
	src := r.take(len(p))
	if src != nil {
		copy(p, src)
	}
}

func (r *codecReader) u8() uint8 {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *codecReader) u32() uint32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (r *codecReader) u64() uint64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (r *codecReader) boolean() bool {
	return r.u8() != 0
}

func (r *codecReader) node() (mn MerkleNode) {
	r.bytesInto(mn.Hash[:])
	mn.Height = r.u8()
	mn.Index = r.u32()
	return
}

func (r *codecReader) nodes() []MerkleNode {
	n := r.u32()
	if r.err != nil || uint64(n)*nodeSize > uint64(len(r.buf)) {
		if r.err == nil {
			r.err = errorf("sequence length %d exceeds input", n)
		}
		return nil
	}
	mns := make([]MerkleNode, n)
	for i := range mns {
		mns[i] = r.node()
	}
	return mns
}

func (r *codecReader) treehash() (th Treehash) {
	r.bytesInto(th.secret[:])
	th.leafIndex = r.u64()
	th.targetHeight = r.u8()
	th.nodesOnStack = r.u32()
	th.initialized = r.boolean()
	th.nUpdates = r.u64()
	th.node = r.node()
	return
}

const nodeSize = HashSize + 1 + 4

// MarshalBinary serializes the signature.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	var w codecWriter
	w.nodes(sig.AuthPath)
	w.node(sig.Leaf)
	w.u32(uint32(len(sig.Ots)))
	for _, part := range sig.Ots {
		w.bytes(part[:])
	}
	return w.buf, nil
}

// UnmarshalBinary deserializes the signature.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	r := codecReader{buf: data}
	sig.AuthPath = r.nodes()
	sig.Leaf = r.node()
	n := r.u32()
	if r.err == nil && uint64(n)*HashSize > uint64(len(r.buf)) {
		r.err = errorf("sequence length %d exceeds input", n)
	}
	if r.err == nil {
		sig.Ots = make(OtsSignature, n)
		for i := range sig.Ots {
			r.bytesInto(sig.Ots[i][:])
		}
	}
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return errorf("%d trailing bytes after signature", len(r.buf))
	}
	return nil
}

// MarshalBinary serializes the signer state.  The treehash stack is
// part of the state; the per-instance back-references into it are not.
func (s *SignerState) MarshalBinary() ([]byte, error) {
	var w codecWriter
	w.bytes(s.secretKey[:])
	w.nodes(s.authPath)
	w.node(s.retain)
	w.u32(uint32(len(s.treehashInstances)))
	for i := range s.treehashInstances {
		w.treehash(&s.treehashInstances[i])
	}
	w.nodes(s.keep)
	w.nodes(s.treehashStack)
	w.node(s.root)
	w.boolean(s.exhausted)
	return w.buf, nil
}

// UnmarshalBinary deserializes the signer state and re-attaches the
// treehash instances to the shared stack.
func (s *SignerState) UnmarshalBinary(data []byte) error {
	r := codecReader{buf: data}
	r.bytesInto(s.secretKey[:])
	s.authPath = r.nodes()
	s.retain = r.node()
	n := r.u32()
	if r.err == nil && uint64(n)*treehashSize > uint64(len(r.buf)) {
		r.err = errorf("sequence length %d exceeds input", n)
	}
	if r.err == nil {
		s.treehashInstances = make([]Treehash, n)
		for i := range s.treehashInstances {
			s.treehashInstances[i] = r.treehash()
		}
	}
	s.keep = r.nodes()
	s.treehashStack = r.nodes()
	s.root = r.node()
	s.exhausted = r.boolean()
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return errorf("%d trailing bytes after signer state", len(r.buf))
	}
	if len(s.authPath) == 0 || len(s.keep) == 0 {
		return errorf("signer state is missing its authentication path or keep array")
	}
	s.attachStacks()
	return nil
}

const treehashSize = HashSize + 8 + 1 + 4 + 1 + 8 + nodeSize
