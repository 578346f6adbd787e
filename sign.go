package hardyhash

// Signature is a full hypertree signature: the consumed leaf carrying
// its one-time public key, the one-time signature, and the
// authentication path from that leaf to the root.
type Signature struct {
	AuthPath []MerkleNode
	Leaf     MerkleNode
	Ots      OtsSignature
}

// Sign consumes the next leaf of the signer state stored at statePath
// and signs message with it.
//
// The advanced state reaches disk before the signature is returned:
// a crash after the rewrite merely discards the in-flight signature,
// whereas the reverse order could reissue a one-time leaf.  On the
// last leaf the state is tombstoned as exhausted and the file deleted;
// a failed deletion is logged and the signature still returned.
func Sign(statePath string, message []byte) (*Signature, Error) {
	ctr, err := openStateContainer(statePath)
	if err != nil {
		return nil, err
	}
	defer ctr.close()

	state, err := ctr.load()
	if err != nil {
		return nil, err
	}

	leafIndex := state.currentLeaf()
	allowed := uint64(1) << state.subTreeHeight()
	if state.exhausted || leafIndex >= allowed {
		return nil, errorf(
			"signer state %s is exhausted; delete it, no further signatures can be derived",
			statePath)
	}

	// The signature's authentication path is the one computed while
	// emitting the previous signature.
	sig := &Signature{AuthPath: make([]MerkleNode, len(state.authPath))}
	copy(sig.AuthPath, state.authPath)

	log.Logf("Signing message %d of %d allowed", leafIndex+1, allowed)

	if leafIndex < allowed-1 {
		if uerr := state.updateAuthPath(); uerr != nil {
			return nil, wrapErrorf(uerr, "advancing authentication path")
		}
		if err := ctr.store(state); err != nil {
			return nil, err
		}
	} else {
		log.Logf("This is the last signature this state file can support")
		state.exhausted = true
		if err := ctr.store(state); err != nil {
			return nil, err
		}
		if rerr := ctr.remove(); rerr != nil {
			log.Logf("State file %s could not be removed (%v); delete it by hand, it is no longer useful",
				statePath, rerr)
		}
	}

	w, werr := wotsCalc(state.secretKey[:], leafIndex)
	if werr != nil {
		return nil, wrapErrorf(werr, "deriving one-time keypair")
	}
	ots, werr := w.Sign(message)
	if werr != nil {
		return nil, wrapErrorf(werr, "one-time signing")
	}
	sig.Ots = ots
	sig.Leaf = MerkleNode{
		Hash:   w.PublicKey(),
		Height: 0,
		Index:  uint32(leafIndex),
	}
	return sig, nil
}
