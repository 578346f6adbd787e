package hardyhash

import (
	"crypto/subtle"
)

// Verify checks sig over message against the public key: the one-time
// signature must open the leaf's one-time public key and the
// authentication path must hash from that leaf to the root.
func Verify(pk [HashSize]byte, message []byte, sig *Signature) (bool, Error) {
	otsOk, err := verifyOts(sig, message)
	if err != nil {
		return false, wrapErrorf(err, "verifying one-time signature")
	}
	return otsOk && verifyLeaf(sig, pk), nil
}

func verifyOts(sig *Signature, message []byte) (bool, error) {
	return newFixedWeightVerifier().Verify(sig.Leaf.Hash, message, sig.Ots)
}

// verifyLeaf recomputes the root from the leaf along the
// authentication path.  A sibling with odd index sits to our right.
func verifyLeaf(sig *Signature, pk [HashSize]byte) bool {
	current := sig.Leaf.Hash
	var buf [2 * HashSize]byte
	for _, mn := range sig.AuthPath {
		if mn.Index%2 == 1 {
			copy(buf[:HashSize], current[:])
			copy(buf[HashSize:], mn.Hash[:])
		} else {
			copy(buf[:HashSize], mn.Hash[:])
			copy(buf[HashSize:], current[:])
		}
		current = hashSum(buf[:])
	}
	return subtle.ConstantTimeCompare(current[:], pk[:]) == 1
}
