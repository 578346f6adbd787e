package hardyhash

import (
	"testing"
)

func TestNodeOrderingIsStrictTotalOrder(t *testing.T) {
	// Every node of a height-4 subtree.
	var nodes []MerkleNode
	for h := uint8(0); h <= 4; h++ {
		for ix := uint32(0); ix < 1<<(4-h); ix++ {
			nodes = append(nodes, MerkleNode{Height: h, Index: ix})
		}
	}
	for i, a := range nodes {
		if a.Less(a) {
			t.Fatalf("node (%d,%d) compares less than itself", a.Height, a.Index)
		}
		for j, b := range nodes {
			if i == j {
				continue
			}
			ab := a.Less(b)
			ba := b.Less(a)
			if ab == ba {
				t.Fatalf("ordering is not total on (%d,%d) vs (%d,%d)",
					a.Height, a.Index, b.Height, b.Index)
			}
		}
	}
}

func TestCombineAddressing(t *testing.T) {
	a := MerkleNode{Height: 2, Index: 6}
	b := MerkleNode{Height: 2, Index: 7}
	a.Hash[0] = 1
	b.Hash[0] = 2

	parent := combine(a, b)
	if parent.Height != 3 || parent.Index != 3 {
		t.Errorf("combine addressed parent at (%d,%d), want (3,3)",
			parent.Height, parent.Index)
	}

	var buf [2 * HashSize]byte
	copy(buf[:HashSize], a.Hash[:])
	copy(buf[HashSize:], b.Hash[:])
	if parent.Hash != hashSum(buf[:]) {
		t.Errorf("combine did not hash left||right")
	}
}

func TestLeafCalcMatchesWotsCalc(t *testing.T) {
	secret := make([]byte, HashSize)
	for i := range secret {
		secret[i] = byte(i)
	}
	leaf, err := leafCalc(secret, 5)
	if err != nil {
		t.Fatalf("leafCalc: %v", err)
	}
	if leaf.Height != 0 || leaf.Index != 5 {
		t.Errorf("leafCalc addressed (%d,%d), want (0,5)", leaf.Height, leaf.Index)
	}
	w, err := wotsCalc(secret, 5)
	if err != nil {
		t.Fatalf("wotsCalc: %v", err)
	}
	if leaf.Hash != w.PublicKey() {
		t.Errorf("leaf hash is not the one-time public key")
	}
}
