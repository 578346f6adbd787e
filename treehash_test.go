package hardyhash

import (
	"testing"
)

// Treehash over four explicit leaves derived from a fixed seed.
func TestExplicitLeavesTreehash(t *testing.T) {
	seed := make([]byte, HashSize)
	for i := range seed {
		seed[i] = 0x2a
	}
	leaves := make([]MerkleNode, 4)
	for i := range leaves {
		buf, err := prg(seed, HashSize, uint64(i))
		if err != nil {
			t.Fatalf("prg: %v", err)
		}
		copy(leaves[i].Hash[:], buf)
		leaves[i].Height = 0
		leaves[i].Index = uint32(i)
	}

	var stack []MerkleNode
	th := newTreehash([HashSize]byte{}, &stack, 0, 2)
	th.leaves = leaves

	toSave := []MerkleNode{
		{Height: 1, Index: 0},
		{Height: 1, Index: 1},
		{Height: 2, Index: 0},
	}
	sortSaveList(toSave)

	saved := make(map[[2]uint32]string)
	for i := 0; i < 4; i++ {
		newlySaved, err := th.updateSaving(&toSave)
		if err != nil {
			t.Fatalf("updateSaving: %v", err)
		}
		for _, nd := range newlySaved {
			saved[[2]uint32{uint32(nd.Height), nd.Index}] =
				hexString(nd.Hash[:])
		}
	}

	expect := map[[2]uint32]string{
		{1, 0}: "12dd39099be4c0e4cb81be6aa2180d7504eb165b32777b23146d21a940d57752",
		{1, 1}: "e2d814385986be9326917b63f9f308aab9d19764f43bfb0e95cac1ba96601b2d",
		{2, 0}: "12ba80836d8bb85de4f7243ed14f3b6889ac586e8d91d42593a0df63201fc1e7",
	}
	for addr, want := range expect {
		if saved[addr] != want {
			t.Errorf("node (%d,%d) is %s, want %s",
				addr[0], addr[1], saved[addr], want)
		}
	}

	if th.initialized {
		t.Errorf("treehash still traversing after the full sweep")
	}
	if got := hexString(th.node.Hash[:]); got != expect[[2]uint32{2, 0}] {
		t.Errorf("completed node is %s, want the root", got)
	}
	if len(stack) != 0 || th.nodesOnStack != 0 {
		t.Errorf("treehash left %d nodes on the stack", len(stack))
	}
}

// The engine visits nodes in the order the node comparison defines.
func TestTreehashVisitOrder(t *testing.T) {
	var secret [HashSize]byte
	secret[0] = 7

	var stack []MerkleNode
	th := newTreehash(secret, &stack, 0, 3)

	// Ask for every node of the height-3 subtree.
	var toSave []MerkleNode
	for h := uint8(0); h <= 3; h++ {
		for ix := uint32(0); ix < 1<<(3-h); ix++ {
			toSave = append(toSave, MerkleNode{Height: h, Index: ix})
		}
	}
	sortSaveList(toSave)

	var visited []MerkleNode
	for i := 0; i < 8; i++ {
		newlySaved, err := th.updateSaving(&toSave)
		if err != nil {
			t.Fatalf("updateSaving: %v", err)
		}
		visited = append(visited, newlySaved...)
	}

	if len(visited) != 15 {
		t.Fatalf("visited %d nodes, want 15", len(visited))
	}
	for i := 1; i < len(visited); i++ {
		if !visited[i-1].Less(visited[i]) {
			t.Fatalf("nodes (%d,%d) and (%d,%d) completed out of order",
				visited[i-1].Height, visited[i-1].Index,
				visited[i].Height, visited[i].Index)
		}
	}
}

func TestTreehashLowestHeight(t *testing.T) {
	var secret [HashSize]byte
	var stack []MerkleNode
	th := newTreehash(secret, &stack, 0, 3)

	if th.lowestHeight() != heightInfinity {
		t.Fatalf("an instance that never started should report no tail")
	}

	th.initialize(0)
	if th.lowestHeight() != 3 {
		t.Fatalf("an empty instance should report its target height")
	}

	if err := th.update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if th.lowestHeight() != 0 {
		t.Fatalf("after one update the lowest tail node should be a leaf")
	}

	for i := 0; i < 7; i++ {
		if err := th.update(); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if th.lowestHeight() != heightInfinity {
		t.Fatalf("a completed instance should report no tail")
	}
	if th.node.Height != 3 || th.node.Index != 0 {
		t.Fatalf("completed node addressed (%d,%d), want (3,0)",
			th.node.Height, th.node.Index)
	}
}
