package hardyhash

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func writeTestState(t *testing.T, dir string) string {
	t.Helper()
	ctx := testContext(t, 2, 2)
	keys, err := ctx.Initialize([]byte("container seed"))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	path := filepath.Join(dir, "signer_0")
	if err := writeStateFile(path, keys.SignerStates[0]); err != nil {
		t.Fatalf("writeStateFile: %v", err)
	}
	return path
}

func TestStateContainerRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "go-hardyhash-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestState(t, dir)

	ctr, cerr := openStateContainer(path)
	if cerr != nil {
		t.Fatalf("openStateContainer: %v", cerr)
	}
	defer ctr.close()

	state, cerr := ctr.load()
	if cerr != nil {
		t.Fatalf("load: %v", cerr)
	}
	if state.currentLeaf() != 0 {
		t.Fatalf("fresh state starts at leaf %d", state.currentLeaf())
	}

	state.exhausted = true
	if cerr = ctr.store(state); cerr != nil {
		t.Fatalf("store: %v", cerr)
	}
	state2, cerr := ctr.load()
	if cerr != nil {
		t.Fatalf("load: %v", cerr)
	}
	if !state2.Exhausted() {
		t.Fatalf("stored exhaustion flag was lost")
	}
}

func TestStateContainerLock(t *testing.T) {
	dir, err := ioutil.TempDir("", "go-hardyhash-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestState(t, dir)

	ctr, cerr := openStateContainer(path)
	if cerr != nil {
		t.Fatalf("openStateContainer: %v", cerr)
	}

	if _, cerr = openStateContainer(path); cerr == nil {
		t.Fatalf("the same state was locked twice")
	} else if !cerr.Locked() {
		t.Fatalf("contended open did not report Locked(): %v", cerr)
	}

	ctr.close()
	ctr2, cerr := openStateContainer(path)
	if cerr != nil {
		t.Fatalf("reopening after close failed: %v", cerr)
	}
	ctr2.close()
}

func TestStateContainerDetectsCorruption(t *testing.T) {
	dir, err := ioutil.TempDir("", "go-hardyhash-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestState(t, dir)

	buf, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	buf[len(buf)/2] ^= 0x40
	if err := ioutil.WriteFile(path, buf, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, cerr := LoadSignerState(path); cerr == nil {
		t.Fatalf("a corrupted state file loaded successfully")
	}

	if err := ioutil.WriteFile(path, buf[:4], 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, cerr := LoadSignerState(path); cerr == nil {
		t.Fatalf("a truncated state file loaded successfully")
	}
}

func TestPublicKeyFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "go-hardyhash-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	var pk [HashSize]byte
	for i := range pk {
		pk[i] = byte(i * 5)
	}
	path := filepath.Join(dir, "public_key")
	if kerr := writePublicKey(path, pk); kerr != nil {
		t.Fatalf("writePublicKey: %v", kerr)
	}
	got, kerr := LoadPublicKey(path)
	if kerr != nil {
		t.Fatalf("LoadPublicKey: %v", kerr)
	}
	if got != pk {
		t.Fatalf("public key did not round-trip")
	}

	if err := ioutil.WriteFile(path, pk[:16], 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, kerr := LoadPublicKey(path); kerr == nil {
		t.Fatalf("a short public key file loaded successfully")
	}
}
