package hardyhash

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash"
	"github.com/nightlyone/lockfile"
)

// A signer state lives in two files:
//
//	path         codec payload followed by an xxhash64 frame
//	path.lock    held while the state is loaded, advanced and rewritten
//
// The frame catches torn or bit-rotted state files before they can
// hand out a stale leaf; the lock keeps two accidental concurrent
// invocations from both consuming one.

const checksumSize = 8

// stateContainer owns the on-disk representation of one SignerState.
type stateContainer struct {
	path  string
	flock lockfile.Lockfile
}

// openStateContainer locks the state file at path.
func openStateContainer(path string) (*stateContainer, Error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, wrapErrorf(err, "could not turn %s into an absolute path", path)
	}
	ctr := &stateContainer{path: abs}

	lockFilePath := abs + ".lock"
	ctr.flock, err = lockfile.New(lockFilePath)
	if err != nil {
		return nil, wrapErrorf(err, "failed to create lockfile %s", lockFilePath)
	}
	// TryLock hands a lock file recording our own PID back to us, so a
	// second open from this process is refused here.
	if owner, oerr := ctr.flock.GetOwner(); oerr == nil && owner.Pid == os.Getpid() {
		err2 := errorf("could not lock %s: already locked by this process", path)
		err2.locked = true
		return nil, err2
	}
	if err = ctr.flock.TryLock(); err != nil {
		err2 := wrapErrorf(err, "could not lock %s", path)
		if _, ok := err.(interface {
			Temporary() bool
		}); ok {
			err2.locked = true
		}
		return nil, err2
	}
	return ctr, nil
}

// close releases the lock.
func (ctr *stateContainer) close() {
	_ = ctr.flock.Unlock()
}

// load reads, checks and decodes the state file.
func (ctr *stateContainer) load() (*SignerState, Error) {
	return LoadSignerState(ctr.path)
}

// store rewrites the state file through a rename so a crash leaves
// either the old state or the new one, never a torn file.
func (ctr *stateContainer) store(state *SignerState) Error {
	return writeStateFile(ctr.path, state)
}

// remove deletes the state file.
func (ctr *stateContainer) remove() error {
	return os.Remove(ctr.path)
}

func encodeStateFile(state *SignerState) []byte {
	payload, _ := state.MarshalBinary()
	var frame [checksumSize]byte
	binary.LittleEndian.PutUint64(frame[:], xxhash.Sum64(payload))
	return append(payload, frame[:]...)
}

// writeStateFile writes state to path atomically where the platform
// supports it.
func writeStateFile(path string, state *SignerState) Error {
	tmp := path + ".new"
	if err := ioutil.WriteFile(tmp, encodeStateFile(state), 0600); err != nil {
		return wrapErrorf(err, "writing state file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return wrapErrorf(err, "renaming %s into place", tmp)
	}
	return nil
}

// LoadSignerState reads a signer state without taking the signing
// lock, for inspection.
func LoadSignerState(path string) (*SignerState, Error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, wrapErrorf(err, "reading state file %s", path)
	}
	if len(buf) < checksumSize {
		return nil, errorf("state file %s is truncated", path)
	}
	payload := buf[:len(buf)-checksumSize]
	if xxhash.Sum64(payload) != binary.LittleEndian.Uint64(buf[len(buf)-checksumSize:]) {
		return nil, errorf("state file %s is corrupt (checksum mismatch)", path)
	}
	state := new(SignerState)
	if err := state.UnmarshalBinary(payload); err != nil {
		return nil, wrapErrorf(err, "decoding state file %s", path)
	}
	return state, nil
}

// writePublicKey stores the 32-byte root.
func writePublicKey(path string, pk [HashSize]byte) Error {
	if err := ioutil.WriteFile(path, pk[:], 0600); err != nil {
		return wrapErrorf(err, "writing public key %s", path)
	}
	return nil
}

// LoadPublicKey reads a public key written by WriteToDir.
func LoadPublicKey(path string) ([HashSize]byte, Error) {
	var pk [HashSize]byte
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return pk, wrapErrorf(err, "reading public key %s", path)
	}
	if len(buf) != HashSize {
		return pk, errorf("public key %s has length %d, want %d",
			path, len(buf), HashSize)
	}
	copy(pk[:], buf)
	return pk, nil
}
