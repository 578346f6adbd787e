package hardyhash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

// prgSalt keys every HKDF derivation in the scheme.  Exactly these
// four bytes; changing them changes every key and every tree.
var prgSalt = []byte("salt")

func hashSum(in []byte) [HashSize]byte {
	return sha256.Sum256(in)
}

func hashSum512(in []byte) [64]byte {
	return sha512.Sum512(in)
}

// prg derives outLen bytes from seed with HKDF-SHA256.  info
// diversifies derivations from the same seed and enters the KDF as its
// decimal ASCII form, held in a buffer that lives for the whole call.
func prg(seed []byte, outLen int, info uint64) ([]byte, error) {
	infoBuf := []byte(strconv.FormatUint(info, 10))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, prgSalt, infoBuf), out); err != nil {
		return nil, wrapErrorf(err, "hkdf expand (info=%d, outLen=%d)", info, outLen)
	}
	return out, nil
}

// RandomBytes returns n bytes from the operating system's CSPRNG.
// Callers must treat a failure as fatal: key material derived from a
// partially filled buffer is worthless.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, wrapErrorf(err, "crypto.rand.Read()")
	}
	return buf, nil
}
