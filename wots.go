package hardyhash

import (
	"crypto/subtle"
	"math/big"
)

// digitEncoding selects how a message becomes chain positions.
type digitEncoding uint8

const (
	// encodingBasic reads sha512(message) two bits at a time.
	encodingBasic digitEncoding = iota
	// encodingFixedWeight maps sha256(message) into the
	// lexicographic ordering of weight-241 compositions.
	encodingFixedWeight
)

// OtsSignature is the ordered chain values of a one-time signature,
// wotsWidth elements long.
type OtsSignature [][HashSize]byte

// WOTS is a Winternitz one-time keypair.  A keypair signs at most
// once: Sign latches the object and refuses a second call.
type WOTS struct {
	skSeed   [HashSize]byte
	pk       [HashSize]byte
	encoding digitEncoding
	haveKey  bool
	used     bool
}

// NewBasicWOTS builds a keypair from 32 bytes of key material using
// the basic two-bit digit encoding.
func NewBasicWOTS(keyMaterial [HashSize]byte) (*WOTS, error) {
	return newWOTS(keyMaterial, encodingBasic)
}

// NewFixedWeightWOTS builds a keypair from 32 bytes of key material
// using the fixed-weight composition encoding.
func NewFixedWeightWOTS(keyMaterial [HashSize]byte) (*WOTS, error) {
	return newWOTS(keyMaterial, encodingFixedWeight)
}

func newWOTS(keyMaterial [HashSize]byte, enc digitEncoding) (*WOTS, error) {
	w := &WOTS{
		skSeed:   hashSum(keyMaterial[:]),
		encoding: enc,
		haveKey:  true,
	}
	if err := w.derivePk(); err != nil {
		return nil, err
	}
	return w, nil
}

// newBasicVerifier returns a keyless object usable only for Verify.
func newBasicVerifier() *WOTS {
	return &WOTS{encoding: encodingBasic}
}

// newFixedWeightVerifier returns a keyless object usable only for
// Verify.
func newFixedWeightVerifier() *WOTS {
	return &WOTS{encoding: encodingFixedWeight}
}

// PublicKey returns the compressed public key of the keypair.
func (w *WOTS) PublicKey() [HashSize]byte {
	return w.pk
}

// deriveSk expands the seed into the full secret key: wotsWidth chain
// starting points of HashSize bytes each.
func (w *WOTS) deriveSk() ([]byte, error) {
	return prg(w.skSeed[:], wotsWidth*HashSize, 0)
}

// iterF applies the chain function nIters times.
func iterF(base [HashSize]byte, nIters int) [HashSize]byte {
	for i := 0; i < nIters; i++ {
		base = hashSum(base[:])
	}
	return base
}

func (w *WOTS) derivePk() error {
	sk, err := w.deriveSk()
	if err != nil {
		return err
	}
	buf := make([]byte, wotsWidth*HashSize)
	var part [HashSize]byte
	for i := 0; i < wotsWidth; i++ {
		copy(part[:], sk[i*HashSize:(i+1)*HashSize])
		part = iterF(part, wotsDepth)
		copy(buf[i*HashSize:], part[:])
	}
	w.pk = hashSum(buf)
	return nil
}

// transformMessage maps a message to wotsWidth chain positions, each
// in [0, wotsDepth].
func (w *WOTS) transformMessage(message []byte) ([]uint8, error) {
	if w.encoding == encodingBasic {
		return basicDigits(message), nil
	}
	return fixedWeightDigits(message)
}

// basicDigits reads sha512(message) two bits at a time, low bits of
// each byte first.
func basicDigits(message []byte) []uint8 {
	digest := hashSum512(message)
	digits := make([]uint8, wotsWidth)
	for i := range digits {
		digits[i] = (digest[i/4] >> (2 * uint(i%4))) & 3
	}
	return digits
}

// fixedWeightDigits interprets sha256(message) as an unsigned integer
// indexing the lexicographic ordering of weight-241 compositions.
func fixedWeightDigits(message []byte) ([]uint8, error) {
	digest := hashSum(message)
	return indexToComposition(new(big.Int).SetBytes(digest[:]))
}

// Sign produces the one-time signature of message and invalidates the
// keypair.
func (w *WOTS) Sign(message []byte) (OtsSignature, error) {
	if !w.haveKey {
		return nil, errorf("cannot sign with a verification-only keypair")
	}
	if w.used {
		return nil, errorf("one-time keypair has already signed")
	}
	w.used = true

	digits, err := w.transformMessage(message)
	if err != nil {
		return nil, err
	}
	sk, err := w.deriveSk()
	if err != nil {
		return nil, err
	}
	sig := make(OtsSignature, wotsWidth)
	var part [HashSize]byte
	for i := range sig {
		copy(part[:], sk[i*HashSize:(i+1)*HashSize])
		sig[i] = iterF(part, int(digits[i]))
	}
	return sig, nil
}

// Verify checks a (pk, message, signature) triple.
func (w *WOTS) Verify(pk [HashSize]byte, message []byte, sig OtsSignature) (bool, error) {
	if len(sig) != wotsWidth {
		return false, nil
	}
	digits, err := w.transformMessage(message)
	if err != nil {
		return false, err
	}
	buf := make([]byte, wotsWidth*HashSize)
	for i := 0; i < wotsWidth; i++ {
		part := iterF(sig[i], wotsDepth-int(digits[i]))
		copy(buf[i*HashSize:], part[:])
	}
	got := hashSum(buf)
	return subtle.ConstantTimeCompare(got[:], pk[:]) == 1, nil
}
