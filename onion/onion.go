// Package onion implements the layered-encryption helper the shuffle round
// treats as an external collaborator (spec §2, §6): wrapping a plaintext
// under an ordered list of public keys, stripping one layer per message in
// a vector, and randomly permuting a vector with a cryptographically
// strong PRNG.
package onion

import (
	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/shuffleround/crypto"
)

// Onion is the layered-encryption contract of spec §6.
type Onion interface {
	// Encrypt produces nested layers with pubKeys[0] outermost: the
	// participant holding pubKeys[0]'s private key strips the first layer.
	Encrypt(pubKeys []crypto.PublicKey, plaintext []byte) ([]byte, error)
	// Decrypt strips one layer from every element of vec using priv.
	// bad lists the indices that failed to decrypt; ok is false iff bad
	// is non-empty.
	Decrypt(priv crypto.PrivateKey, vec [][]byte) (cleartexts [][]byte, bad []int, ok bool)
	// Randomize uniformly permutes vec in place.
	Randomize(vec [][]byte)
}

// Layered is the default Onion implementation, built directly on the
// crypto package's PublicKey.Encrypt/PrivateKey.Decrypt hybrid scheme.
type Layered struct{}

// New returns the default Onion implementation.
func New() Layered { return Layered{} }

// Encrypt implements Onion. Layers are applied innermost-first so that
// pubKeys[0]'s layer, applied last, is outermost.
func (Layered) Encrypt(pubKeys []crypto.PublicKey, plaintext []byte) ([]byte, error) {
	ct := append([]byte(nil), plaintext...)
	for i := len(pubKeys) - 1; i >= 0; i-- {
		if pubKeys[i] == nil {
			return nil, errors.Errorf("onion encrypt: missing public key at index %d", i)
		}
		var err error
		ct, err = pubKeys[i].Encrypt(ct)
		if err != nil {
			return nil, errors.Wrapf(err, "onion encrypt: layer %d", i)
		}
	}
	return ct, nil
}

// Decrypt implements Onion.
func (Layered) Decrypt(priv crypto.PrivateKey, vec [][]byte) ([][]byte, []int, bool) {
	out := make([][]byte, len(vec))
	var bad []int
	for i, ct := range vec {
		pt, err := priv.Decrypt(ct)
		if err != nil {
			bad = append(bad, i)
			continue
		}
		out[i] = pt
	}
	return out, bad, len(bad) == 0
}

// Randomize implements Onion with an in-place Fisher-Yates shuffle drawing
// from kyber's cryptographically strong random stream, the same source
// evoting/lib/elgamal.go uses to pick ElGamal blinding factors.
func (Layered) Randomize(vec [][]byte) {
	stream := random.New()
	for i := len(vec) - 1; i > 0; i-- {
		j := randIntn(stream, i+1)
		vec[i], vec[j] = vec[j], vec[i]
	}
}

// randIntn draws a uniform integer in [0, n) from a cipher.Stream by
// rejection sampling over 4-byte little-endian draws.
func randIntn(stream interface{ XORKeyStream(dst, src []byte) }, n int) int {
	if n <= 1 {
		return 0
	}
	// n fits comfortably in 32 bits for any realistic group size.
	limit := uint32(n)
	max := ^uint32(0) - (^uint32(0) % limit)
	buf := make([]byte, 4)
	zero := make([]byte, 4)
	for {
		stream.XORKeyStream(buf, zero)
		v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		if v < max {
			return int(v % limit)
		}
	}
}
