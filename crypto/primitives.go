// Package crypto declares the asymmetric-key and hash primitives the
// shuffle round treats as external collaborators (spec §1, §6): keypair
// generation, sign, verify, encrypt, decrypt, and a hash with incremental
// update. kyber.go supplies the concrete go.dedis.ch/kyber/v3-backed
// implementation used by tests, cmd/shuffledemo, and production wiring.
package crypto

// PublicKey is the verification/encryption half of an asymmetric keypair.
type PublicKey interface {
	// Bytes serializes the key for wire transmission and storage.
	Bytes() []byte
	// Verify checks sig against message, returning a non-nil error on
	// mismatch or malformed input.
	Verify(message, sig []byte) error
	// Equal reports whether two public keys are the same key.
	Equal(other PublicKey) bool
	// Encrypt wraps plaintext so only the matching PrivateKey can Decrypt it.
	Encrypt(plaintext []byte) ([]byte, error)
}

// PrivateKey is the signing/decryption half of an asymmetric keypair.
type PrivateKey interface {
	// Public returns the corresponding public key.
	Public() PublicKey
	// Sign produces a signature over message.
	Sign(message []byte) ([]byte, error)
	// Decrypt reverses Encrypt performed against Public().
	Decrypt(ciphertext []byte) ([]byte, error)
	// Matches reports whether pub is this key's public half, the "verify
	// private matches public" check spec §6 requires before a revealed
	// private key is trusted.
	Matches(pub PublicKey) bool
	// Bytes serializes the private key, used only when a key is
	// deliberately revealed on the wire (private-key-sharing and blame).
	Bytes() []byte
}

// KeyFactory generates and deserializes keys for one asymmetric scheme.
type KeyFactory interface {
	// Generate produces a fresh ephemeral or long-term keypair.
	Generate() (PrivateKey, error)
	// LoadPublic deserializes a public key previously produced by Bytes().
	LoadPublic(data []byte) (PublicKey, error)
	// LoadPrivate deserializes a private key previously produced by a
	// PrivateKey implementation's own serialization (used when private
	// keys cross the wire: phase 6 key revelation and blame).
	LoadPrivate(data []byte) (PrivateKey, error)
	// SignatureSize is the fixed byte length of every signature this
	// factory's keys produce, used by the dispatch boundary to split a
	// signed wire message without a length prefix.
	SignatureSize() int
}

// HashFactory constructs fresh Hash instances.
type HashFactory interface {
	New() Hash
}

// Hash is an incremental hash accumulator.
type Hash interface {
	Write(p []byte)
	Sum() []byte
}
