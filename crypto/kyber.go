package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"hash"
	"io"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/crypto/hkdf"
)

// suite is the Ed25519 curve every keypair in this package is drawn from,
// the same choice evoting/lib/suite.go makes for the DKG and shuffle
// protocols this package is grounded on.
var suite = edwards25519.NewBlakeSHA256Ed25519()

const (
	aesKeyLen   = 32
	aesNonceLen = 12
	hkdfOutLen  = aesKeyLen + aesNonceLen
)

// KyberFactory generates and loads Ed25519 keypairs used for both onion
// layer encryption and Schnorr signing, matching the source's use of a
// single AsymmetricKey type for both roles.
type KyberFactory struct{}

// NewKyberFactory returns the default KeyFactory implementation.
func NewKyberFactory() *KyberFactory { return &KyberFactory{} }

// Generate implements KeyFactory.
func (KyberFactory) Generate() (PrivateKey, error) {
	kp := key.NewKeyPair(suite)
	return &kyberPrivate{scalar: kp.Private, point: kp.Public}, nil
}

// LoadPublic implements KeyFactory.
func (KyberFactory) LoadPublic(data []byte) (PublicKey, error) {
	p := suite.Point()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "loading public key")
	}
	return &kyberPublic{point: p}, nil
}

// LoadPrivate implements KeyFactory.
func (KyberFactory) LoadPrivate(data []byte) (PrivateKey, error) {
	s := suite.Scalar()
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "loading private key")
	}
	return &kyberPrivate{scalar: s, point: suite.Point().Mul(s, nil)}, nil
}

// SignatureSize implements KeyFactory. Schnorr signatures over Ed25519 are
// a fixed 64 bytes (32-byte commitment point R || 32-byte response scalar s).
func (KyberFactory) SignatureSize() int { return 64 }

type kyberPublic struct {
	point kyber.Point
}

func (p *kyberPublic) Bytes() []byte {
	b, _ := p.point.MarshalBinary()
	return b
}

func (p *kyberPublic) Verify(message, sig []byte) error {
	return schnorr.Verify(suite, p.point, message, sig)
}

func (p *kyberPublic) Equal(other PublicKey) bool {
	o, ok := other.(*kyberPublic)
	if !ok || o == nil {
		return false
	}
	return p.point.Equal(o.point)
}

type kyberPrivate struct {
	scalar kyber.Scalar
	point  kyber.Point
}

func (p *kyberPrivate) Public() PublicKey {
	return &kyberPublic{point: p.point}
}

func (p *kyberPrivate) Sign(message []byte) ([]byte, error) {
	return schnorr.Sign(suite, p.scalar, message)
}

func (p *kyberPrivate) Matches(pub PublicKey) bool {
	other, ok := pub.(*kyberPublic)
	if !ok {
		return false
	}
	return p.point.Equal(other.point)
}

// Bytes serializes the private scalar, used only when revealing a key:
// the inner key in phase 6 and the outer key during blame (spec §4.2
// phase A: outer_private_key_bytes).
func (p *kyberPrivate) Bytes() []byte {
	b, _ := p.scalar.MarshalBinary()
	return b
}

// Decrypt reverses an onion layer wrapped with p.Public(): an ECDH shared
// point (derived from the layer's ephemeral public key and this scalar) is
// stretched with HKDF into an AES-GCM key and nonce, grounded on
// calypso/pqots/writer.go's deriveKey+AES-GCM hybrid scheme, adapted here
// to a fresh ephemeral key per layer instead of a fixed DKG scalar.
func (p *kyberPrivate) Decrypt(ciphertext []byte) ([]byte, error) {
	pointLen := suite.PointLen()
	if len(ciphertext) < pointLen {
		return nil, errors.New("onion layer too short to contain an ephemeral key")
	}
	ephemeral := suite.Point()
	if err := ephemeral.UnmarshalBinary(ciphertext[:pointLen]); err != nil {
		return nil, errors.Wrap(err, "decoding ephemeral point")
	}
	shared := suite.Point().Mul(p.scalar, ephemeral)
	return aesOpen(shared, ciphertext[pointLen:])
}

// Encrypt wraps plaintext for pub: a fresh ephemeral scalar/point pair is
// drawn, the ECDH shared point with pub is derived, and the result is
// encrypted the same way Decrypt reverses it. The ephemeral public point
// is prefixed to the ciphertext so the recipient can reconstruct the
// shared secret.
func (p *kyberPublic) Encrypt(plaintext []byte) ([]byte, error) {
	ephemeralScalar := suite.Scalar().Pick(random.New())
	ephemeralPoint := suite.Point().Mul(ephemeralScalar, nil)
	shared := suite.Point().Mul(ephemeralScalar, p.point)

	sealed, err := aesSeal(shared, plaintext)
	if err != nil {
		return nil, err
	}
	ephemeralBytes, err := ephemeralPoint.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "marshalling ephemeral point")
	}
	return append(ephemeralBytes, sealed...), nil
}

func deriveAESKeyNonce(shared kyber.Point) ([]byte, []byte, error) {
	sb, err := shared.MarshalBinary()
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshalling shared secret")
	}
	kdf := hkdf.New(func() hash.Hash { return sha256.New() }, sb, nil, []byte("shuffleround-onion-layer"))
	buf := make([]byte, hkdfOutLen)
	if _, err := io.ReadFull(kdf, buf); err != nil {
		return nil, nil, errors.Wrap(err, "deriving layer key")
	}
	return buf[:aesKeyLen], buf[aesKeyLen:], nil
}

func aesSeal(shared kyber.Point, plaintext []byte) ([]byte, error) {
	key, nonce, err := deriveAESKeyNonce(shared)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "constructing AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "constructing AES-GCM")
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

func aesOpen(shared kyber.Point, ciphertext []byte) ([]byte, error) {
	key, nonce, err := deriveAESKeyNonce(shared)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "constructing AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "constructing AES-GCM")
	}
	pt, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening onion layer")
	}
	return pt, nil
}

// Sha256HashFactory is the HashFactory implementation used for the phase 5
// equivocation hash and the blame evidence hash (spec §4.1, §4.2). The
// source uses a single incremental CppHash; sha256 plays that role here,
// matching the hash primitive calypso/pqots/writer.go reaches for
// alongside kyber.
type Sha256HashFactory struct{}

// New implements HashFactory.
func (Sha256HashFactory) New() Hash {
	return &sha256Hash{h: sha256.New()}
}

type sha256Hash struct {
	h hash.Hash
}

func (s *sha256Hash) Write(p []byte) { s.h.Write(p) }
func (s *sha256Hash) Sum() []byte    { return s.h.Sum(nil) }
