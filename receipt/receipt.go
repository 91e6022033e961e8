// Package receipt signs block hashes handed out by the service so that a
// holder can later check which node anchored them.
package receipt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/schnorr"
	"go.dedis.ch/kyber/v4/suites"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// ErrInvalidSignature is returned by Verify when the signature does not match.
var ErrInvalidSignature = errors.New("receipt: invalid signature")

// Signer holds the node identity and its Schnorr key pair.
type Signer struct {
	nodeID  string
	private kyber.Scalar
	public  kyber.Point
}

// NewSigner generates a fresh node id and key pair.
func NewSigner() *Signer {
	private := suite.Scalar().Pick(suite.RandomStream())
	return &Signer{
		nodeID:  strings.ReplaceAll(uuid.NewString(), "-", ""),
		private: private,
		public:  suite.Point().Mul(private, nil),
	}
}

// NodeID returns the 32 character node identifier.
func (s *Signer) NodeID() string {
	return s.nodeID
}

// PublicKey returns the hex encoded public key.
func (s *Signer) PublicKey() string {
	b, err := s.public.MarshalBinary()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// Sign signs the block hash and returns the hex encoded signature.
func (s *Signer) Sign(blockHash string) (string, error) {
	sig, err := schnorr.Sign(suite, s.private, []byte(blockHash))
	if err != nil {
		return "", fmt.Errorf("signing %s: %w", blockHash, err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify checks a hex signature over blockHash against a hex public key.
func Verify(publicKeyHex, blockHash, signatureHex string) error {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return fmt.Errorf("%w: public key is not hex", ErrInvalidSignature)
	}
	public := suite.Point()
	if err := public.UnmarshalBinary(pubBytes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidSignature)
	}
	if err := schnorr.Verify(suite, public, []byte(blockHash), sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
