// Package authorizer verifies off-line mint authorizations signed by content
// service providers. The digest binds a signature to one registry instance,
// one content id, and one supply nonce, so a signature authorizes exactly one
// mint and cannot be replayed once the supply advances.
package authorizer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected length of a recoverable secp256k1 signature
const SignatureLength = 65

// Authorizer verifies mint authorization signatures
//
// Implementations must be stateless and must never panic on malformed input.
type Authorizer interface {
	// MintDigest builds the digest a service provider signs to authorize the
	// supply-th mint of contentID on the registry deployed at registry
	MintDigest(registry common.Address, contentID *big.Int, supply *big.Int) []byte

	// Verify recovers the signer of digest from signature and compares it to
	// expectedSigner. Returns false on malformed signatures.
	Verify(digest []byte, signature []byte, expectedSigner common.Address) bool
}

type personalSignAuthorizer struct{}

// New creates an Authorizer using Ethereum personal-message signatures over
// keccak256(abi.encodePacked(registry, contentID, supply))
func New() Authorizer {
	return &personalSignAuthorizer{}
}

// MintDigest reproduces solidityKeccak256(["address","uint256","uint256"], ...)
// wrapped in the "\x19Ethereum Signed Message:\n32" prefix that eth_sign and
// ethers signMessage apply.
func (a *personalSignAuthorizer) MintDigest(registry common.Address, contentID *big.Int, supply *big.Int) []byte {
	packed := make([]byte, 0, common.AddressLength+64)
	packed = append(packed, registry.Bytes()...)
	packed = append(packed, common.LeftPadBytes(contentID.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(supply.Bytes(), 32)...)
	inner := crypto.Keccak256(packed)

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(inner))
	return crypto.Keccak256(append([]byte(prefixed), inner...))
}

// Verify recovers the public key from (digest, signature) and compares the
// derived address to expectedSigner
func (a *personalSignAuthorizer) Verify(digest []byte, signature []byte, expectedSigner common.Address) bool {
	if len(digest) != common.HashLength || len(signature) != SignatureLength {
		return false
	}

	// Wallets emit V as 27/28; crypto.SigToPub expects 0/1
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*pub) == expectedSigner
}

// Sign produces a recoverable signature over digest with V normalized to 27/28,
// matching what ethers.Wallet.signMessage emits. The registry never signs;
// this is for the authsigner tool and tests.
func Sign(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", common.HashLength, len(digest))
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}

	sig[64] += 27
	return sig, nil
}
