// Command authsigner produces mint authorization signatures for service
// providers. It signs the (registry, content id, supply) tuple with the
// provider's key and prints the recoverable signature the mint endpoint
// expects.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/entitlement-registry/internal/authorizer"
	"github.com/feral-file/entitlement-registry/internal/domain"
)

var (
	keyHex    = flag.String("key", "", "Service provider private key (hex, no 0x prefix)")
	registry  = flag.String("registry", "", "Registry instance address")
	contentID = flag.String("content-id", "", "Content id (decimal)")
	supply    = flag.String("supply", "0", "Current total supply of the content (decimal)")
)

func main() {
	flag.Parse()

	if *keyHex == "" || *registry == "" || *contentID == "" {
		flag.Usage()
		os.Exit(2)
	}

	key, err := crypto.HexToECDSA(*keyHex)
	if err != nil {
		fatalf("invalid private key: %v", err)
	}

	registryAddr, err := domain.ParseAddress(*registry)
	if err != nil {
		fatalf("invalid registry address: %v", err)
	}

	id, err := domain.ParseUint256(*contentID)
	if err != nil {
		fatalf("invalid content id: %v", err)
	}

	nonce, err := domain.ParseUint256(*supply)
	if err != nil {
		fatalf("invalid supply: %v", err)
	}

	digest := authorizer.New().MintDigest(registryAddr, id, nonce)
	sig, err := authorizer.Sign(digest, key)
	if err != nil {
		fatalf("failed to sign: %v", err)
	}

	fmt.Printf("signer:    %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("digest:    %s\n", hexutil.Encode(digest))
	fmt.Printf("signature: %s\n", hexutil.Encode(sig))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
