package eth

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxProofAge — максимальный возраст proof (защита от replay).
const MaxProofAge = 5 * time.Minute

// Proof is a personal_sign (EIP-191) signature over ProofMessage.
type Proof struct {
	Address   string `json:"address"`
	Domain    string `json:"domain"`
	Payload   string `json:"payload"`   // наш nonce
	Timestamp int64  `json:"timestamp"` // unix seconds
	Signature string `json:"signature"` // 0x-prefixed hex, 65 bytes
}

// ProofMessage is the exact text the wallet is asked to sign.
func ProofMessage(domain, address, payload string, timestamp int64) string {
	return fmt.Sprintf("%s wants you to sign in with your Ethereum account:\n%s\n\nNonce: %s\nIssued At: %s",
		domain, address, payload, time.Unix(timestamp, 0).UTC().Format(time.RFC3339))
}

// VerifyProof checks freshness, domain, and that the signature recovers to
// proof.Address.
func VerifyProof(proof Proof, allowedDomains []string) error {
	proofTime := time.Unix(proof.Timestamp, 0)
	if time.Since(proofTime) > MaxProofAge {
		return fmt.Errorf("proof expired: %s old", time.Since(proofTime).Round(time.Second))
	}
	if proofTime.After(time.Now().Add(1 * time.Minute)) {
		return fmt.Errorf("proof timestamp is in the future")
	}

	if !isDomainAllowed(proof.Domain, allowedDomains) {
		return fmt.Errorf("domain %q not in allowed list", proof.Domain)
	}

	if !common.IsHexAddress(proof.Address) {
		return fmt.Errorf("invalid address: %s", proof.Address)
	}

	msg := ProofMessage(proof.Domain, proof.Address, proof.Payload, proof.Timestamp)
	return VerifyPersonalSign(common.HexToAddress(proof.Address), []byte(msg), proof.Signature)
}

// VerifyPersonalSign recovers the signer of an EIP-191 message and compares
// it with want. Both 0/1 and 27/28 recovery ids are accepted.
func VerifyPersonalSign(want common.Address, message []byte, sigHex string) error {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return fmt.Errorf("recover signer: %w", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != want {
		return fmt.Errorf("invalid signature: signed by %s", got.Hex())
	}
	return nil
}

func isDomainAllowed(domain string, allowed []string) bool {
	if len(allowed) == 0 {
		return true // dev mode
	}
	for _, d := range allowed {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
