package eth

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected = 4001
	CodeUnauthorized = 4100
)

// ProviderError is an EIP-1193 style error. It satisfies rpc.Error so codes
// coming from a node and from the local keystore are classified the same way.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int { return e.Code }

var (
	ErrUserRejected = &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."}
	ErrUnauthorized = &ProviderError{Code: CodeUnauthorized, Message: "The requested account has not been authorized."}

	ErrNoSigner = errors.New("contract session has no signer")
)

// IsUserRejected reports whether err means the wallet owner declined.
// A locked keystore account at signing time counts as a decline.
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, keystore.ErrLocked) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode() == CodeUserRejected
	}
	return false
}
