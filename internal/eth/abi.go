package eth

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed wave_portal_abi.json
var wavePortalABI []byte

// LoadABI parses the WavePortal ABI. An empty path selects the embedded copy.
// Both a bare ABI array and a compiler artifact ({"abi": [...]}) are accepted.
func LoadABI(path string) (abi.ABI, error) {
	raw := wavePortalABI
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("read abi %s: %w", path, err)
		}
		raw = data
	}
	return ParseABI(raw)
}

func ParseABI(raw []byte) (abi.ABI, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("decode artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("artifact has no abi field")
		}
		raw = artifact.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}

	for _, name := range []string{methodGetAllWaves, methodWave} {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("abi is missing method %q", name)
		}
	}
	if _, ok := parsed.Events[eventNewWave]; !ok {
		return abi.ABI{}, fmt.Errorf("abi is missing event %q", eventNewWave)
	}
	return parsed, nil
}
