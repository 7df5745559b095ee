package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ParseError reports an agent reply that lacked an expected pattern.
type ParseError struct {
	Want  string
	Reply string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no %s found in agent reply: %s", e.Want, truncate(e.Reply, 200))
}

var (
	addressRe = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

	// contractRe tolerates the agent's phrasing variance around deployment
	// replies ("contract address", "deployed to", bare backticked address).
	contractRe = regexp.MustCompile(`(?i)contract\s*(?:address|at|deployed\s*to)?[^\w\n]*[` + "`" + `\s]*(0x[0-9a-fA-F]{40}|[0-9a-fA-F]{40})`)

	// fencedJSONRe extracts a JSON object from a markdown code fence.
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

	vaultAddrRe = regexp.MustCompile(`(?i)["']?wallet_address["']?\s*:\s*["']?(0x[0-9a-fA-F]{40})["']?`)
	vaultIDRe   = regexp.MustCompile(`(?i)["']?wallet_id["']?\s*:\s*["']?([a-zA-Z0-9-]+)["']?`)
)

// ChecksumAddress normalizes a hex address to its EIP-55 checksummed form.
func ChecksumAddress(addr string) string {
	addr = strings.TrimPrefix(strings.TrimSpace(addr), "0x")
	addr = strings.ToLower(addr)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(addr))
	hash := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, len(addr))
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c = c - 'a' + 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// ParseAddress extracts the first hex address from a free-form reply and
// normalizes it.
func ParseAddress(reply string) (string, error) {
	m := addressRe.FindString(reply)
	if m == "" {
		return "", &ParseError{Want: "wallet address", Reply: reply}
	}
	return ChecksumAddress(m), nil
}

// ParseContractAddress extracts a deployed contract address, preferring the
// deployment phrasing and falling back to any bare address in the reply.
func ParseContractAddress(reply string) (string, error) {
	if m := contractRe.FindStringSubmatch(reply); m != nil {
		addr := m[1]
		if !strings.HasPrefix(addr, "0x") {
			addr = "0x" + addr
		}
		return ChecksumAddress(addr), nil
	}
	if m := addressRe.FindString(reply); m != "" {
		return ChecksumAddress(m), nil
	}
	return "", &ParseError{Want: "contract address", Reply: reply}
}

// VaultReply is the decoded result of a vault-creation instruction.
type VaultReply struct {
	Address string
	ID      string
}

// ParseVaultReply decodes a vault-creation reply. The agent may answer with
// structured JSON (possibly inside a code fence) or free text, so decoding
// tries the structured path first and falls back to pattern extraction.
func ParseVaultReply(reply string) (VaultReply, error) {
	candidate := reply
	if m := fencedJSONRe.FindStringSubmatch(reply); m != nil {
		candidate = m[1]
	}

	var structured struct {
		WalletAddress string `json:"wallet_address"`
		WalletID      string `json:"wallet_id"`
	}
	if err := json.Unmarshal([]byte(candidate), &structured); err == nil &&
		structured.WalletAddress != "" && structured.WalletID != "" {
		addr := structured.WalletAddress
		if !strings.HasPrefix(addr, "0x") {
			addr = "0x" + addr
		}
		if addressRe.MatchString(addr) {
			return VaultReply{Address: ChecksumAddress(addr), ID: structured.WalletID}, nil
		}
	}

	addrMatch := vaultAddrRe.FindStringSubmatch(reply)
	idMatch := vaultIDRe.FindStringSubmatch(reply)
	if addrMatch == nil || idMatch == nil {
		return VaultReply{}, &ParseError{Want: "vault wallet address and id", Reply: reply}
	}
	return VaultReply{Address: ChecksumAddress(addrMatch[1]), ID: idMatch[1]}, nil
}
