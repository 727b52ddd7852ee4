package chainaddr

import (
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// Chain identifies the address format a recipient string is checked against.
type Chain string

const (
	Near     Chain = "near"
	Ethereum Chain = "eth"
	Bitcoin  Chain = "btc"
	Solana   Chain = "sol"
	Dogecoin Chain = "doge"
	XRP      Chain = "xrp"
	Tron     Chain = "tron"
	Zcash    Chain = "zec"
)

func FromString(s string) (Chain, bool) {
	switch Chain(strings.ToLower(s)) {
	case Near, Ethereum, Bitcoin, Solana, Dogecoin, XRP, Tron, Zcash:
		return Chain(strings.ToLower(s)), true
	}
	return "", false
}

// NEAR account grammar: dot-separated parts of lowercase alphanumerics,
// where `-`/`_` may only join alphanumeric runs within a part.
var (
	nearNamedAccount    = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)
	nearImplicitAccount = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Valid reports whether address is well formed for the given chain.
// Checks are deterministic format checks (prefix, charset, length); no
// checksum verification is performed for the non-native chains.
func Valid(chain Chain, address string) bool {
	if address == "" {
		return false
	}

	switch chain {
	case Near:
		return validNear(address)
	case Ethereum:
		return validEthereum(address)
	case Bitcoin:
		return validBitcoin(address)
	case Solana:
		return validSolana(address)
	case Dogecoin:
		return validDogecoin(address)
	case XRP:
		return validXRP(address)
	case Tron:
		return validTron(address)
	case Zcash:
		return validZcash(address)
	}
	return false
}

func validNear(address string) bool {
	if len(address) < 2 || len(address) > 64 {
		return false
	}
	if nearImplicitAccount.MatchString(address) {
		return true
	}
	return nearNamedAccount.MatchString(address)
}

func validEthereum(address string) bool {
	// IsHexAddress also accepts bare 40-hex strings, the 0x prefix is
	// required here.
	return strings.HasPrefix(address, "0x") && ecommon.IsHexAddress(address)
}

func validBitcoin(address string) bool {
	if strings.HasPrefix(address, "bc1") {
		if len(address) < 14 || len(address) > 74 {
			return false
		}
		for _, r := range address[3:] {
			if !strings.ContainsRune(bech32Charset, r) {
				return false
			}
		}
		return true
	}
	if address[0] == '1' || address[0] == '3' {
		return len(address) >= 25 && len(address) <= 34 && isBase58(address)
	}
	return false
}

func validSolana(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	// A 32-byte ed25519 key is required, not just base58 text. Length
	// alone would accept 25-byte base58check payloads from the other
	// chains.
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

func validDogecoin(address string) bool {
	if address[0] != 'D' && address[0] != 'A' {
		return false
	}
	return len(address) >= 26 && len(address) <= 34 && isBase58(address)
}

func validXRP(address string) bool {
	if address[0] != 'r' {
		return false
	}
	return len(address) >= 25 && len(address) <= 35 && isBase58(address)
}

func validTron(address string) bool {
	return address[0] == 'T' && len(address) == 34 && isBase58(address)
}

func validZcash(address string) bool {
	switch {
	case strings.HasPrefix(address, "t1"), strings.HasPrefix(address, "t3"):
		return len(address) == 35 && isBase58(address)
	case strings.HasPrefix(address, "zc"):
		return len(address) == 95 && isBase58(address[2:])
	}
	return false
}

// isBase58 reports whether s is non-empty and drawn entirely from the
// standard base58 alphabet (no 0, O, I, l). base58.Decode returns an empty
// slice when it hits a character outside the alphabet.
func isBase58(s string) bool {
	return s != "" && len(base58.Decode(s)) > 0
}
