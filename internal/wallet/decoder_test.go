package wallet

import (
	"errors"
	"testing"
)

func TestChecksumAddress(t *testing.T) {
	// Reference vectors from the EIP-55 specification.
	cases := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range cases {
		if got := ChecksumAddress(want); got != want {
			t.Errorf("ChecksumAddress(%q) = %q", want, got)
		}
		// Lowercased input must checksum to the same form.
		lower := "0x" + toLower(want[2:])
		if got := ChecksumAddress(lower); got != want {
			t.Errorf("ChecksumAddress(%q) = %q, want %q", lower, got, want)
		}
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

func TestParseAddress(t *testing.T) {
	reply := "My agent wallet address is 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed, happy to help!"
	got, err := ParseAddress(reply)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if got != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Errorf("ParseAddress = %q", got)
	}
}

func TestParseAddressMissing(t *testing.T) {
	_, err := ParseAddress("I could not complete that operation.")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParseContractAddress(t *testing.T) {
	const want = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
	cases := []struct {
		name  string
		reply string
	}{
		{"labeled", "Done! Contract address: 0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"},
		{"deployed to", "The contract deployed to 0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb on Base Sepolia."},
		{"backticked", "Contract `0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb` is live."},
		{"bare address fallback", "Deployment succeeded. 0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseContractAddress(tc.reply)
			if err != nil {
				t.Fatalf("ParseContractAddress: %v", err)
			}
			if got != want {
				t.Errorf("ParseContractAddress = %q, want %q", got, want)
			}
		})
	}
}

func TestParseContractAddressMissing(t *testing.T) {
	_, err := ParseContractAddress("The deployment transaction is still pending.")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParseVaultReply(t *testing.T) {
	const wantAddr = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	cases := []struct {
		name  string
		reply string
	}{
		{
			"plain json",
			`{"wallet_address": "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", "wallet_id": "vault-42"}`,
		},
		{
			"fenced json",
			"Here is your new wallet:\n```json\n{\"wallet_address\": \"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359\", \"wallet_id\": \"vault-42\"}\n```\nAnything else?",
		},
		{
			"free text fallback",
			`I created the wallet. wallet_address: 0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359, wallet_id: vault-42`,
		},
		{
			"json missing 0x prefix",
			`{"wallet_address": "fb6916095ca1df60bb79ce92ce3ea74c37c5d359", "wallet_id": "vault-42"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseVaultReply(tc.reply)
			if err != nil {
				t.Fatalf("ParseVaultReply: %v", err)
			}
			if got.Address != wantAddr {
				t.Errorf("Address = %q, want %q", got.Address, wantAddr)
			}
			if got.ID != "vault-42" {
				t.Errorf("ID = %q, want vault-42", got.ID)
			}
		})
	}
}

func TestParseVaultReplyMissing(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"no content", "Sorry, I cannot create wallets right now."},
		{"address without id", "wallet_address: 0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseVaultReply(tc.reply)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
		})
	}
}
