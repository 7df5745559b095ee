package wallet

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// weiPerEth converts between ETH amounts and the chain's base unit.
var weiPerEth = decimal.New(1, 18)

// FundingStatus is the outcome of a vault balance check.
type FundingStatus struct {
	Sufficient bool            `json:"sufficient"`
	Balance    decimal.Decimal `json:"balance"`  // ETH
	Required   decimal.Decimal `json:"required"` // ETH
}

// CheckFunding compares an address's on-chain balance against a required ETH
// amount. The comparison happens in wei so fractional amounts never lose
// precision.
func CheckFunding(ctx context.Context, chain ChainReader, address string, required decimal.Decimal) (FundingStatus, error) {
	balanceWei, err := chain.Balance(ctx, address)
	if err != nil {
		return FundingStatus{}, fmt.Errorf("reading balance of %s: %w", address, err)
	}

	balance := decimal.NewFromBigInt(balanceWei, 0)
	requiredWei := required.Mul(weiPerEth)

	return FundingStatus{
		Sufficient: balance.GreaterThanOrEqual(requiredWei),
		Balance:    balance.Div(weiPerEth),
		Required:   required,
	}, nil
}
