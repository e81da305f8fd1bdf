package registry

func decimals(v int32) *int32 { return &v }

// DefaultEntries is the compiled-in registry used when configuration lists
// no tokens: the Base Sepolia staking deployments for UNI and USDC.
func DefaultEntries() []EntryConfig {
	return []EntryConfig{
		{
			Key:            "UNI",
			TokenAddress:   "0xC418dAb8482E4E5c31d861Fdd2461E8F2f88d5AE",
			StakingAddress: "0xe3F42d10A7b3126c0121859AFe19891A5bBb686d",
			DisplayName:    "UNI",
			ProjectName:    "Uniswap V3",
			ChainName:      "Base Sepolia",
			Stablecoin:     false,
			Categories:     []string{"Staking"},
			LogoURL:        "https://cryptologos.cc/logos/uniswap-uni-logo.png",
			Decimals:       decimals(18),
		},
		{
			Key:            "USDC",
			TokenAddress:   "0xaCA31A7E4d867f5C3180f401390DCF2d462B06B9",
			StakingAddress: "0x9232cA7b6b21a9E2782a5D21A82030C2799b374a",
			DisplayName:    "USDC",
			ProjectName:    "AAVE V3",
			ChainName:      "Base Sepolia",
			Stablecoin:     true,
			Categories:     []string{"Staking", "Stablecoin"},
			LogoURL:        "https://cryptologos.cc/logos/usd-coin-usdc-logo.png",
			Decimals:       decimals(6),
		},
	}
}
