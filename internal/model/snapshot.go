package model

// PoolSnapshot is the serialized state of a simulated pool. Big integers are
// decimal strings.
type PoolSnapshot struct {
	Token0               string             `json:"token0"`
	Token1               string             `json:"token1"`
	Fee                  uint32             `json:"fee"`
	TickSpacing          int32              `json:"tick_spacing"`
	SqrtPriceX96         string             `json:"sqrt_price_x96"`
	Tick                 int32              `json:"tick"`
	Liquidity            string             `json:"liquidity"`
	FeeGrowthGlobal0X128 string             `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string             `json:"fee_growth_global1_x128"`
	Reserve0             string             `json:"reserve0"`
	Reserve1             string             `json:"reserve1"`
	Ticks                []TickSnapshot     `json:"ticks"`
	Positions            []PositionSnapshot `json:"positions"`
}

// TickSnapshot is one initialized tick.
type TickSnapshot struct {
	Index                 int32  `json:"index"`
	LiquidityGross        string `json:"liquidity_gross"`
	LiquidityNet          string `json:"liquidity_net"`
	FeeGrowthOutside0X128 string `json:"fee_growth_outside0_x128"`
	FeeGrowthOutside1X128 string `json:"fee_growth_outside1_x128"`
}

// PositionSnapshot is one open position.
type PositionSnapshot struct {
	Owner                    string `json:"owner"`
	TickLower                int32  `json:"tick_lower"`
	TickUpper                int32  `json:"tick_upper"`
	Liquidity                string `json:"liquidity"`
	FeeGrowthInside0LastX128 string `json:"fee_growth_inside0_last_x128"`
	FeeGrowthInside1LastX128 string `json:"fee_growth_inside1_last_x128"`
	TokensOwed0              string `json:"tokens_owed0"`
	TokensOwed1              string `json:"tokens_owed1"`
}

// ReplayCheckpoint records how far an event replay got and the pool state at
// that point.
type ReplayCheckpoint struct {
	ChainID     uint64       `json:"chain_id"`
	PoolAddress string       `json:"pool_address"`
	BlockNumber uint64       `json:"block_number"`
	LogIndex    uint64       `json:"log_index"`
	Events      uint64       `json:"events"`
	Snapshot    PoolSnapshot `json:"snapshot"`
	UpdatedAt   string       `json:"updated_at"`
}

// After reports whether the event at (block, logIndex) comes after the checkpoint.
func (c ReplayCheckpoint) After(block, logIndex uint64) bool {
	if block != c.BlockNumber {
		return block > c.BlockNumber
	}
	return logIndex > c.LogIndex
}
