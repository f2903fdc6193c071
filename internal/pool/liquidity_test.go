package pool

import (
	"testing"

	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

func TestPlanCreate(t *testing.T) {
	t.Run("bonded reserves", func(t *testing.T) {
		plan, err := PlanCreate(7, "pool-7", ledger.FromUint64(9_750), ledger.FromUint64(875_000), 30)
		if err != nil {
			t.Fatalf("PlanCreate() error = %v", err)
		}
		// floor(sqrt(9750 * 875000)) = 92364.
		if !plan.Pool.TotalShares.Equal(ledger.FromUint64(92_364)) {
			t.Fatalf("TotalShares = %s, want 92364", plan.Pool.TotalShares)
		}
		if !plan.LockedShares.Equal(ledger.FromUint64(1_000)) {
			t.Fatalf("LockedShares = %s, want 1000", plan.LockedShares)
		}
		if !plan.ProviderShares.Equal(ledger.FromUint64(91_364)) {
			t.Fatalf("ProviderShares = %s, want 91364", plan.ProviderShares)
		}
		if plan.Pool.CampaignID != 7 || plan.Pool.Address != "pool-7" {
			t.Fatalf("pool identity = (%d, %q), want (7, pool-7)", plan.Pool.CampaignID, plan.Pool.Address)
		}
		if plan.Pool.SwapFeeBps != 30 {
			t.Fatalf("SwapFeeBps = %d, want 30", plan.Pool.SwapFeeBps)
		}
		if !plan.Pool.ReserveBase.Equal(ledger.FromUint64(9_750)) || !plan.Pool.ReserveToken.Equal(ledger.FromUint64(875_000)) {
			t.Fatalf("reserves = (%s, %s), want (9750, 875000)", plan.Pool.ReserveBase, plan.Pool.ReserveToken)
		}
	})

	t.Run("square reserves mint the geometric mean", func(t *testing.T) {
		plan, err := PlanCreate(1, "pool-1", ledger.FromUint64(1_000_000), ledger.FromUint64(1_000_000), 30)
		if err != nil {
			t.Fatalf("PlanCreate() error = %v", err)
		}
		if !plan.Pool.TotalShares.Equal(ledger.FromUint64(1_000_000)) {
			t.Fatalf("TotalShares = %s, want 1000000", plan.Pool.TotalShares)
		}
		if !plan.ProviderShares.Equal(ledger.FromUint64(999_000)) {
			t.Fatalf("ProviderShares = %s, want 999000", plan.ProviderShares)
		}
	})

	t.Run("mint equal to the locked minimum", func(t *testing.T) {
		_, err := PlanCreate(1, "pool-1", ledger.FromUint64(1_000), ledger.FromUint64(1_000), 30)
		if !apperrors.IsCode(err, apperrors.CodePoolInsufficientLiquidity) {
			t.Fatalf("PlanCreate() error = %v, want code %v", err, apperrors.CodePoolInsufficientLiquidity)
		}
	})

	t.Run("mint one above the locked minimum", func(t *testing.T) {
		plan, err := PlanCreate(1, "pool-1", ledger.FromUint64(1_001), ledger.FromUint64(1_001), 30)
		if err != nil {
			t.Fatalf("PlanCreate() error = %v", err)
		}
		if !plan.ProviderShares.Equal(ledger.FromUint64(1)) {
			t.Fatalf("ProviderShares = %s, want 1", plan.ProviderShares)
		}
	})

	t.Run("zero base reserve", func(t *testing.T) {
		_, err := PlanCreate(1, "pool-1", ledger.Zero(), ledger.FromUint64(1_000_000), 30)
		if !apperrors.IsCode(err, apperrors.CodePoolZeroReserve) {
			t.Fatalf("PlanCreate() error = %v, want code %v", err, apperrors.CodePoolZeroReserve)
		}
	})

	t.Run("zero token reserve", func(t *testing.T) {
		_, err := PlanCreate(1, "pool-1", ledger.FromUint64(1_000_000), ledger.Zero(), 30)
		if !apperrors.IsCode(err, apperrors.CodePoolZeroReserve) {
			t.Fatalf("PlanCreate() error = %v, want code %v", err, apperrors.CodePoolZeroReserve)
		}
	})
}

func TestPlanAddLiquidity(t *testing.T) {
	evenPool := func() Pool {
		return Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(100_000),
			ReserveToken: ledger.FromUint64(400_000),
			TotalShares:  ledger.FromUint64(200_000),
			SwapFeeBps:   30,
		}
	}
	unevenPool := func() Pool {
		return Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(1_000),
			ReserveToken: ledger.FromUint64(3_000),
			TotalShares:  ledger.FromUint64(1_732),
			SwapFeeBps:   30,
		}
	}

	t.Run("proportional deposit", func(t *testing.T) {
		plan, err := PlanAddLiquidity(evenPool(), ledger.FromUint64(40_000), ledger.FromUint64(40_000), ledger.FromUint64(10_000))
		if err != nil {
			t.Fatalf("PlanAddLiquidity() error = %v", err)
		}
		if !plan.BaseIn.Equal(ledger.FromUint64(10_000)) {
			t.Fatalf("BaseIn = %s, want 10000", plan.BaseIn)
		}
		if !plan.SharesMinted.Equal(ledger.FromUint64(20_000)) {
			t.Fatalf("SharesMinted = %s, want 20000", plan.SharesMinted)
		}
		if !plan.Pool.ReserveBase.Equal(ledger.FromUint64(110_000)) ||
			!plan.Pool.ReserveToken.Equal(ledger.FromUint64(440_000)) ||
			!plan.Pool.TotalShares.Equal(ledger.FromUint64(220_000)) {
			t.Fatalf("pool = (%s, %s, %s), want (110000, 440000, 220000)",
				plan.Pool.ReserveBase, plan.Pool.ReserveToken, plan.Pool.TotalShares)
		}
	})

	t.Run("mint truncates toward the pool", func(t *testing.T) {
		plan, err := PlanAddLiquidity(unevenPool(), ledger.FromUint64(100), ledger.Zero(), ledger.Zero())
		if err != nil {
			t.Fatalf("PlanAddLiquidity() error = %v", err)
		}
		if !plan.BaseIn.Equal(ledger.FromUint64(33)) {
			t.Fatalf("BaseIn = %s, want 33", plan.BaseIn)
		}
		if !plan.SharesMinted.Equal(ledger.FromUint64(57)) {
			t.Fatalf("SharesMinted = %s, want 57", plan.SharesMinted)
		}
		if !plan.Pool.ReserveBase.Equal(ledger.FromUint64(1_033)) ||
			!plan.Pool.ReserveToken.Equal(ledger.FromUint64(3_100)) ||
			!plan.Pool.TotalShares.Equal(ledger.FromUint64(1_789)) {
			t.Fatalf("pool = (%s, %s, %s), want (1033, 3100, 1789)",
				plan.Pool.ReserveBase, plan.Pool.ReserveToken, plan.Pool.TotalShares)
		}
	})

	t.Run("zero token amount", func(t *testing.T) {
		_, err := PlanAddLiquidity(evenPool(), ledger.Zero(), ledger.Zero(), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolZeroAmount) {
			t.Fatalf("PlanAddLiquidity() error = %v, want code %v", err, apperrors.CodePoolZeroAmount)
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := PlanAddLiquidity(Pool{}, ledger.FromUint64(100), ledger.Zero(), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolZeroReserve) {
			t.Fatalf("PlanAddLiquidity() error = %v, want code %v", err, apperrors.CodePoolZeroReserve)
		}
	})

	t.Run("token below minimum", func(t *testing.T) {
		_, err := PlanAddLiquidity(evenPool(), ledger.FromUint64(100), ledger.FromUint64(101), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolSlippageExceeded) {
			t.Fatalf("PlanAddLiquidity() error = %v, want code %v", err, apperrors.CodePoolSlippageExceeded)
		}
	})

	t.Run("quoted base below minimum", func(t *testing.T) {
		_, err := PlanAddLiquidity(unevenPool(), ledger.FromUint64(100), ledger.Zero(), ledger.FromUint64(34))
		if !apperrors.IsCode(err, apperrors.CodePoolSlippageExceeded) {
			t.Fatalf("PlanAddLiquidity() error = %v, want code %v", err, apperrors.CodePoolSlippageExceeded)
		}
	})

	t.Run("deposit too small to mint", func(t *testing.T) {
		p := Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(1),
			ReserveToken: ledger.MustParse("1000000000000"),
			TotalShares:  ledger.FromUint64(1_000_000),
			SwapFeeBps:   30,
		}
		_, err := PlanAddLiquidity(p, ledger.FromUint64(5), ledger.Zero(), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolInsufficientLiquidity) {
			t.Fatalf("PlanAddLiquidity() error = %v, want code %v", err, apperrors.CodePoolInsufficientLiquidity)
		}
	})
}

func TestPlanRemoveLiquidity(t *testing.T) {
	grownPool := func() Pool {
		return Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(110_000),
			ReserveToken: ledger.FromUint64(440_000),
			TotalShares:  ledger.FromUint64(220_000),
			SwapFeeBps:   30,
		}
	}

	t.Run("proportional withdrawal", func(t *testing.T) {
		plan, err := PlanRemoveLiquidity(grownPool(), ledger.FromUint64(20_000), ledger.FromUint64(20_000), ledger.FromUint64(40_000), ledger.FromUint64(10_000))
		if err != nil {
			t.Fatalf("PlanRemoveLiquidity() error = %v", err)
		}
		if !plan.BaseOut.Equal(ledger.FromUint64(10_000)) || !plan.TokenOut.Equal(ledger.FromUint64(40_000)) {
			t.Fatalf("payout = (%s, %s), want (10000, 40000)", plan.BaseOut, plan.TokenOut)
		}
		if !plan.Pool.ReserveBase.Equal(ledger.FromUint64(100_000)) ||
			!plan.Pool.ReserveToken.Equal(ledger.FromUint64(400_000)) ||
			!plan.Pool.TotalShares.Equal(ledger.FromUint64(200_000)) {
			t.Fatalf("pool = (%s, %s, %s), want (100000, 400000, 200000)",
				plan.Pool.ReserveBase, plan.Pool.ReserveToken, plan.Pool.TotalShares)
		}
	})

	t.Run("payout truncates toward the pool", func(t *testing.T) {
		p := Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(1_033),
			ReserveToken: ledger.FromUint64(3_100),
			TotalShares:  ledger.FromUint64(1_789),
			SwapFeeBps:   30,
		}
		plan, err := PlanRemoveLiquidity(p, ledger.FromUint64(57), ledger.FromUint64(57), ledger.Zero(), ledger.Zero())
		if err != nil {
			t.Fatalf("PlanRemoveLiquidity() error = %v", err)
		}
		if !plan.BaseOut.Equal(ledger.FromUint64(32)) || !plan.TokenOut.Equal(ledger.FromUint64(98)) {
			t.Fatalf("payout = (%s, %s), want (32, 98)", plan.BaseOut, plan.TokenOut)
		}
		if !plan.Pool.ReserveBase.Equal(ledger.FromUint64(1_001)) ||
			!plan.Pool.ReserveToken.Equal(ledger.FromUint64(3_002)) ||
			!plan.Pool.TotalShares.Equal(ledger.FromUint64(1_732)) {
			t.Fatalf("pool = (%s, %s, %s), want (1001, 3002, 1732)",
				plan.Pool.ReserveBase, plan.Pool.ReserveToken, plan.Pool.TotalShares)
		}
	})

	t.Run("zero shares", func(t *testing.T) {
		_, err := PlanRemoveLiquidity(grownPool(), ledger.FromUint64(100), ledger.Zero(), ledger.Zero(), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolZeroAmount) {
			t.Fatalf("PlanRemoveLiquidity() error = %v, want code %v", err, apperrors.CodePoolZeroAmount)
		}
	})

	t.Run("burn exceeds position", func(t *testing.T) {
		_, err := PlanRemoveLiquidity(grownPool(), ledger.FromUint64(10), ledger.FromUint64(11), ledger.Zero(), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolInsufficientShares) {
			t.Fatalf("PlanRemoveLiquidity() error = %v, want code %v", err, apperrors.CodePoolInsufficientShares)
		}
		meta := apperrors.GetMetadata(err)
		if meta["Shares"] != "10" || meta["Requested"] != "11" {
			t.Fatalf("metadata = %v, want Shares=10 Requested=11", meta)
		}
	})

	t.Run("burn would breach the locked minimum", func(t *testing.T) {
		p := Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(2_000),
			ReserveToken: ledger.FromUint64(2_000),
			TotalShares:  ledger.FromUint64(2_000),
			SwapFeeBps:   30,
		}
		_, err := PlanRemoveLiquidity(p, ledger.FromUint64(1_001), ledger.FromUint64(1_001), ledger.Zero(), ledger.Zero())
		if !apperrors.IsCode(err, apperrors.CodePoolInsufficientLiquidity) {
			t.Fatalf("PlanRemoveLiquidity() error = %v, want code %v", err, apperrors.CodePoolInsufficientLiquidity)
		}
	})

	t.Run("burn down to the locked minimum", func(t *testing.T) {
		p := Pool{
			CampaignID:   7,
			Address:      "pool-7",
			ReserveBase:  ledger.FromUint64(2_000),
			ReserveToken: ledger.FromUint64(2_000),
			TotalShares:  ledger.FromUint64(2_000),
			SwapFeeBps:   30,
		}
		plan, err := PlanRemoveLiquidity(p, ledger.FromUint64(1_000), ledger.FromUint64(1_000), ledger.Zero(), ledger.Zero())
		if err != nil {
			t.Fatalf("PlanRemoveLiquidity() error = %v", err)
		}
		if !plan.Pool.ReserveBase.IsPositive() || !plan.Pool.ReserveToken.IsPositive() {
			t.Fatalf("reserves = (%s, %s), want both positive", plan.Pool.ReserveBase, plan.Pool.ReserveToken)
		}
		if !plan.Pool.TotalShares.Equal(ledger.FromUint64(MinimumLiquidity)) {
			t.Fatalf("TotalShares = %s, want %d", plan.Pool.TotalShares, MinimumLiquidity)
		}
	})

	t.Run("output below minimum", func(t *testing.T) {
		_, err := PlanRemoveLiquidity(grownPool(), ledger.FromUint64(20_000), ledger.FromUint64(20_000), ledger.Zero(), ledger.FromUint64(10_001))
		if !apperrors.IsCode(err, apperrors.CodePoolSlippageExceeded) {
			t.Fatalf("PlanRemoveLiquidity() error = %v, want code %v", err, apperrors.CodePoolSlippageExceeded)
		}
	})
}

func TestAddRemoveRoundTrip(t *testing.T) {
	created, err := PlanCreate(1, "pool-1", ledger.FromUint64(1_000), ledger.FromUint64(3_000), 30)
	if err != nil {
		t.Fatalf("PlanCreate() error = %v", err)
	}

	added, err := PlanAddLiquidity(created.Pool, ledger.FromUint64(100), ledger.Zero(), ledger.Zero())
	if err != nil {
		t.Fatalf("PlanAddLiquidity() error = %v", err)
	}

	removed, err := PlanRemoveLiquidity(added.Pool, added.SharesMinted, added.SharesMinted, ledger.Zero(), ledger.Zero())
	if err != nil {
		t.Fatalf("PlanRemoveLiquidity() error = %v", err)
	}

	if removed.BaseOut.GT(added.BaseIn) {
		t.Fatalf("BaseOut = %s, above the deposit %s", removed.BaseOut, added.BaseIn)
	}
	if removed.TokenOut.GT(added.TokenIn) {
		t.Fatalf("TokenOut = %s, above the deposit %s", removed.TokenOut, added.TokenIn)
	}
	if !removed.Pool.TotalShares.Equal(created.Pool.TotalShares) {
		t.Fatalf("TotalShares = %s, want back to %s", removed.Pool.TotalShares, created.Pool.TotalShares)
	}
	// Truncation keeps the dust in the reserves.
	if removed.Pool.ReserveBase.LT(created.Pool.ReserveBase) || removed.Pool.ReserveToken.LT(created.Pool.ReserveToken) {
		t.Fatalf("reserves = (%s, %s), below the pre-deposit (%s, %s)",
			removed.Pool.ReserveBase, removed.Pool.ReserveToken,
			created.Pool.ReserveBase, created.Pool.ReserveToken)
	}
}

func FuzzAddRemoveRoundTrip(f *testing.F) {
	f.Add(uint64(1_000), uint64(3_000), uint64(100))
	f.Add(uint64(9_750), uint64(875_000), uint64(1))
	f.Add(uint64(1_001), uint64(1_001), uint64(123_456))

	f.Fuzz(func(t *testing.T, reserveBase, reserveToken, tokenIn uint64) {
		reserveBase = reserveBase%(1<<32) + 1
		reserveToken = reserveToken%(1<<32) + 1
		tokenIn = tokenIn%(1<<32) + 1

		created, err := PlanCreate(1, "pool-1", ledger.FromUint64(reserveBase), ledger.FromUint64(reserveToken), 30)
		if err != nil {
			return
		}

		added, err := PlanAddLiquidity(created.Pool, ledger.FromUint64(tokenIn), ledger.Zero(), ledger.Zero())
		if err != nil {
			if !apperrors.IsCode(err, apperrors.CodePoolInsufficientLiquidity) {
				t.Fatalf("PlanAddLiquidity() error = %v", err)
			}
			return
		}

		removed, err := PlanRemoveLiquidity(added.Pool, added.SharesMinted, added.SharesMinted, ledger.Zero(), ledger.Zero())
		if err != nil {
			t.Fatalf("PlanRemoveLiquidity() error = %v", err)
		}

		// A provider can never withdraw more than it deposited.
		if removed.BaseOut.GT(added.BaseIn) {
			t.Fatalf("BaseOut = %s, above the deposit %s", removed.BaseOut, added.BaseIn)
		}
		if removed.TokenOut.GT(added.TokenIn) {
			t.Fatalf("TokenOut = %s, above the deposit %s", removed.TokenOut, added.TokenIn)
		}
		if !removed.Pool.ReserveBase.IsPositive() || !removed.Pool.ReserveToken.IsPositive() {
			t.Fatalf("reserves = (%s, %s), want both positive", removed.Pool.ReserveBase, removed.Pool.ReserveToken)
		}
	})
}
