/*

This file contains the entry-rules filter applied to candidate pools before
sizing and the limiter run. A failed filter is reported with the rule that
failed so backtests can explain why nothing was opened.

*/

package risk

import (
	"fmt"

	"github.com/solyield/lprisk/internal/types"
)

// MeetsEntryRules checks a candidate pool against the strategy's entry
// filter. The returned detail names the first rule that failed.
func MeetsEntryRules(snapshot types.MarketSnapshot, rules types.EntryRules) (bool, string) {
	if snapshot.APY < rules.MinAPY {
		return false, fmt.Sprintf("APY %.1f%% below minimum %.1f%%", snapshot.APY, rules.MinAPY)
	}
	if snapshot.APY > rules.MaxAPY {
		return false, fmt.Sprintf("APY %.1f%% above maximum %.1f%%", snapshot.APY, rules.MaxAPY)
	}

	tvl, err := snapshot.TVLUSD.Float64()
	if err != nil {
		return false, "TVL is not representable"
	}
	if tvl < rules.MinTVLUSD {
		return false, fmt.Sprintf("TVL $%.0f below minimum $%.0f", tvl, rules.MinTVLUSD)
	}

	volume, err := snapshot.Volume24hUSD.Float64()
	if err != nil {
		return false, "volume is not representable"
	}
	if volume < rules.MinVolume24hUSD {
		return false, fmt.Sprintf("24h volume $%.0f below minimum $%.0f", volume, rules.MinVolume24hUSD)
	}

	if tvl > 0 && (rules.MinVolumeTVLRatio > 0 || rules.MaxVolumeTVLRatio > 0) {
		ratio := volume / tvl
		if rules.MinVolumeTVLRatio > 0 && ratio < rules.MinVolumeTVLRatio {
			return false, fmt.Sprintf("volume/TVL ratio %.3f below minimum %.3f", ratio, rules.MinVolumeTVLRatio)
		}
		if rules.MaxVolumeTVLRatio > 0 && ratio > rules.MaxVolumeTVLRatio {
			return false, fmt.Sprintf("volume/TVL ratio %.3f above maximum %.3f", ratio, rules.MaxVolumeTVLRatio)
		}
	}

	if snapshot.RiskScore > rules.MaxRiskScore {
		return false, fmt.Sprintf("risk score %.1f above maximum %.1f", snapshot.RiskScore, rules.MaxRiskScore)
	}
	if snapshot.SustainabilityScore < rules.MinSustainabilityScore {
		return false, fmt.Sprintf("sustainability %.1f below minimum %.1f", snapshot.SustainabilityScore, rules.MinSustainabilityScore)
	}
	if snapshot.PoolAgeHours < rules.MinPoolAgeHours {
		return false, fmt.Sprintf("pool age %.0fh below minimum %.0fh", snapshot.PoolAgeHours, rules.MinPoolAgeHours)
	}

	if blocked, ok := rules.IsTokenBlocked(snapshot.TokenA, snapshot.TokenB); ok {
		return false, fmt.Sprintf("token %s is blocklisted", blocked)
	}

	return true, ""
}
