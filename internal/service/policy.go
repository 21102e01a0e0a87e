package service

import (
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// RewardStreakThreshold is the streak length that triggers a payout. The
// reward fires only when the streak lands exactly on the threshold; day 8
// and beyond pay nothing until the streak resets and climbs back.
const RewardStreakThreshold = 7

// PunishmentDecision is the outcome of the escalation policy for one failure.
type PunishmentDecision struct {
	Type   types.TransactionType
	Amount decimal.Decimal
	// NextFailCount and NextTotalStaked are the habit counter values the
	// engine must persist alongside the transaction.
	NextFailCount   int
	NextTotalStaked decimal.Decimal
}

// DecidePunishment applies the two-strike escalation ladder. The ladder is
// keyed on the strike counter alone, not on how close together the failures
// fell:
//
//	failCount 0: stake the habit's pledge, counter moves to 1
//	failCount 1: forfeit the entire at-risk balance, counter resets to 0
func DecidePunishment(habit *models.Habit) PunishmentDecision {
	if habit.FailCount == 0 {
		return PunishmentDecision{
			Type:            types.TxTypeStake,
			Amount:          habit.StakeAmount,
			NextFailCount:   1,
			NextTotalStaked: habit.TotalStaked.Add(habit.StakeAmount),
		}
	}

	return PunishmentDecision{
		Type:            types.TxTypePunishment,
		Amount:          habit.TotalStaked,
		NextFailCount:   0,
		NextTotalStaked: decimal.Zero,
	}
}

// RewardDecision is the payout for a qualifying streak.
type RewardDecision struct {
	// Amount is the returned stake plus the fixed bonus.
	Amount decimal.Decimal
}

// DecideReward returns a payout only when newStreak lands exactly on the
// threshold. bonus is the fixed extra paid on top of the returned stake.
func DecideReward(habit *models.Habit, newStreak int, bonus decimal.Decimal) *RewardDecision {
	if newStreak != RewardStreakThreshold {
		return nil
	}

	return &RewardDecision{
		Amount: habit.TotalStaked.Add(bonus),
	}
}
