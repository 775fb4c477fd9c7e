package planning

import (
	"github.com/google/uuid"
)

// BuildBlocks collapses consecutive payments funding the same goal into one
// block per run. Blocks are ordered by start payment, then by the goal's
// position within that payment.
func BuildBlocks(payments []ScheduledPayment) []ScheduledGoalBlock {
	var blocks []ScheduledGoalBlock
	open := make(map[uuid.UUID]int)

	for _, payment := range payments {
		for _, c := range payment.Contributions {
			if !c.Amount.IsPositive() {
				continue
			}

			idx, ok := open[c.GoalID]
			if ok && blocks[idx].EndPaymentNumber == payment.PaymentNumber-1 {
				b := &blocks[idx]
				b.EndPaymentNumber = payment.PaymentNumber
				b.EndDate = payment.PaymentDate
				b.PaymentCount++
				b.TotalAmount = b.TotalAmount.Add(c.Amount)
				b.IsComplete = c.IsGoalComplete
				continue
			}

			open[c.GoalID] = len(blocks)
			blocks = append(blocks, ScheduledGoalBlock{
				GoalID:             c.GoalID,
				GoalName:           c.GoalName,
				StartPaymentNumber: payment.PaymentNumber,
				EndPaymentNumber:   payment.PaymentNumber,
				StartDate:          payment.PaymentDate,
				EndDate:            payment.PaymentDate,
				PaymentCount:       1,
				TotalAmount:        c.Amount,
				IsComplete:         c.IsGoalComplete,
			})
		}
	}

	return blocks
}
