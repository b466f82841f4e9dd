package edit

import (
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// blockStartMinutes holds each block's window start as minutes after
// midnight: morning 09:00, afternoon 12:00, evening 17:00.
var blockStartMinutes = map[string]int{
	"morning":   9 * 60,
	"afternoon": 12 * 60,
	"evening":   17 * 60,
}

// assignBlockTimes rewrites the time slots of a block's activities
// sequentially from the block's window start, advancing by each activity's
// duration plus a fixed transfer allowance.
func assignBlockTimes(block *types.TimeBlock, blockName string) {
	const transferMinutes = 15

	start, ok := blockStartMinutes[blockName]
	if !ok {
		return
	}
	at := start
	for i := range block.Activities {
		block.Activities[i].TimeSlot = clockTime(at)
		duration := block.Activities[i].DurationMinutes
		if duration <= 0 {
			duration = 60
		}
		at += duration + transferMinutes
	}
}

// clockTime formats minutes-after-midnight as a 12-hour clock string.
func clockTime(minutes int) string {
	t := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return t.Format("03:04 PM")
}
