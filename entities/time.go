package entities

import "time"

const SlotDuration = 500 * time.Millisecond

// reference point used to project slots onto wall clock time
const referenceSlot = 29806536

var referenceSlotTime = time.Date(2025, time.September, 17, 20, 41, 58, 0, time.UTC)

// SlotTime returns the approximate wall clock time of a slot.
func SlotTime(slot uint64) time.Time {
	diff := int64(slot) - referenceSlot
	return referenceSlotTime.Add(time.Duration(diff) * SlotDuration)
}

// SlotsAgo returns the elapsed time between two slots, zero if slot is ahead of current.
func SlotsAgo(slot, current uint64) time.Duration {
	if slot >= current {
		return 0
	}
	return time.Duration(current-slot) * SlotDuration
}
