package delivery

import (
	"errors"
	"fmt"
	"strings"
)

const (
	SlotMidday  = "11:00-17:00"
	SlotEvening = "17:00-22:00"

	DefaultSlot = SlotMidday
)

var (
	ErrTimeSlotMissing = errors.New("please choose a delivery time")
	ErrTimeSlotInvalid = errors.New("delivery time must be 11:00-17:00 or 17:00-22:00")
)

var dashVariants = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus
	"~", "-",
	".", ":",
)

func Slots() []string {
	return []string{SlotMidday, SlotEvening}
}

// NormalizeTimeSlot turns free-form input like " 11.00 – 17:00" into "11:00-17:00"
func NormalizeTimeSlot(raw string) string {
	cleaned := strings.Join(strings.Fields(dashVariants.Replace(raw)), "")

	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 {
		return cleaned
	}
	return normalizeClock(parts[0]) + "-" + normalizeClock(parts[1])
}

func normalizeClock(raw string) string {
	hours, minutes, found := strings.Cut(raw, ":")
	if !found {
		minutes = "00"
	}
	if len(hours) == 1 {
		hours = "0" + hours
	}
	return fmt.Sprintf("%s:%s", hours, minutes)
}

func IsValidTimeSlot(raw string) bool {
	return ValidateTimeSlot(raw) == nil
}

// ValidateTimeSlot never substitutes a default: anything else than the two slots is reported
func ValidateTimeSlot(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrTimeSlotMissing
	}
	switch NormalizeTimeSlot(raw) {
	case SlotMidday, SlotEvening:
		return nil
	default:
		return ErrTimeSlotInvalid
	}
}

// RecoverTimeSlot is used when restoring persisted state, where an unusable slot falls back to the default
func RecoverTimeSlot(raw string) string {
	if IsValidTimeSlot(raw) {
		return NormalizeTimeSlot(raw)
	}
	return DefaultSlot
}
