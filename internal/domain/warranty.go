package domain

import (
	"fmt"
	"strings"
	"time"
)

// WarrantyStatus is stored as an integer in soldItem.warrStat.
type WarrantyStatus int

const (
	WarrantyInactive WarrantyStatus = 0
	WarrantyActive   WarrantyStatus = 1
	WarrantyClaimed  WarrantyStatus = 2
)

func (s WarrantyStatus) String() string {
	switch s {
	case WarrantyInactive:
		return "inactive"
	case WarrantyActive:
		return "active"
	case WarrantyClaimed:
		return "claimed"
	}
	return fmt.Sprintf("WarrantyStatus(%d)", int(s))
}

// ParseWarrantyStatus accepts either the stored integer or the status name.
func ParseWarrantyStatus(v any) (WarrantyStatus, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "inactive":
			return WarrantyInactive, nil
		case "active":
			return WarrantyActive, nil
		case "claimed":
			return WarrantyClaimed, nil
		}
	}

	n, err := AsInt(v)
	if err != nil {
		return 0, fmt.Errorf("invalid warranty status %v", v)
	}
	st := WarrantyStatus(n)
	if st < WarrantyInactive || st > WarrantyClaimed {
		return 0, fmt.Errorf("invalid warranty status %d", n)
	}
	return st, nil
}

// WarrantyEndDate adds a warranty time span in months to its start date.
// Month overflow normalizes like time.AddDate.
func WarrantyEndDate(start time.Time, months int64) time.Time {
	return start.AddDate(0, int(months), 0)
}
