package service

import "strings"

// LoadStatus is a step of the load lifecycle.
type LoadStatus string

const (
	LoadQuote      LoadStatus = "quote"
	LoadBooked     LoadStatus = "booked"
	LoadDispatched LoadStatus = "dispatched"
	LoadInTransit  LoadStatus = "in_transit"
	LoadDelivered  LoadStatus = "delivered"
	LoadCancelled  LoadStatus = "cancelled"
)

var loadTransitions = map[LoadStatus][]LoadStatus{
	LoadQuote:      {LoadBooked, LoadCancelled},
	LoadBooked:     {LoadDispatched, LoadQuote, LoadCancelled},
	LoadDispatched: {LoadInTransit, LoadBooked, LoadCancelled},
	LoadInTransit:  {LoadDelivered},
	LoadDelivered:  nil,
	LoadCancelled:  nil,
}

// ParseLoadStatus normalizes s. "in-transit" is accepted for in_transit.
func ParseLoadStatus(s string) (LoadStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "in-transit" {
		normalized = string(LoadInTransit)
	}
	status := LoadStatus(normalized)
	if _, ok := loadTransitions[status]; !ok {
		return "", false
	}
	return status, true
}

// CanTransitionTo reports whether a load may move from s to next. Staying put is always allowed.
func (s LoadStatus) CanTransitionTo(next LoadStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range loadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActive reports whether the load is booked and not yet delivered.
func (s LoadStatus) IsActive() bool {
	return s == LoadBooked || s == LoadDispatched || s == LoadInTransit
}

// IsTerminal reports whether no further transition is possible.
func (s LoadStatus) IsTerminal() bool {
	return s == LoadDelivered || s == LoadCancelled
}
