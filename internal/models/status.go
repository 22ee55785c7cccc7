package models

import (
	"fmt"
	"strings"
)

// Status is the pipeline stage of a customer.
type Status string

const (
	StatusNew        Status = "New"
	StatusContacted  Status = "Contacted"
	StatusInProgress Status = "In Progress"
	StatusClosed     Status = "Closed"
)

// Statuses is the canonical order used for dashboards and pickers.
var Statuses = []Status{StatusNew, StatusContacted, StatusInProgress, StatusClosed}

// ParseStatus accepts the exact status names. An empty value yields StatusNew.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StatusNew, nil
	}
	for _, s := range Statuses {
		if string(s) == trimmed {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid status: %s", trimmed)
}

func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// statusRank returns the position of s in Statuses, or len(Statuses) for
// unknown values so they sort last.
func statusRank(s Status) int {
	for i, candidate := range Statuses {
		if s == candidate {
			return i
		}
	}
	return len(Statuses)
}
