package model

import "strings"

// Status is a lead's position in the sales pipeline.
type Status string

const (
	StatusNewLead   Status = "new_lead"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusLost      Status = "lost"
	StatusClosed    Status = "closed"
)

// Statuses lists every pipeline status in pipeline order.
var Statuses = []Status{StatusNewLead, StatusContacted, StatusQualified, StatusLost, StatusClosed}

// ParseStatus accepts a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if v == st {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Reason: "must be one of new_lead, contacted, qualified, lost, closed"}
}
