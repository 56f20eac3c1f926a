package notify

import (
	"fmt"
	"time"

	"visitordesk/internal/ids"
	"visitordesk/internal/models"
)

type Type string

const (
	TypeWalkIn        Type = "walk_in"
	TypePreRegistered Type = "pre_registered"
	TypeArrival       Type = "arrival"
	TypeSecurity      Type = "security"
	TypeVisitor       Type = "visitor"
)

type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
	GuestCode string    `json:"guestCode,omitempty"`
	VisitorID string    `json:"visitorId,omitempty"`
}

type classification struct {
	Type    Type
	Title   string
	Message string
}

// rule decides whether an event concerns the viewer. Higher priority wins when
// several rules match; equal priorities resolve to the earlier rule.
type rule struct {
	name     string
	priority int
	match    func(viewer *models.Profile, evt models.VisitorEvent) (classification, bool)
}

const (
	priorityRole     = 10
	prioritySecurity = 100
)

// The role rules are disjoint by viewer role, so at most one of them matches.
var rules = []rule{
	{name: "host", priority: priorityRole, match: hostRule},
	{name: "reception", priority: priorityRole, match: receptionRule},
	{name: "admin", priority: priorityRole, match: adminRule},
	{name: "security", priority: prioritySecurity, match: securityRule},
}

// Classify turns a visitor change into a notification for viewer, or reports
// false when the viewer should not hear about it.
func Classify(viewer *models.Profile, evt models.VisitorEvent, now time.Time) (Notification, bool) {
	if viewer == nil {
		return Notification{}, false
	}

	var (
		best  classification
		bestP = -1
	)
	for _, r := range rules {
		c, ok := r.match(viewer, evt)
		if !ok || r.priority <= bestP {
			continue
		}
		best, bestP = c, r.priority
	}
	if bestP < 0 || best.Title == "" {
		return Notification{}, false
	}

	return Notification{
		ID:        ids.NewAt(now),
		Type:      best.Type,
		Title:     best.Title,
		Message:   best.Message,
		CreatedAt: now,
		GuestCode: evt.New.GuestCode,
		VisitorID: evt.New.ID,
	}, true
}

func roleOf(p *models.Profile) models.Role {
	return models.ParseRole(string(p.Role))
}

func hostRule(viewer *models.Profile, evt models.VisitorEvent) (classification, bool) {
	v := evt.New
	if roleOf(viewer) != models.RoleHost || v.HostID == "" || v.HostID != viewer.ID {
		return classification{}, false
	}

	switch evt.Type {
	case models.ChangeInsert:
		if v.GuestCode == "" {
			return classification{TypeWalkIn, "Walk-in Visitor", fmt.Sprintf("%s%s is at reception to see you", v.Name, from(v))}, true
		}
		return classification{TypePreRegistered, "Visitor Registered", fmt.Sprintf("%s%s is registered to visit you (code %s)", v.Name, from(v), v.GuestCode)}, true
	case models.ChangeUpdate:
		if v.Status == models.VisitorStatusCheckedIn {
			return classification{TypeArrival, "Your Visitor Has Arrived", fmt.Sprintf("%s%s has checked in", v.Name, from(v))}, true
		}
	}
	return classification{}, false
}

func receptionRule(viewer *models.Profile, evt models.VisitorEvent) (classification, bool) {
	v := evt.New
	if roleOf(viewer) != models.RoleReception {
		return classification{}, false
	}
	if len(viewer.Floors) > 0 && !viewer.Floors.Contains(v.FloorNumber) {
		return classification{}, false
	}

	switch evt.Type {
	case models.ChangeInsert:
		if v.GuestCode == "" {
			return classification{TypeWalkIn, "New Walk-in", fmt.Sprintf("%s%s checked in on floor %d", v.Name, from(v), v.FloorNumber)}, true
		}
		return classification{TypePreRegistered, "Expected Visitor Registered", fmt.Sprintf("%s%s is expected on floor %d (code %s)", v.Name, from(v), v.FloorNumber, v.GuestCode)}, true
	case models.ChangeUpdate:
		if v.Status == models.VisitorStatusCheckedIn && v.GuestCode != "" {
			return classification{TypeArrival, "Pre-registered Guest Arrived", fmt.Sprintf("%s (code %s) checked in on floor %d", v.Name, v.GuestCode, v.FloorNumber)}, true
		}
	}
	return classification{}, false
}

func adminRule(viewer *models.Profile, evt models.VisitorEvent) (classification, bool) {
	v := evt.New
	if roleOf(viewer) != models.RoleAdmin || evt.Type != models.ChangeInsert {
		return classification{}, false
	}
	if v.GuestCode == "" {
		return classification{TypeWalkIn, "New Walk-in Visitor", fmt.Sprintf("%s%s checked in on floor %d", v.Name, from(v), v.FloorNumber)}, true
	}
	return classification{TypePreRegistered, "New Pre-registered Visitor", fmt.Sprintf("%s%s registered for floor %d", v.Name, from(v), v.FloorNumber)}, true
}

func securityRule(viewer *models.Profile, evt models.VisitorEvent) (classification, bool) {
	role := roleOf(viewer)
	if role != models.RoleSecurity && role != models.RoleAdmin {
		return classification{}, false
	}
	if !evt.New.IsBlacklisted {
		return classification{}, false
	}
	v := evt.New
	return classification{TypeSecurity, "Security Alert: Blacklisted Visitor", fmt.Sprintf("Blacklisted visitor %s%s recorded on floor %d", v.Name, from(v), v.FloorNumber)}, true
}

func from(v models.VisitorSnapshot) string {
	if v.Company == "" {
		return ""
	}
	return " from " + v.Company
}
