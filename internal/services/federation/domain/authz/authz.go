// Package authz holds the ownership checks shared by event-scoped
// operations.
package authz

import (
	"github.com/mvoicu/dansport/internal/identity"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// CanManageEvent reports whether the actor may edit or delete an event.
func CanManageEvent(actor identity.Actor, event storage.Event) bool {
	return actor.ID == event.CreatorID || actor.Role == identity.RoleAdmin
}

// OwnedPairIDs filters pairs down to the ids owned by clubID, preserving
// input order.
func OwnedPairIDs(pairs []storage.Pair, clubID string) []string {
	var owned []string
	for _, pair := range pairs {
		if pair.ClubID == clubID {
			owned = append(owned, pair.ID)
		}
	}
	return owned
}

// ClubOwnsAttendingPair reports whether clubID owns at least one pair on
// the event roster.
func ClubOwnsAttendingPair(rosters storage.Rosters, clubID string) bool {
	for _, pair := range rosters.Pairs {
		if pair.ClubID == clubID {
			return true
		}
	}
	return false
}

// AttendingPair returns the roster pair with the given id, if present.
func AttendingPair(rosters storage.Rosters, pairID string) (storage.Pair, bool) {
	for _, pair := range rosters.Pairs {
		if pair.ID == pairID {
			return pair, true
		}
	}
	return storage.Pair{}, false
}

// JudgeAttending reports whether judgeID is on the event judge roster.
func JudgeAttending(rosters storage.Rosters, judgeID string) bool {
	for _, id := range rosters.JudgeIDs {
		if id == judgeID {
			return true
		}
	}
	return false
}
