package models

import "strings"

// User is one roster member with a single home tier. Position is the user's
// place in the canonical roster order and serves as the deterministic
// last-resort tie-break during candidate ranking.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tier     Tier   `json:"tier"`
	Position int    `json:"position"`
}

// Roster holds the three tier member lists in canonical order
type Roster struct {
	names map[Tier][]string
}

// NewRoster creates an empty roster
func NewRoster() *Roster {
	return &Roster{names: make(map[Tier][]string)}
}

// NewRosterFromLists builds a roster from the three tier name lists
func NewRosterFromLists(tier2, tier3, upgrade []string) *Roster {
	r := NewRoster()
	r.SetTier(TierTwo, tier2)
	r.SetTier(TierThree, tier3)
	r.SetTier(TierUpgrade, upgrade)
	return r
}

// SetTier replaces one tier's member list, keeping names in the given order.
// Blank and duplicate names are dropped; a name already homed in another tier
// moves to this one so every user keeps exactly one home tier.
func (r *Roster) SetTier(tier Tier, names []string) {
	seen := make(map[string]bool)
	var list []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		list = append(list, n)
	}
	for _, other := range TierOrder {
		if other == tier {
			continue
		}
		var kept []string
		for _, n := range r.names[other] {
			if !seen[n] {
				kept = append(kept, n)
			}
		}
		r.names[other] = kept
	}
	r.names[tier] = list
}

// All returns every user in canonical roster order (tier2, tier3, upgrade)
func (r *Roster) All() []User {
	var users []User
	for _, tier := range TierOrder {
		for _, n := range r.names[tier] {
			users = append(users, User{ID: n, Name: n, Tier: tier, Position: len(users)})
		}
	}
	return users
}

// Tier returns the users homed in one tier, positioned in roster order
func (r *Roster) Tier(tier Tier) []User {
	var users []User
	for _, u := range r.All() {
		if u.Tier == tier {
			users = append(users, u)
		}
	}
	return users
}

// Names returns a copy of the raw name list for one tier
func (r *Roster) Names(tier Tier) []string {
	return append([]string(nil), r.names[tier]...)
}

// UserByID finds a roster member by identifier
func (r *Roster) UserByID(id string) (User, bool) {
	for _, u := range r.All() {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Len reports the total roster size
func (r *Roster) Len() int {
	n := 0
	for _, tier := range TierOrder {
		n += len(r.names[tier])
	}
	return n
}
