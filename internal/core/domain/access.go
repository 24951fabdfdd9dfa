package domain

import "sort"

// AccessControl holds the fixed set of owners configured at startup and the
// mutable set of admins. Owners are never stored in the admin set and are
// always privileged.
type AccessControl struct {
	owners map[int64]struct{}
	admins map[int64]struct{}
}

// NewAccessControl returns an AccessControl for the given owners and
// initial admins. Owner ids found among admins are discarded.
func NewAccessControl(owners, admins []int64) *AccessControl {
	ac := &AccessControl{
		owners: make(map[int64]struct{}, len(owners)),
		admins: make(map[int64]struct{}, len(admins)),
	}
	for _, id := range owners {
		ac.owners[id] = struct{}{}
	}
	for _, id := range admins {
		if !ac.IsOwner(id) {
			ac.admins[id] = struct{}{}
		}
	}
	return ac
}

func (ac *AccessControl) IsOwner(id int64) bool {
	_, ok := ac.owners[id]
	return ok
}

func (ac *AccessControl) IsAdmin(id int64) bool {
	if ac.IsOwner(id) {
		return true
	}
	_, ok := ac.admins[id]
	return ok
}

// AddAdmin adds target to the admin set. Only owners are allowed to. The
// returned bool is false if nothing changed (target already privileged).
func (ac *AccessControl) AddAdmin(requester, target int64) (bool, error) {
	if !ac.IsOwner(requester) {
		return false, ErrPermissionDenied
	}
	if ac.IsAdmin(target) {
		return false, nil
	}
	ac.admins[target] = struct{}{}
	return true, nil
}

// RemoveAdmin removes target from the admin set. Only owners are allowed to.
// Removing a non-admin is a no-op success reported by a false bool.
func (ac *AccessControl) RemoveAdmin(requester, target int64) (bool, error) {
	if !ac.IsOwner(requester) {
		return false, ErrPermissionDenied
	}
	if _, ok := ac.admins[target]; !ok {
		return false, nil
	}
	delete(ac.admins, target)
	return true, nil
}

// ClearAdmins empties the admin set. Owners remain privileged.
func (ac *AccessControl) ClearAdmins(requester int64) error {
	if !ac.IsOwner(requester) {
		return ErrPermissionDenied
	}
	ac.admins = make(map[int64]struct{})
	return nil
}

// Admins returns the sorted list of admins, owners excluded.
func (ac *AccessControl) Admins() []int64 {
	return sortedIDs(ac.admins)
}

// Owners returns the sorted list of owners.
func (ac *AccessControl) Owners() []int64 {
	return sortedIDs(ac.owners)
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
