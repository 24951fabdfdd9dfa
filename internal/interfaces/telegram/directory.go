package telegraminterface

import (
	"strings"
	"sync"
)

// Directory resolves @handles to the chat ids of the users the bot has seen.
// A user can be reached by DM only after it wrote anything visible to the
// bot.
type Directory struct {
	lock  sync.RWMutex
	users map[string]int64
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]int64)}
}

// Learn records the handle of the given user, if any.
func (d *Directory) Learn(u User) {
	if u.Username == "" || u.ID == 0 {
		return
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	d.users[strings.ToLower(u.Handle())] = u.ID
}

// Lookup returns the chat id for the given @handle. Numeric identifiers are
// returned as they are.
func (d *Directory) Lookup(identifier string) (int64, bool) {
	identifier = strings.TrimSpace(identifier)
	if !strings.HasPrefix(identifier, "@") {
		if id, ok := parseUserID(identifier); ok {
			return id, true
		}
		identifier = "@" + identifier
	}

	d.lock.RLock()
	defer d.lock.RUnlock()

	id, ok := d.users[strings.ToLower(identifier)]
	return id, ok
}

func (d *Directory) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return len(d.users)
}
