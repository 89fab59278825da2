// Package inmemdb provides mutex-guarded in-memory repositories, used as
// database stand-ins in tests.
package inmemdb

import (
	"sync"

	"github.com/scanlab/scanlab/core/media"
	"github.com/scanlab/scanlab/core/notification"
	"github.com/scanlab/scanlab/core/simulation"
	"github.com/scanlab/scanlab/core/user"
)

type DB struct {
	user         *userTable
	record       *recordTable
	notification *notificationTable
	media        *mediaTable
}

func NewDB() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		record:       &recordTable{},
		notification: &notificationTable{},
		media:        &mediaTable{},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

// recordTable keeps insertion order so listings are stable.
type recordTable struct {
	mutex sync.RWMutex
	table []*simulation.Record
}

type notificationTable struct {
	mutex sync.RWMutex
	table []*notification.Notification
}

type mediaTable struct {
	mutex sync.RWMutex
	table []*media.Media
}
