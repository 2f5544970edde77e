package duck

import "sync"

// databaseLocks serializes access to a database file across every client in the process.
var databaseLocks sync.Map

func LockDatabase(path string) {
	lock, _ := databaseLocks.LoadOrStore(path, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
}

func UnlockDatabase(path string) {
	if lock, ok := databaseLocks.Load(path); ok {
		lock.(*sync.Mutex).Unlock()
	}
}
