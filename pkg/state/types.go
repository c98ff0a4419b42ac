package state

import "path/filepath"

type Paths struct {
	DB    string
	Store string // pebble data
	Blobs string // uploaded files, one folder per user
	State string
	Tmp   string
	Logs  string
	Crash string // recovered panics and crash dumps
}

func PathsFor(dbPath string) Paths {
	statePath := filepath.Join(dbPath, "state")
	return Paths{
		DB: dbPath,

		Store: filepath.Join(dbPath, "store"),
		Blobs: filepath.Join(dbPath, "blobs"),

		State: statePath,
		Tmp:   filepath.Join(statePath, "tmp"),
		Logs:  filepath.Join(statePath, "logs"),
		Crash: filepath.Join(statePath, "crash"),
	}
}
