// Package inmemdb is an in-memory stand-in for the external GraphQL backend.
// It backs local development and tests; identifiers are assigned the same way
// the remote server would, so code above it cannot tell the difference.
// The user directory can optionally be backed by a JSON file so separate
// processes (the API server and the admin CLI) share the same accounts.
package inmemdb

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/volunhub/volunhub/core/event"
	"github.com/volunhub/volunhub/core/user"
)

type (
	DB struct {
		user  *userTable
		event *eventTables
	}

	userTable struct {
		sync.RWMutex
		path  string // empty: memory only
		table map[string]*user.User
	}

	eventTables struct {
		sync.RWMutex
		pkCount       int
		events        map[string]*event.Event
		organizations map[string]*event.Organization
		persons       map[string]*event.Person
		volunteers    map[string]*event.Volunteer
		requests      map[string]*event.Request
	}
)

func Open() (*DB, error) {
	return OpenFile("")
}

// OpenFile opens a DB whose user directory is persisted at path; mutations are
// flushed back to the file. An empty path keeps everything in memory.
func OpenFile(path string) (*DB, error) {
	db := &DB{
		user: &userTable{path: path, table: make(map[string]*user.User)},
		event: &eventTables{
			events:        make(map[string]*event.Event),
			organizations: make(map[string]*event.Organization),
			persons:       make(map[string]*event.Person),
			volunteers:    make(map[string]*event.Volunteer),
			requests:      make(map[string]*event.Request),
		},
	}
	if err := db.user.load(); err != nil {
		return nil, err
	}
	return db, nil
}

// nextID must be called with the write lock held.
func (t *eventTables) nextID() string {
	t.pkCount++
	return strconv.Itoa(t.pkCount)
}

// userRecord is the persisted form of user.User; the password hash is
// excluded from the API type's JSON but must survive on disk.
type userRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLogin    time.Time `json:"last_login"`
}

func (t *userTable) load() error {
	if t.path == "" {
		return nil
	}

	data, err := ioutil.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // first run
		}
		return errors.Wrapf(err, "reading user directory %s", t.path)
	}

	var records []userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrapf(err, "parsing user directory %s", t.path)
	}
	for _, rec := range records {
		t.table[rec.ID] = &user.User{
			ID:           rec.ID,
			Name:         rec.Name,
			Username:     rec.Username,
			Email:        rec.Email,
			Role:         rec.Role,
			IsActive:     rec.IsActive,
			PasswordHash: rec.PasswordHash,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
			LastLogin:    rec.LastLogin,
		}
	}
	return nil
}

// save must be called with the write lock held.
func (t *userTable) save() error {
	if t.path == "" {
		return nil
	}

	records := make([]userRecord, 0, len(t.table))
	for _, usr := range t.table {
		records = append(records, userRecord{
			ID:           usr.ID,
			Name:         usr.Name,
			Username:     usr.Username,
			Email:        usr.Email,
			Role:         usr.Role,
			IsActive:     usr.IsActive,
			PasswordHash: usr.PasswordHash,
			CreatedAt:    usr.CreatedAt,
			UpdatedAt:    usr.UpdatedAt,
			LastLogin:    usr.LastLogin,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding user directory")
	}
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating directory for %s", t.path)
		}
	}
	if err := ioutil.WriteFile(t.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "writing user directory %s", t.path)
	}
	return nil
}
