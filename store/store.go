// Package store owns the on-disk representation of sections and the
// panel registry. Every document is read and written whole; callers
// that mutate must go through UpdateSection/UpdateRegistry, which hold
// a per-document lock for the full read-modify-write so two concurrent
// handlers cannot clobber each other's writes.
package store

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

// ErrNotFound is returned by update operations targeting a document
// that does not exist. Plain loads report absence as (nil, nil): a
// missing document is a valid empty state, not an error.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the rest of the bot consumes.
type Store interface {
	ListSectionIDs() ([]string, error)
	// LoadSection returns (nil, nil) when the section does not exist.
	LoadSection(id string) (*datastructs.Section, error)
	SaveSection(sec *datastructs.Section) error
	// UpdateSection loads the section, applies fn and saves the result,
	// all under the section's lock. An error from fn aborts the write.
	UpdateSection(id string, fn func(*datastructs.Section) error) (*datastructs.Section, error)
	// DeleteSection removes the document and strips the id from every
	// panel registration so no panel advertises a dangling section.
	DeleteSection(id string) error
	LoadRegistry() (*datastructs.Registry, error)
	SaveRegistry(reg *datastructs.Registry) error
	UpdateRegistry(fn func(*datastructs.Registry) error) (*datastructs.Registry, error)
}

// keyLocks hands out one mutex per document key.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// registryLockKey shares the lock table with section ids; section ids
// are sanitized by the wizard and cannot collide with it.
const registryLockKey = "\x00registry"

// legacyRegistry is the historical registry shape that kept one array
// per panel kind. It is migrated to the keyed document on load and
// disappears on the next save.
type legacyRegistry struct {
	Apply       []legacyPanel `json:"apply"`
	Ahelp       []legacyPanel `json:"ahelp"`
	MainMessage string        `json:"mainMessage"`
}

type legacyPanel struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Meta      struct {
		Enabled []string `json:"enabled"`
	} `json:"meta"`
}

// decodeRegistry parses a registry document, accepting the legacy
// keyed-by-kind layout as well as the current one.
func decodeRegistry(data []byte) (*datastructs.Registry, error) {
	var reg datastructs.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if reg.Panels != nil {
		return &reg, nil
	}

	var legacy legacyRegistry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	if legacy.Apply == nil && legacy.Ahelp == nil {
		if reg.MainMessage == "" {
			reg.MainMessage = legacy.MainMessage
		}
		return &reg, nil
	}
	migrated := &datastructs.Registry{MainMessage: legacy.MainMessage}
	if migrated.MainMessage == "" {
		migrated.MainMessage = reg.MainMessage
	}
	for _, p := range legacy.Apply {
		migrated.Panels = append(migrated.Panels, datastructs.Panel{
			Kind:      datastructs.PanelApply,
			ChannelID: p.ChannelID,
			MessageID: p.MessageID,
			Sections:  p.Meta.Enabled,
		})
	}
	for _, p := range legacy.Ahelp {
		migrated.Panels = append(migrated.Panels, datastructs.Panel{
			Kind:      datastructs.PanelAdmin,
			ChannelID: p.ChannelID,
			MessageID: p.MessageID,
		})
	}
	return migrated, nil
}

// stripSection removes a section id from every panel registration.
func stripSection(reg *datastructs.Registry, id string) {
	for i := range reg.Panels {
		kept := reg.Panels[i].Sections[:0]
		for _, s := range reg.Panels[i].Sections {
			if s != id {
				kept = append(kept, s)
			}
		}
		reg.Panels[i].Sections = kept
	}
}
