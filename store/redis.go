package store

import (
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

const (
	sectionsKey = "sections"
	registryKey = "panels"
)

// Redis keeps every section as a JSON document in one hash field and
// the registry as a JSON document under its own key.
type Redis struct {
	client *redis.Client
	locks  keyLocks
}

// NewRedis connects and pings the server.
func NewRedis(addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if _, err := client.Ping().Result(); err != nil {
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) ListSectionIDs() ([]string, error) {
	ids, err := r.client.HKeys(sectionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list sections: %w", err)
	}
	return ids, nil
}

func (r *Redis) LoadSection(id string) (*datastructs.Section, error) {
	raw, err := r.client.HGet(sectionsKey, id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load section %s: %w", id, err)
	}
	var sec datastructs.Section
	if err := json.Unmarshal([]byte(raw), &sec); err != nil {
		return nil, fmt.Errorf("store: decode section %s: %w", id, err)
	}
	return &sec, nil
}

func (r *Redis) SaveSection(sec *datastructs.Section) error {
	raw, err := json.Marshal(sec)
	if err != nil {
		return fmt.Errorf("store: encode section %s: %w", sec.ID, err)
	}
	if err := r.client.HSet(sectionsKey, sec.ID, raw).Err(); err != nil {
		return fmt.Errorf("store: save section %s: %w", sec.ID, err)
	}
	return nil
}

func (r *Redis) UpdateSection(id string, fn func(*datastructs.Section) error) (*datastructs.Section, error) {
	lock := r.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	sec, err := r.LoadSection(id)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("store: update section %s: %w", id, ErrNotFound)
	}
	if err := fn(sec); err != nil {
		return nil, err
	}
	if err := r.SaveSection(sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (r *Redis) DeleteSection(id string) error {
	lock := r.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	if err := r.client.HDel(sectionsKey, id).Err(); err != nil {
		return fmt.Errorf("store: delete section %s: %w", id, err)
	}
	_, err := r.UpdateRegistry(func(reg *datastructs.Registry) error {
		stripSection(reg, id)
		return nil
	})
	return err
}

func (r *Redis) LoadRegistry() (*datastructs.Registry, error) {
	raw, err := r.client.Get(registryKey).Result()
	if err == redis.Nil {
		return &datastructs.Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load registry: %w", err)
	}
	reg, err := decodeRegistry([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("store: decode registry: %w", err)
	}
	return reg, nil
}

func (r *Redis) SaveRegistry(reg *datastructs.Registry) error {
	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("store: encode registry: %w", err)
	}
	if err := r.client.Set(registryKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("store: save registry: %w", err)
	}
	return nil
}

func (r *Redis) UpdateRegistry(fn func(*datastructs.Registry) error) (*datastructs.Registry, error) {
	lock := r.locks.get(registryLockKey)
	lock.Lock()
	defer lock.Unlock()

	reg, err := r.LoadRegistry()
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	if err := r.SaveRegistry(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
