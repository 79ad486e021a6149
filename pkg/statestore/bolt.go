package statestore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/fluxion/pkg/fluxconfig"
	"github.com/cuemby/fluxion/pkg/log"
)

// record is the on-disk envelope for a single key: the caller's raw
// string value plus an optional absolute expiry.
type record struct {
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r record) expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// BoltStore is the bbolt-backed Store. Every component gets its own
// bucket, created on first use, so unrelated transform instances never
// see each other's keys even though they share one file.
type BoltStore struct {
	db *bolt.DB

	mu          sync.Mutex
	sweepStop   chan struct{}
	sweepDone   chan struct{}
}

// NewBoltStore opens (creating if necessary) a bbolt file under dataDir
// and starts a background sweep goroutine that evicts expired keys every
// sweepInterval. When POD_NAME is set, the file is namespaced per pod
// (fluxion-state-<pod>.db) so replicas sharing a volume never open the
// same file concurrently.
func NewBoltStore(dataDir string, sweepInterval time.Duration) (*BoltStore, error) {
	filename := "fluxion-state.db"
	if pod := fluxconfig.PodName(); pod != "" {
		filename = "fluxion-state-" + pod + ".db"
	}
	path := filepath.Join(dataDir, filename)
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	s := &BoltStore{db: db, sweepStop: make(chan struct{}), sweepDone: make(chan struct{})}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.sweepDone)
	}
	return s, nil
}

func (s *BoltStore) sweepLoop(interval time.Duration) {
	defer close(s.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.sweepStop:
			return
		}
	}
}

func (s *BoltStore) sweepExpired() {
	now := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			var staleKeys [][]byte
			err := b.ForEach(func(k, v []byte) error {
				var rec record
				if err := json.Unmarshal(v, &rec); err != nil {
					return nil
				}
				if rec.expired(now) {
					staleKeys = append(staleKeys, append([]byte(nil), k...))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range staleKeys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		log.WithComponent("statestore").Warn().Err(err).Msg("ttl sweep failed")
	}
}

func (s *BoltStore) bucket(tx *bolt.Tx, component string, create bool) (*bolt.Bucket, error) {
	name := []byte(component)
	if create {
		return tx.CreateBucketIfNotExists(name)
	}
	return tx.Bucket(name), nil
}

func (s *BoltStore) Get(component, key string) (string, bool, error) {
	var rec record
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b, _ := s.bucket(tx, component, false)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode state record %s/%s: %w", component, key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if !found || rec.expired(time.Now()) {
		return "", false, nil
	}
	return rec.Value, true, nil
}

func (s *BoltStore) Set(component, key, value string, ttl time.Duration) error {
	rec := record{Value: value}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode state record %s/%s: %w", component, key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, component, true)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(component, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, _ := s.bucket(tx, component, false)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.sweepStop:
	default:
		close(s.sweepStop)
	}
	<-s.sweepDone
	return s.db.Close()
}
