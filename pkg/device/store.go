package device

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"sync"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
)

// Store holds the working settings and persists them to a file.
// With an empty Path the saved copy is kept in memory only.
type Store struct {
	Path string

	cur   Settings
	saved Settings
	lock  sync.Mutex
}

// NewStore creates a Store with the factory settings.
func NewStore() *Store {
	return &Store{cur: DefaultSettings(), saved: DefaultSettings()}
}

// OpenStore loads settings from path. A missing file yields the factory
// settings, it is created on the first Save.
func OpenStore(path string) (*Store, error) {
	s := NewStore()
	s.Path = path
	if path == "" {
		return s, nil
	}
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		glog.Infof("settings %s not found, using defaults", path)
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.cur); err != nil {
		return nil, err
	}
	s.saved = s.cur
	return s, nil
}

// Get returns a copy of the working settings.
func (s *Store) Get() Settings {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cur
}

// Update modifies the working settings.
func (s *Store) Update(fn func(*Settings)) {
	s.lock.Lock()
	fn(&s.cur)
	s.lock.Unlock()
}

// Saved returns the last persisted settings.
func (s *Store) Saved() Settings {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.saved
}

// Save persists the working settings. A write failure is reported as
// StatusNVMAccessErr.
func (s *Store) Save() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.Path != "" {
		data, err := json.MarshalIndent(&s.cur, "", "  ")
		if err != nil {
			return err
		}
		if err := ioutil.WriteFile(s.Path, data, 0644); err != nil {
			glog.Errorf("settings save error: %v", err)
			return kns.StatusNVMAccessErr
		}
	}
	s.saved = s.cur
	return nil
}
