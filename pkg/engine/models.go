package engine

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/chipforge/pkg/cache"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/place"
)

// maxModelName bounds the length of a model name.
const maxModelName = 64

// ModelInfo describes one stored model.
type ModelInfo struct {
	Name      string    `json:"name"`
	Algorithm string    `json:"algorithm"`
	SlotGrid  int       `json:"slot_grid"`
	Steps     int       `json:"steps"`
	Episodes  int       `json:"episodes"`
	SavedAt   time.Time `json:"saved_at"`
}

// ModelStore keeps the slot tables trained by the learning placement
// strategies in a cache backend, one entry per model name plus an index
// entry listing them. Models never expire.
//
// The index is updated under a process-local lock; two processes saving to
// one shared backend at the same moment can lose an index line, not a model.
type ModelStore struct {
	cache cache.Cache
	keyer cache.Keyer
	mu    sync.Mutex
	now   func() time.Time
}

// NewModelStore creates a store on c. A nil keyer means the default keyer.
func NewModelStore(c cache.Cache, keyer cache.Keyer) *ModelStore {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &ModelStore{cache: c, keyer: keyer, now: time.Now}
}

// ValidateModelName accepts 1-64 letters, digits, '.', '_' and '-'.
func ValidateModelName(name string) error {
	if name == "" || len(name) > maxModelName {
		return errs.Parameter("model", "name must be 1-%d characters, got %d", maxModelName, len(name))
	}
	if i := strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-')
	}); i >= 0 {
		return errs.Parameter("model", "name %q holds an invalid character at %d", name, i)
	}
	return nil
}

// Save stores m under name, replacing any earlier model of that name.
func (s *ModelStore) Save(ctx context.Context, name string, m *place.Model) error {
	if err := ValidateModelName(name); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode model %s", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Set(ctx, s.keyer.ModelKey(name), data, cache.TTLModel); err != nil {
		return err
	}
	index, err := s.index(ctx)
	if err != nil {
		return err
	}
	index = slices.DeleteFunc(index, func(i ModelInfo) bool { return i.Name == name })
	index = append(index, ModelInfo{
		Name:      name,
		Algorithm: string(m.Algorithm),
		SlotGrid:  m.SlotGrid,
		Steps:     len(m.Table),
		Episodes:  m.Episodes,
		SavedAt:   s.now().UTC(),
	})
	return s.writeIndex(ctx, index)
}

// Load returns the model stored under name.
func (s *ModelStore) Load(ctx context.Context, name string) (*place.Model, error) {
	if err := ValidateModelName(name); err != nil {
		return nil, err
	}
	data, ok, err := s.cache.Get(ctx, s.keyer.ModelKey(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "no trained model named %q", name)
	}
	var m place.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "decode model %s", name)
	}
	return &m, nil
}

// List returns the stored models sorted by name.
func (s *ModelStore) List(ctx context.Context) ([]ModelInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(index, func(a, b ModelInfo) int { return strings.Compare(a.Name, b.Name) })
	return index, nil
}

// Delete removes the model stored under name.
func (s *ModelStore) Delete(ctx context.Context, name string) error {
	if err := ValidateModelName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.index(ctx)
	if err != nil {
		return err
	}
	n := len(index)
	index = slices.DeleteFunc(index, func(i ModelInfo) bool { return i.Name == name })
	if len(index) == n {
		return errs.New(errs.ErrCodeNotFound, "no trained model named %q", name)
	}
	if err := s.cache.Delete(ctx, s.keyer.ModelKey(name)); err != nil {
		return err
	}
	return s.writeIndex(ctx, index)
}

func (s *ModelStore) index(ctx context.Context) ([]ModelInfo, error) {
	data, ok, err := s.cache.Get(ctx, s.keyer.ModelIndexKey())
	if err != nil || !ok {
		return nil, err
	}
	var index []ModelInfo
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "decode model index")
	}
	return index, nil
}

func (s *ModelStore) writeIndex(ctx context.Context, index []ModelInfo) error {
	data, err := json.Marshal(index)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode model index")
	}
	return s.cache.Set(ctx, s.keyer.ModelIndexKey(), data, cache.TTLModel)
}
