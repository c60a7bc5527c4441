package wordlist

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/wordbot/pkg/models"
)

var (
	// ErrNotFound is returned for keys missing from the index
	ErrNotFound = errors.New("wordlist not found")
	// ErrForbidden is returned when a requester does not own a collection
	ErrForbidden = errors.New("wordlist not owned by requester")
	// ErrEmptyWordlist is returned when content yields no words
	ErrEmptyWordlist = errors.New("wordlist contains no words")
	// ErrLoadFailed is returned when a file could not be read; the fallback set is active
	ErrLoadFailed = errors.New("wordlist load failed")
)

// Store indexes the system and user wordlists on disk.
// Mutations and scans are serialized; reads may run concurrently with them.
type Store struct {
	systemDir  string
	userDir    string
	defaultKey string
	logger     *zap.Logger
	now        func() time.Time

	writeMu sync.Mutex

	mu         sync.RWMutex
	index      map[string]*models.Wordlist
	sets       map[string][]string
	version    uint64 // bumped whenever cached sets may be stale
	currentKey string
	current    []string
}

// NewStore creates a store; call Scan before use
func NewStore(systemDir, userDir, defaultKey string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		systemDir:  systemDir,
		userDir:    userDir,
		defaultKey: defaultKey,
		logger:     logger,
		now:        time.Now,
		index:      make(map[string]*models.Wordlist),
		sets:       make(map[string][]string),
		current:    fallbackWords,
	}
}

// Scan rebuilds the index from disk and recomputes word counts
func (s *Store) Scan() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.scanLocked()
}

func (s *Store) scanLocked() error {
	if err := os.MkdirAll(s.userDir, 0755); err != nil {
		return fmt.Errorf("failed to create user wordlist directory: %v", err)
	}

	index := make(map[string]*models.Wordlist)

	systemFiles, err := filepath.Glob(filepath.Join(s.systemDir, "*.txt"))
	if err != nil {
		return fmt.Errorf("failed to scan system wordlists: %v", err)
	}
	for _, path := range systemFiles {
		fileName := filepath.Base(path)
		key, display := systemEntry(fileName)
		index[key] = &models.Wordlist{
			Key:         key,
			Path:        path,
			FileName:    fileName,
			DisplayName: display,
			Type:        models.WordlistSystem,
			WordCount:   s.countWords(path),
		}
	}

	userFiles, err := filepath.Glob(filepath.Join(s.userDir, "*.txt"))
	if err != nil {
		return fmt.Errorf("failed to scan user wordlists: %v", err)
	}
	for _, path := range userFiles {
		fileName := filepath.Base(path)
		owner, display := userEntry(fileName)
		key := UserKey(fileName)
		index[key] = &models.Wordlist{
			Key:         key,
			Path:        path,
			FileName:    fileName,
			DisplayName: display,
			Type:        models.WordlistUser,
			OwnerID:     owner,
			WordCount:   s.countWords(path),
		}
	}

	s.mu.Lock()
	s.index = index
	s.version++
	for key := range s.sets {
		if _, ok := index[key]; !ok {
			delete(s.sets, key)
		}
	}
	currentKey := s.currentKey
	_, currentKept := index[currentKey]
	s.mu.Unlock()

	s.logger.Debug("wordlists scanned", zap.Int("count", len(index)))

	if currentKey != "" && !currentKept {
		s.loadDefault()
	}
	return nil
}

func (s *Store) countWords(path string) int {
	words, err := ParseFile(path)
	if err != nil {
		s.logger.Warn("failed to read wordlist", zap.String("path", path), zap.Error(err))
		return 0
	}
	return len(words)
}

// Load parses the wordlist into memory and makes it the active collection.
// On a read failure the built-in fallback words become active and ErrLoadFailed is returned.
func (s *Store) Load(key string) error {
	s.mu.RLock()
	entry, ok := s.index[key]
	version := s.version
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	words, err := ParseFile(entry.Path)
	if err != nil {
		s.mu.Lock()
		s.currentKey = ""
		s.current = fallbackWords
		s.mu.Unlock()
		s.logger.Error("failed to load wordlist", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	if len(words) == 0 {
		words = fallbackWords
	}

	s.mu.Lock()
	s.cacheLocked(key, words, version)
	s.currentKey = key
	s.current = words
	s.mu.Unlock()

	s.logger.Info("wordlist loaded", zap.String("key", key), zap.Int("words", len(words)))
	return nil
}

// loadDefault activates the default key, or the first key in the index when it is missing
func (s *Store) loadDefault() {
	key := s.defaultKey
	s.mu.RLock()
	if _, ok := s.index[key]; !ok {
		keys := make([]string, 0, len(s.index))
		for k := range s.index {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		key = ""
		if len(keys) > 0 {
			key = keys[0]
		}
	}
	s.mu.RUnlock()

	if key == "" {
		s.mu.Lock()
		s.currentKey = ""
		s.current = fallbackWords
		s.mu.Unlock()
		return
	}
	if err := s.Load(key); err != nil {
		s.logger.Warn("failed to load default wordlist", zap.String("key", key), zap.Error(err))
	}
}

// LoadDefault activates the default collection
func (s *Store) LoadDefault() {
	s.loadDefault()
}

// CurrentKey returns the key of the active collection, empty when the fallback is active
func (s *Store) CurrentKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentKey
}

// Words returns a copy of the active collection
func (s *Store) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.current...)
}

// RandomWord returns a random word of the active collection
func (s *Store) RandomWord() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return randomOf(s.current)
}

// Pick returns a random word from key's collection without changing the active one.
// Unknown or unreadable keys fall back to the default collection, then to the built-in words.
func (s *Store) Pick(key string) string {
	if words := s.wordsFor(key); len(words) > 0 {
		return randomOf(words)
	}
	if key != s.defaultKey {
		if words := s.wordsFor(s.defaultKey); len(words) > 0 {
			return randomOf(words)
		}
	}
	return randomOf(fallbackWords)
}

func (s *Store) wordsFor(key string) []string {
	s.mu.RLock()
	words, cached := s.sets[key]
	entry, indexed := s.index[key]
	version := s.version
	s.mu.RUnlock()
	if cached {
		return words
	}
	if !indexed {
		return nil
	}

	words, err := ParseFile(entry.Path)
	if err != nil {
		s.logger.Warn("failed to read wordlist", zap.String("key", key), zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.cacheLocked(key, words, version)
	s.mu.Unlock()
	return words
}

// cacheLocked keeps words parsed at version; a rewrite or scan since then means they may be
// the old content, so they are not cached. The caller holds mu.
func (s *Store) cacheLocked(key string, words []string, version uint64) bool {
	if s.version != version {
		return false
	}
	if _, ok := s.index[key]; !ok {
		return false
	}
	s.sets[key] = words
	return true
}

func randomOf(words []string) string {
	if len(words) == 0 {
		return fallbackWord
	}
	return words[rand.Intn(len(words))]
}

// Get returns a copy of the index entry for key
func (s *Store) Get(key string) (*models.Wordlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	copied := *entry
	return &copied, nil
}

// List returns every indexed wordlist, system collections first, then by display name
func (s *Store) List() []models.Wordlist {
	return s.filter(func(*models.Wordlist) bool { return true })
}

// ListOwned returns the user collections owned by ownerID
func (s *Store) ListOwned(ownerID int64) []models.Wordlist {
	return s.filter(func(w *models.Wordlist) bool { return w.OwnedBy(ownerID) })
}

// PersonalWordlist returns the owner's queried-words collection, nil if absent
func (s *Store) PersonalWordlist(ownerID int64) *models.Wordlist {
	entry, err := s.Get(UserKey(personalFileName(ownerID)))
	if err != nil {
		return nil
	}
	return entry
}

func (s *Store) filter(keep func(*models.Wordlist) bool) []models.Wordlist {
	s.mu.RLock()
	result := make([]models.Wordlist, 0, len(s.index))
	for _, entry := range s.index {
		if keep(entry) {
			result = append(result, *entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type == models.WordlistSystem
		}
		if result[i].DisplayName != result[j].DisplayName {
			return result[i].DisplayName < result[j].DisplayName
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// Save stores an uploaded collection for ownerID and returns its index entry
func (s *Store) Save(ownerID int64, filename, content string) (*models.Wordlist, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	safe := SanitizeFilename(filename)
	stamp := s.now().Format(timestampLayout)
	fileName, err := s.freeName(userFileName(ownerID, stamp, safe))
	if err != nil {
		return nil, err
	}

	entry, err := s.writeCollection(fileName, content)
	if err != nil {
		return nil, err
	}
	entry.DisplayName = DisplayName(filename)

	s.logger.Info("wordlist saved",
		zap.Int64("owner", ownerID),
		zap.String("file", fileName),
		zap.Int("words", entry.WordCount),
	)
	return entry, nil
}

// BuildPersonalWordlist writes the owner's queried words into a collection with a fixed key.
// Repeated calls replace the previous collection.
func (s *Store) BuildPersonalWordlist(ownerID int64, words []string) (*models.Wordlist, error) {
	unique := Parse(strings.Join(words, ","))
	if len(unique) == 0 {
		return nil, ErrEmptyWordlist
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fileName := personalFileName(ownerID)
	entry, err := s.writeCollection(fileName, strings.Join(unique, ", "))
	if err != nil {
		return nil, err
	}

	s.logger.Info("personal wordlist built", zap.Int64("owner", ownerID), zap.Int("words", entry.WordCount))
	return entry, nil
}

// freeName returns fileName or a suffixed variant that does not exist yet
func (s *Store) freeName(fileName string) (string, error) {
	base := strings.TrimSuffix(fileName, ".txt")
	candidate := fileName
	for i := 2; i < 100; i++ {
		_, err := os.Lstat(filepath.Join(s.userDir, candidate))
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check wordlist file: %v", err)
		}
		candidate = fmt.Sprintf("%s_%d.txt", base, i)
	}
	return "", fmt.Errorf("no free file name for %s", fileName)
}

// writeCollection writes through a temporary file, verifies the result and rescans.
// Callers hold writeMu.
func (s *Store) writeCollection(fileName, content string) (*models.Wordlist, error) {
	if err := os.MkdirAll(s.userDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user wordlist directory: %v", err)
	}

	path := filepath.Join(s.userDir, fileName)
	if err := writeFileAtomic(s.userDir, path, content); err != nil {
		return nil, err
	}

	words, err := ParseFile(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to verify wordlist: %v", err)
	}
	if len(words) == 0 {
		if err := os.Remove(path); err != nil {
			s.logger.Error("failed to remove empty wordlist", zap.String("path", path), zap.Error(err))
		}
		return nil, ErrEmptyWordlist
	}

	if err := s.scanLocked(); err != nil {
		return nil, err
	}

	key := UserKey(fileName)
	s.mu.Lock()
	indexed, ok := s.index[key]
	delete(s.sets, key)
	s.version++
	active := s.currentKey == key
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	entry := *indexed

	if active {
		if err := s.Load(key); err != nil {
			s.logger.Warn("failed to reload active wordlist", zap.String("key", key), zap.Error(err))
		}
	}
	return &entry, nil
}

func writeFileAtomic(dir, path, content string) error {
	tmp, err := os.CreateTemp(dir, ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write wordlist: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync wordlist: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close wordlist: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move wordlist into place: %v", err)
	}
	return nil
}

// Delete removes a user collection owned by requesterID
func (s *Store) Delete(key string, requesterID int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	entry, ok := s.index[key]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if !entry.OwnedBy(requesterID) || !strings.HasPrefix(entry.FileName, fmt.Sprintf("%d_", requesterID)) {
		s.logger.Warn("refused wordlist deletion",
			zap.String("key", key),
			zap.Int64("requester", requesterID),
		)
		return fmt.Errorf("%w: %s", ErrForbidden, key)
	}

	if err := os.Remove(entry.Path); err != nil {
		return fmt.Errorf("failed to delete wordlist: %v", err)
	}

	// scanLocked reloads the default when the active collection disappears
	if err := s.scanLocked(); err != nil {
		return err
	}

	s.logger.Info("wordlist deleted", zap.String("key", key), zap.Int64("owner", requesterID))
	return nil
}
