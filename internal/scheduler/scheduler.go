package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/wordbot/pkg/models"
)

// ErrDeliveryFailed marks a send the transport rejected; the user's chain is disabled
var ErrDeliveryFailed = errors.New("delivery failed")

const (
	tagPrefix      = "delivery_"
	defaultTimeout = 30 * time.Second
	deliveryHeader = "📝 Time to learn!\n\n"
	translateLabel = "🔤 Translate"
)

// TranslateDataPrefix starts the callback data of the translate action
const TranslateDataPrefix = "tr:"

// SettingsStore persists the per-user delivery settings
type SettingsStore interface {
	GetSettings(ctx context.Context, chatID int64) (*models.UserSettings, error)
	SetAutoSend(ctx context.Context, chatID int64, enabled bool) error
	ListAutoSendEnabled(ctx context.Context) ([]models.UserSettings, error)
}

// History records delivered words
type History interface {
	Append(ctx context.Context, chatID int64, word string, translated bool, translation string) error
}

// WordSource draws a random word from a wordlist key
type WordSource interface {
	Pick(key string) string
}

// Notifier delivers a message to a chat
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string, action *models.Action) error
}

// userState orders start, stop and failure handling for one chat.
// gen identifies the live chain; a firing job only acts for its own generation.
type userState struct {
	mu  sync.Mutex
	gen uint64
}

// Scheduler keeps at most one recurring delivery job per chat
type Scheduler struct {
	cron   *gocron.Scheduler
	cronMu sync.Mutex

	settings SettingsStore
	history  History
	words    WordSource
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration

	usersMu sync.Mutex
	users   map[int64]*userState
}

// New creates a new scheduler instance
func New(settings SettingsStore, history History, words WordSource, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cron := gocron.NewScheduler(time.UTC)
	cron.TagsUnique()

	return &Scheduler{
		cron:     cron,
		settings: settings,
		history:  history,
		words:    words,
		notifier: notifier,
		logger:   logger,
		timeout:  defaultTimeout,
		users:    make(map[int64]*userState),
	}
}

// Start begins running scheduled deliveries in the background
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop terminates all scheduled deliveries
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// StartDelivery enables auto-send for the chat and replaces any pending job with a fresh one
func (s *Scheduler) StartDelivery(ctx context.Context, chatID int64) (*models.UserSettings, error) {
	st := s.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.settings.SetAutoSend(ctx, chatID, true); err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx, chatID)
	if err != nil {
		return nil, err
	}

	s.cancel(chatID)
	st.gen++
	if err := s.schedule(chatID, st.gen, settings.IntervalMin, settings.IntervalMax); err != nil {
		return nil, err
	}

	s.logger.Info("auto-send started",
		zap.Int64("chat_id", chatID),
		zap.Int("interval_min", settings.IntervalMin),
		zap.Int("interval_max", settings.IntervalMax),
	)
	return settings, nil
}

// StopDelivery disables auto-send for the chat and cancels its pending job
func (s *Scheduler) StopDelivery(ctx context.Context, chatID int64) error {
	st := s.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.settings.SetAutoSend(ctx, chatID, false); err != nil {
		return err
	}
	s.cancel(chatID)
	st.gen++

	s.logger.Info("auto-send stopped", zap.Int64("chat_id", chatID))
	return nil
}

// Resume schedules a job for every chat whose persisted settings have auto-send on.
// It returns the number of chains resumed.
func (s *Scheduler) Resume(ctx context.Context) (int, error) {
	enabled, err := s.settings.ListAutoSendEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list auto-send users: %w", err)
	}

	resumed := 0
	for _, settings := range enabled {
		st := s.state(settings.ChatID)
		st.mu.Lock()
		s.cancel(settings.ChatID)
		st.gen++
		err := s.schedule(settings.ChatID, st.gen, settings.IntervalMin, settings.IntervalMax)
		st.mu.Unlock()
		if err != nil {
			s.logger.Error("failed to resume auto-send", zap.Int64("chat_id", settings.ChatID), zap.Error(err))
			continue
		}
		resumed++
	}

	s.logger.Info("auto-send resumed", zap.Int("chats", resumed))
	return resumed, nil
}

// IsScheduled reports whether the chat has a pending delivery job
func (s *Scheduler) IsScheduled(chatID int64) bool {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	jobs, err := s.cron.FindJobsByTag(tag(chatID))
	return err == nil && len(jobs) > 0
}

// ActiveCount returns the number of scheduled delivery jobs
func (s *Scheduler) ActiveCount() int {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	return s.cron.Len()
}

func (s *Scheduler) state(chatID int64) *userState {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	st, ok := s.users[chatID]
	if !ok {
		st = &userState{}
		s.users[chatID] = st
	}
	return st
}

// schedule adds the recurring job; the caller holds the user's lock.
// The interval is drawn from [min, max] seconds before every run.
func (s *Scheduler) schedule(chatID int64, gen uint64, intervalMin, intervalMax int) error {
	if intervalMin < 1 {
		intervalMin = 1
	}
	if intervalMax < intervalMin {
		intervalMax = intervalMin
	}

	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	_, err := s.cron.EveryRandom(intervalMin, intervalMax).Seconds().
		WaitForSchedule().
		SingletonMode().
		Tag(tag(chatID)).
		Do(s.deliver, chatID, gen)
	if err != nil {
		return fmt.Errorf("failed to schedule delivery: %w", err)
	}
	return nil
}

// cancel removes the chat's job if present; the caller holds the user's lock
func (s *Scheduler) cancel(chatID int64) {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if err := s.cron.RemoveByTag(tag(chatID)); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		s.logger.Warn("failed to cancel delivery", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// deliver runs on every tick of a chat's job
func (s *Scheduler) deliver(chatID int64, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	log := s.logger.With(zap.Int64("chat_id", chatID))

	settings, err := s.settings.GetSettings(ctx, chatID)
	if err != nil {
		log.Error("failed to read settings for delivery", zap.Error(err))
		return
	}
	if !settings.AutoSendEnabled {
		log.Debug("auto-send disabled, ending chain")
		s.endChain(chatID, gen, false)
		return
	}

	word := s.words.Pick(settings.SelectedWordlist)
	if err := s.history.Append(ctx, chatID, word, false, ""); err != nil {
		log.Warn("failed to record delivered word", zap.Error(err))
	}

	action := &models.Action{Label: translateLabel, Data: TranslateDataPrefix + word}
	if err := s.notifier.Notify(ctx, chatID, deliveryHeader+word, action); err != nil {
		log.Error("auto-send disabled after failed delivery",
			zap.String("wordlist", settings.SelectedWordlist),
			zap.Error(fmt.Errorf("%w: %v", ErrDeliveryFailed, err)),
		)
		s.endChain(chatID, gen, true)
		return
	}

	log.Debug("word delivered", zap.String("word", word), zap.String("wordlist", settings.SelectedWordlist))
}

// endChain cancels the chain of generation gen if it is still the live one,
// persisting auto-send=false when disable is set
func (s *Scheduler) endChain(chatID int64, gen uint64, disable bool) {
	st := s.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.gen != gen {
		return
	}
	if disable {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.settings.SetAutoSend(ctx, chatID, false); err != nil {
			s.logger.Error("failed to persist auto-send off", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	s.cancel(chatID)
	st.gen++
}

func tag(chatID int64) string {
	return tagPrefix + strconv.FormatInt(chatID, 10)
}
