package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/models"
	"github.com/wisehuang/geodine-ai/registry"
	"github.com/wisehuang/geodine-ai/tools"
)

// ErrAlreadyRunning is returned when a run for the same bot has not
// finished yet. Callers can map it to a conflict response.
var ErrAlreadyRunning = errors.New("broadcast already running")

// Result is the accounting of one broadcast run. A subscriber counts as
// successful once the baseline text was delivered; a failed outfit
// image alone degrades the experience but does not fail the recipient.
type Result struct {
	BotID      string    `json:"bot_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
	Status     string    `json:"status"` // success | partial_success | failed
}

// BroadcastService pushes the daily weather + outfit message to every
// subscriber of a bot. Function fields wrap the outbound calls so tests
// can stub them.
type BroadcastService struct {
	Registry *registry.Registry
	DB       *gorm.DB
	Images   *tools.ImageGenerator
	Delay    time.Duration

	Weather         func(ctx context.Context, lat, lon float64) (*tools.TodayWeather, error)
	ListSubscribers func(database *gorm.DB, botID string) ([]db.Subscriber, error)
	Sleep           func(d time.Duration)

	mu       sync.Mutex
	running  map[string]bool
	lastRuns map[string]*Result
}

func NewBroadcastService(reg *registry.Registry, database *gorm.DB, images *tools.ImageGenerator, delay time.Duration) *BroadcastService {
	return &BroadcastService{
		Registry:        reg,
		DB:              database,
		Images:          images,
		Delay:           delay,
		Weather:         tools.GetTodayWeather,
		ListSubscribers: db.ListSubscribers,
		Sleep:           time.Sleep,
		running:         make(map[string]bool),
		lastRuns:        make(map[string]*Result),
	}
}

// Run broadcasts to every subscriber of botID. Per-subscriber failures
// are recorded and the run keeps going; only an unknown bot or a
// concurrent run for the same bot abort it.
func (s *BroadcastService) Run(ctx context.Context, botID string) (*Result, error) {
	return s.RunWithDelay(ctx, botID, s.Delay)
}

// RunWithDelay is Run with a per-call delay between subscribers, used
// by the API when the caller overrides the configured pacing.
func (s *BroadcastService) RunWithDelay(ctx context.Context, botID string, delay time.Duration) (*Result, error) {
	handle := s.Registry.Get(botID)
	if handle == nil {
		return nil, fmt.Errorf("unknown bot: %s", botID)
	}
	if handle.Config.BotType != models.BOT_TYPE_WEATHER {
		return nil, fmt.Errorf("bot %s is not a weather bot", botID)
	}

	if !s.tryStart(botID) {
		return nil, fmt.Errorf("%w for bot %s", ErrAlreadyRunning, botID)
	}
	defer s.finish(botID)

	result := &Result{BotID: botID, StartedAt: time.Now()}

	subscribers, err := s.ListSubscribers(s.DB, botID)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	result.Total = len(subscribers)
	log.Printf("broadcast[%s]: starting, %d subscriber(s)", botID, result.Total)

	for i, sub := range subscribers {
		s.sendToSubscriber(ctx, handle, sub, result)
		if i < len(subscribers)-1 && delay > 0 {
			s.Sleep(delay)
		}
	}

	result.FinishedAt = time.Now()
	switch {
	case result.Failed == 0:
		result.Status = "success"
	case result.Successful > 0:
		result.Status = "partial_success"
	default:
		result.Status = "failed"
	}

	s.mu.Lock()
	s.lastRuns[botID] = result
	s.mu.Unlock()

	log.Printf("broadcast[%s]: done, %d ok / %d failed of %d", botID, result.Successful, result.Failed, result.Total)
	return result, nil
}

func (s *BroadcastService) sendToSubscriber(ctx context.Context, handle *registry.Handle, sub db.Subscriber, result *Result) {
	lat, lon := tools.DefaultLatitude, tools.DefaultLongitude
	name := tools.DefaultLocationName
	if sub.Latitude != nil && sub.Longitude != nil {
		lat, lon = *sub.Latitude, *sub.Longitude
		if sub.LocationName != nil && *sub.LocationName != "" {
			name = *sub.LocationName
		} else {
			name = tools.LocationName(lat, lon)
		}
	}

	weather, err := s.Weather(ctx, lat, lon)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: weather fetch failed: %v", sub.LineUserID, err))
		return
	}

	intro := fmt.Sprintf("Good morning! ☀️\n\nWeather for %s\n\n%s", name, tools.FormatWeatherSummary(weather))
	if err := handle.Client.Push(ctx, sub.LineUserID, []tools.Message{tools.TextMessage(intro)}); err != nil {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: intro push failed: %v", sub.LineUserID, err))
		return
	}

	imageURL, err := s.generateImage(ctx, handle, weather)
	if err != nil {
		// texto base entregue: conta como sucesso, registra a degradação
		result.Errors = append(result.Errors, fmt.Sprintf("%s: image generation failed: %v", sub.LineUserID, err))
		apology := tools.TextMessage("The outfit image didn't come out today, sorry! The forecast above still has you covered. 🙏")
		if pushErr := handle.Client.Push(ctx, sub.LineUserID, []tools.Message{apology}); pushErr != nil {
			log.Printf("broadcast[%s]: apology push failed for %s: %v", handle.Config.BotID, sub.LineUserID, pushErr)
		}
		result.Successful++
		return
	}

	outfit := []tools.Message{
		tools.ImageMessage(imageURL),
		tools.TextMessage("Here's your outfit of the day. Have a great one! 👗"),
	}
	if err := handle.Client.Push(ctx, sub.LineUserID, outfit); err != nil {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: image push failed: %v", sub.LineUserID, err))
		return
	}
	result.Successful++
}

func (s *BroadcastService) generateImage(ctx context.Context, handle *registry.Handle, weather *tools.TodayWeather) (string, error) {
	if s.Images == nil {
		return "", fmt.Errorf("image generator not configured")
	}
	return s.Images.GenerateOutfitImage(ctx, weather, handle.Config.ImagePromptTemplate)
}

// SendTest runs the full daily pipeline for a single recipient so the
// message can be checked without touching real subscribers.
func (s *BroadcastService) SendTest(ctx context.Context, botID, lineUserID string) error {
	handle := s.Registry.Get(botID)
	if handle == nil {
		return fmt.Errorf("unknown bot: %s", botID)
	}
	if handle.Config.BotType != models.BOT_TYPE_WEATHER {
		return fmt.Errorf("bot %s is not a weather bot", botID)
	}

	sub := db.Subscriber{LineUserID: lineUserID}
	if s.DB != nil {
		if loc, err := db.GetLocation(s.DB, lineUserID, botID); err == nil && loc != nil {
			sub.Latitude = &loc.Latitude
			sub.Longitude = &loc.Longitude
			if loc.LocationName != "" {
				sub.LocationName = &loc.LocationName
			}
		}
	}

	result := &Result{BotID: botID, Total: 1}
	s.sendToSubscriber(ctx, handle, sub, result)
	if result.Failed > 0 {
		return fmt.Errorf("test broadcast failed: %v", result.Errors)
	}
	return nil
}

// LastRun returns the most recent run for the bot, or nil.
func (s *BroadcastService) LastRun(botID string) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRuns[botID]
}

func (s *BroadcastService) tryStart(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[botID] {
		return false
	}
	s.running[botID] = true
	return true
}

func (s *BroadcastService) finish(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, botID)
}
