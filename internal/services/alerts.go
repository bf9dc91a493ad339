package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/internal/metrics"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
)

// AlertConfig controls which bets are pushed to phones
type AlertConfig struct {
	Recipients    []string
	MinConfidence float64
	// Repeat suppresses a second alert for the same bet within this window
	Repeat time.Duration
}

// AlertService sends an SMS for every recommended bet above a confidence threshold
type AlertService struct {
	cfg     AlertConfig
	sender  SMSService
	limiter RateLimiter
	monitor *metrics.PerformanceMonitor
	logger  *logrus.Logger
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewAlertService(cfg AlertConfig, sender SMSService, limiter RateLimiter, monitor *metrics.PerformanceMonitor, logger *logrus.Logger) *AlertService {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.8
	}
	if cfg.Repeat <= 0 {
		cfg.Repeat = 6 * time.Hour
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AlertService{
		cfg:     cfg,
		sender:  sender,
		limiter: limiter,
		monitor: monitor,
		logger:  logger,
		now:     time.Now,
		seen:    make(map[string]time.Time),
	}
}

// Subscribe listens for published recommendations and returns the unsubscribe func
func (a *AlertService) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(events.TopicStrategyRecommendations, func(e events.Event) {
		switch rec := e.Payload.(type) {
		case strategy.Recommendation:
			a.Notify(rec)
		case *strategy.Recommendation:
			if rec != nil {
				a.Notify(*rec)
			}
		}
	})
}

// Notify alerts every recipient about qualifying bets and returns the number of messages sent
func (a *AlertService) Notify(rec strategy.Recommendation) int {
	if a.sender == nil || len(a.cfg.Recipients) == 0 {
		return 0
	}

	sent := 0
	for _, bet := range rec.Bets {
		if bet.Confidence < a.cfg.MinConfidence || !a.claim(rec.Profile, bet) {
			continue
		}
		body := FormatAlert(rec.Profile, bet)
		for _, to := range a.cfg.Recipients {
			if a.limiter != nil {
				if err := a.limiter.Allow(to); err != nil {
					a.logger.WithField("component", "alerts").WithError(err).Debug("Alert suppressed")
					continue
				}
			}
			err := a.sender.SendMessage(to, body)
			if a.monitor != nil {
				a.monitor.RecordAlert(err)
			}
			if err != nil {
				a.logger.WithFields(logrus.Fields{
					"component": "alerts",
					"bet_id":    bet.ID,
				}).WithError(err).Warn("Alert delivery failed")
				continue
			}
			sent++
		}
	}
	return sent
}

// claim marks a bet as alerted, returning false when it was alerted recently
func (a *AlertService) claim(profile string, bet strategy.Opportunity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for key, at := range a.seen {
		if now.Sub(at) >= a.cfg.Repeat {
			delete(a.seen, key)
		}
	}
	key := profile + "|" + bet.ID
	if _, ok := a.seen[key]; ok {
		return false
	}
	a.seen[key] = now
	return true
}

// FormatAlert renders a bet as a short SMS body
func FormatAlert(profile string, bet strategy.Opportunity) string {
	subject := bet.Selection
	if bet.PlayerName != "" {
		subject = fmt.Sprintf("%s %s %s %.1f", bet.PlayerName, bet.StatType, bet.Selection, bet.Line)
	}
	return fmt.Sprintf("[%s] %s @ %+d (%s) stake $%.2f, EV %.1f%%, confidence %.0f%%",
		profile, subject, bet.Price, bet.Bookmaker, bet.Stake, bet.ExpectedValue*100, bet.Confidence*100)
}
