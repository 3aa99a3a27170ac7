package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"starshop/internal/model"
	"starshop/internal/repository"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SettingsService holds the runtime offer: the configured base with the
// persisted overrides applied on top. Every setter writes the settings
// document first and then swaps the in-memory offer, so the document is the
// single source of truth across processes.
type SettingsService struct {
	repo *repository.SettingsRepository
	base model.Offer
	log  *zap.Logger

	// writeMu spans persisting the document and swapping the offer.
	writeMu sync.Mutex
	mu      sync.RWMutex
	current model.Offer
}

func NewSettingsService(repo *repository.SettingsRepository, base model.Offer, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:    repo,
		base:    base,
		log:     logger.With(zap.String("component", "settings")),
		current: base,
	}
}

// Current returns the offer as of now. Callers must not cache it.
func (s *SettingsService) Current() model.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply reloads the settings document and overlays it on the base offer.
func (s *SettingsService) Apply(ctx context.Context) (model.Offer, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc, err := s.repo.Get(ctx)
	if err != nil {
		return s.Current(), fmt.Errorf("load settings: %w", err)
	}
	return s.swap(doc), nil
}

// SetPrice stores a new price and, when oldPrice is not nil, a new
// crossed-out price.
func (s *SettingsService) SetPrice(ctx context.Context, price int64, oldPrice *int64) (model.Offer, error) {
	if price <= 0 || (oldPrice != nil && *oldPrice <= 0) {
		return s.Current(), ErrInvalidPrice
	}
	return s.update(ctx, func(d *model.SettingsDocument) {
		d.PriceUAH = &price
		if oldPrice != nil {
			old := *oldPrice
			d.OldPriceUAH = &old
		}
	})
}

func (s *SettingsService) SetGuideURL(ctx context.Context, url string) (model.Offer, error) {
	url = strings.TrimSpace(url)
	return s.update(ctx, func(d *model.SettingsDocument) {
		d.GuideURL = &url
	})
}

func (s *SettingsService) SetSalesEnabled(ctx context.Context, enabled bool) (model.Offer, error) {
	return s.update(ctx, func(d *model.SettingsDocument) {
		d.SalesEnabled = &enabled
	})
}

// ToggleSales flips the sales flag as stored on disk.
func (s *SettingsService) ToggleSales(ctx context.Context) (model.Offer, error) {
	return s.update(ctx, func(d *model.SettingsDocument) {
		enabled := !d.ApplyTo(s.base).SalesEnabled
		d.SalesEnabled = &enabled
	})
}

func (s *SettingsService) update(ctx context.Context, fn func(*model.SettingsDocument)) (model.Offer, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc, err := s.repo.Update(ctx, func(d *model.SettingsDocument) error {
		fn(d)
		return nil
	})
	if err != nil {
		return s.Current(), fmt.Errorf("save settings: %w", err)
	}
	offer := s.swap(doc)
	s.log.Info("settings updated",
		zap.Int64("price_uah", offer.PriceUAH),
		zap.Int64("old_price_uah", offer.OldPriceUAH),
		zap.Bool("sales_enabled", offer.SalesEnabled))
	return offer, nil
}

func (s *SettingsService) swap(doc model.SettingsDocument) model.Offer {
	offer := doc.ApplyTo(s.base)
	s.mu.Lock()
	s.current = offer
	s.mu.Unlock()
	return offer
}

// Watch re-applies the settings document whenever another process replaces
// it. It blocks until ctx is done.
func (s *SettingsService) Watch(ctx context.Context) error {
	path := filepath.Clean(s.repo.Path())
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The document is replaced by rename, so watch the directory.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Info("watching settings", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			if _, err := s.Apply(ctx); err != nil {
				s.log.Warn("reload settings failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("settings watcher error", zap.Error(err))
		}
	}
}

// ParsePriceInput reads the admin price format "299" or "299,699" where the
// second number is the crossed-out price.
func ParsePriceInput(input string) (int64, *int64, error) {
	parts := strings.Split(strings.TrimSpace(input), ",")
	if len(parts) > 2 {
		return 0, nil, ErrInvalidPrice
	}
	price, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || price <= 0 {
		return 0, nil, errors.Join(ErrInvalidPrice, err)
	}
	if len(parts) == 1 {
		return price, nil, nil
	}
	old, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || old <= 0 {
		return 0, nil, errors.Join(ErrInvalidPrice, err)
	}
	return price, &old, nil
}
