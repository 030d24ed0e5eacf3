package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
)

// Warmer refreshes resources on a schedule so user queries rarely pay for a
// backend round trip.
type Warmer struct {
	cron      *cron.Cron
	cache     *Cache
	resources []string
	spec      string
	logger    *zap.Logger
}

func NewWarmer(c *Cache, interval time.Duration, resources []string, log *zap.Logger) *Warmer {
	log = logger.WithFields(log, zap.String("component", "warmer"))

	return &Warmer{
		cron:      cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		cache:     c,
		resources: resources,
		spec:      fmt.Sprintf("@every %s", interval),
		logger:    log,
	}
}

// Start registers the refresh job and warms once right away.
func (w *Warmer) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.spec, func() { w.Warm(ctx) }); err != nil {
		return fmt.Errorf("add warm job %q: %w", w.spec, err)
	}

	w.cron.Start()
	w.logger.Info("cache warmer started", zap.String("spec", w.spec), zap.Strings("resources", w.resources))

	go w.Warm(ctx)

	return nil
}

// Stop waits for a running refresh to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("cache warmer stopped")
}

// Warm refreshes every configured resource once. Failures are logged only.
func (w *Warmer) Warm(ctx context.Context) {
	for _, resource := range w.resources {
		data, err := w.cache.Refresh(ctx, resource)
		if err != nil {
			w.logger.Warn("warm refresh failed", zap.String("resource", resource), zap.Error(err))
			continue
		}
		w.logger.Debug("warmed", zap.String("resource", resource), zap.Int("records", len(data)))
	}
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
