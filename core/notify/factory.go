package notify

import (
	"time"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/logger"
)

// Config lists the notification sinks and their shared tuning.
type Config struct {
	Sinks   []factory.ModuleConfig `json:"sinks"`
	Timeout time.Duration          `json:"timeout"`
	Breaker BreakerConfig          `json:"breaker"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	c.Breaker.SetDefaults()
}

var registry = factory.NewRegistry[Notifier]()

func init() {
	registry.MustRegister("nop", func(map[string]any) (Notifier, error) { return Nop{}, nil })
}

// RegisterNotifier adds a notifier factory identified by name.
func RegisterNotifier(name string, f factory.Factory[Notifier]) error {
	return registry.Register(name, f)
}

// Build creates every configured notifier wrapped in its own breaker.
func Build(cfg Config, log logger.Logger) ([]Notifier, error) {
	cfg.SetDefaults()
	out := make([]Notifier, 0, len(cfg.Sinks))
	for _, sc := range cfg.Sinks {
		n, err := registry.Create(sc)
		if err != nil {
			for _, built := range out {
				if c, ok := built.(Closer); ok {
					_ = c.Close()
				}
			}
			return nil, err
		}
		out = append(out, NewBreaker(n, cfg.Breaker, log))
	}
	return out, nil
}
