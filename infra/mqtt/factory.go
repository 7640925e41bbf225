package mqtt

import (
	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/notify"
)

func init() {
	if err := notify.RegisterNotifier("mqtt", func(conf map[string]any) (notify.Notifier, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewPublisher(cfg)
	}); err != nil {
		panic(err)
	}
}
