package archive

import (
	"context"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/notify"
)

func init() {
	if err := notify.RegisterNotifier("s3", func(conf map[string]any) (notify.Notifier, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewS3Archiver(context.Background(), cfg)
	}); err != nil {
		panic(err)
	}
}
