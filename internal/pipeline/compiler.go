package pipeline

import (
	"fmt"
	"io"

	"pulsefut/internal/config"
	"pulsefut/internal/telemetry"
	"pulsefut/sink"
	"pulsefut/sink/kafka"
	"pulsefut/sink/stdout"
)

// Options carries what the config file cannot.
type Options struct {
	Instance string
	Metrics  *telemetry.Metrics
	Stdout   io.Writer // nil → os.Stdout
}

// Compile builds a Runner with one configured adapter per entry of
// cfg.Sinks. Sinks opened before a failure are closed again.
func Compile(cfg config.Config, opts Options) (*Runner, error) {
	r := NewRunner(opts.Instance, opts.Metrics)
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			_ = r.Close()
			return nil, err
		}

		switch name {
		case "stdout":
			c := cfg.SinkConfigs.Stdout
			err = sDrv.Configure(stdout.Config{
				Out:           opts.Stdout,
				Pretty:        c.Pretty,
				KnownOnly:     c.KnownOnly,
				BatchSize:     c.BatchSize,
				FlushInterval: c.FlushInterval,
			})
		case "kafka":
			c := cfg.SinkConfigs.Kafka
			err = sDrv.Configure(kafka.Config{
				Brokers:  c.Brokers,
				Topic:    c.Topic,
				ClientID: c.ClientID,
				Version:  c.Version,
				Acks:     c.Acks,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		r.AddSink(name, sDrv)
	}
	return r, nil
}
