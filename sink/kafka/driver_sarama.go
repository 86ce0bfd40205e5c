package kafka

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"pulsefut/internal/logging"
	"pulsefut/sink"
)

type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
	Version  string // e.g. "3.6.0"; empty keeps sarama's default
	Acks     string // none|leader|all
}

// ProducerFactory creates the async producer; tests swap in sarama/mocks.
type ProducerFactory func(brokers []string, cfg *sarama.Config) (sarama.AsyncProducer, error)

type driver struct {
	cfg         Config
	newProducer ProducerFactory

	p       sarama.AsyncProducer
	drained sync.WaitGroup
	failed  atomic.Uint64
	closed  atomic.Bool
}

func newDriver(f ProducerFactory) *driver {
	return &driver{newProducer: f}
}

// SaramaConfig maps c onto a producer configuration.
func SaramaConfig(c Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if c.ClientID != "" {
		sc.ClientID = c.ClientID
	}
	if c.Version != "" {
		v, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, fmt.Errorf("kafka-sink: version: %w", err)
		}
		sc.Version = v
	}
	switch strings.ToLower(c.Acks) {
	case "", "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	default:
		return nil, fmt.Errorf("kafka-sink: unknown acks %q", c.Acks)
	}
	sc.Producer.Return.Errors = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc, nil
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	sc, err := SaramaConfig(cfg)
	if err != nil {
		return err
	}
	p, err := d.newProducer(cfg.Brokers, sc)
	if err != nil {
		return fmt.Errorf("kafka-sink: producer: %w", err)
	}
	d.cfg, d.p = cfg, p

	d.drained.Add(1)
	go d.drainErrors()
	return nil
}

func (d *driver) drainErrors() {
	defer d.drained.Done()
	log := logging.Component("kafka-sink")
	for perr := range d.p.Errors() {
		d.failed.Add(1)
		log.Warn("produce failed", "topic", perr.Msg.Topic, "err", perr.Err)
	}
}

// Push encodes r as JSON keyed by the object it describes, so all records
// for one sink land on one partition in order.
func (d *driver) Push(r sink.Record) error {
	if d.p == nil || d.closed.Load() {
		return fmt.Errorf("kafka-sink: not running")
	}
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("kafka-sink: encode: %w", err)
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(r.Key()),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

// Failed returns how many records the producer reported as lost.
func (d *driver) Failed() uint64 { return d.failed.Load() }

func (d *driver) Close() error {
	if d.p == nil || !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := d.p.Close()
	d.drained.Wait()
	return err
}

func init() {
	sink.Register("kafka", func() sink.Adapter { return newDriver(sarama.NewAsyncProducer) })
}
