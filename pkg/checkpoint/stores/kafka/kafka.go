// Package kafka stores checkpoints in a compacted Kafka topic. Each save is a
// message keyed by stream; a delete is a tombstone. Load and List replay the
// topic up to the high-water mark, so the latest message per key wins.
package kafka

import (
	"context"
	"sort"
	"time"

	"github.com/IBM/sarama"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreKafka, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.Kafka)
	})
}

// Store is a Kafka-backed checkpoint store.
type Store struct {
	client      sarama.Client
	producer    sarama.SyncProducer
	topic       string
	readTimeout time.Duration
}

// NewSaramaConfig returns the client configuration used by the store:
// acknowledged writes from all in-sync replicas and hash partitioning, so
// every message of a stream lands in one partition.
func NewSaramaConfig(cfg config.KafkaStoreConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Version = sarama.V2_8_0_0
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Retry.Max = 5
	sc.Consumer.Return.Errors = true
	sc.Metadata.AllowAutoTopicCreation = false
	return sc
}

// Open connects to the brokers, creates the compacted topic when missing and
// starts a synchronous producer. ctx is not used by sarama and only checked
// before connecting.
func Open(ctx context.Context, cfg config.KafkaStoreConfig) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc := NewSaramaConfig(cfg)

	if err := ensureTopic(cfg, sc); err != nil {
		return nil, err
	}

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create kafka client")
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create kafka producer")
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	return &Store{
		client:      client,
		producer:    producer,
		topic:       cfg.Topic,
		readTimeout: readTimeout,
	}, nil
}

func ensureTopic(cfg config.KafkaStoreConfig, sc *sarama.Config) error {
	admin, err := sarama.NewClusterAdmin(cfg.Brokers, sc)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create kafka admin client")
	}
	defer admin.Close()

	compact := "compact"
	err = admin.CreateTopic(cfg.Topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: -1,
		ConfigEntries: map[string]*string{
			"cleanup.policy": &compact,
		},
	}, false)

	var topicErr *sarama.TopicError
	if err == nil || (errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists) {
		return nil
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create checkpoint topic").
		WithDetail("topic", cfg.Topic)
}

func (s *Store) Name() string { return config.StoreKafka }

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	return s.send(ctx, stream, sarama.ByteEncoder(data), "failed to publish checkpoint")
}

// Delete publishes a tombstone for stream.
func (s *Store) Delete(ctx context.Context, stream string) error {
	return s.send(ctx, stream, nil, "failed to publish checkpoint tombstone")
}

func (s *Store) send(ctx context.Context, stream string, value sarama.Encoder, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(stream),
		Value: value,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, message).WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	states, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, ok := states[stream]
	if !ok {
		return nil, checkpoint.NewNotFoundError(s.Name(), stream)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	states, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	streams := make([]string, 0, len(states))
	for stream := range states {
		streams = append(streams, stream)
	}
	sort.Strings(streams)
	return streams, nil
}

// snapshot replays every partition of the topic and returns the latest
// value per stream.
func (s *Store) snapshot(ctx context.Context) (map[string][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	if err := s.client.RefreshMetadata(s.topic); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to refresh topic metadata")
	}
	partitions, err := s.client.Partitions(s.topic)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list topic partitions")
	}

	consumer, err := sarama.NewConsumerFromClient(s.client)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create kafka consumer")
	}
	defer consumer.Close()

	states := make(map[string][]byte)
	for _, partition := range partitions {
		if err := s.replay(ctx, consumer, partition, states); err != nil {
			return nil, err
		}
	}
	return states, nil
}

func (s *Store) replay(ctx context.Context, consumer sarama.Consumer, partition int32, states map[string][]byte) error {
	oldest, err := s.client.GetOffset(s.topic, partition, sarama.OffsetOldest)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to read oldest offset")
	}
	newest, err := s.client.GetOffset(s.topic, partition, sarama.OffsetNewest)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to read newest offset")
	}
	if newest <= oldest {
		return nil
	}

	pc, err := consumer.ConsumePartition(s.topic, partition, oldest)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to consume checkpoint partition")
	}
	defer pc.Close()

	for {
		select {
		case msg := <-pc.Messages():
			key := string(msg.Key)
			if msg.Value == nil {
				delete(states, key)
			} else {
				states[key] = append([]byte(nil), msg.Value...)
			}
			if msg.Offset >= newest-1 {
				return nil
			}
		case cerr := <-pc.Errors():
			return errors.Wrap(cerr, errors.ErrorTypeConnection, "failed to read checkpoint partition")
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "timed out replaying checkpoint topic").
				WithDetail("partition", partition)
		}
	}
}

func (s *Store) Close() error {
	perr := s.producer.Close()
	cerr := s.client.Close()
	if perr != nil {
		return perr
	}
	if cerr != nil && !errors.Is(cerr, sarama.ErrClosedClient) {
		return cerr
	}
	return nil
}
