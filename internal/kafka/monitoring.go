package kafka

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
)

// ConsumerLag is the offset distance between the intake topic head and a
// consumer group
type ConsumerLag struct {
	Topic         string
	ConsumerGroup string
	TotalLag      int64
	PartitionLags map[int32]int64
}

// MonitoringService reports intake pipeline health
type MonitoringService struct {
	config *config.Configuration
	logger *logger.Logger
}

func NewMonitoringService(cfg *config.Configuration, log *logger.Logger) *MonitoringService {
	return &MonitoringService{
		config: cfg,
		logger: log,
	}
}

// GetConsumerLag computes per-partition and total lag for a consumer group
func (m *MonitoringService) GetConsumerLag(ctx context.Context, topic string, consumerGroup string) (*ConsumerLag, error) {
	saramaConfig := GetSaramaConfig(m.config)
	if saramaConfig == nil {
		saramaConfig = sarama.NewConfig()
		saramaConfig.Version = sarama.V2_1_0_0
	}
	saramaConfig.Consumer.Return.Errors = true

	admin, err := sarama.NewClusterAdmin(m.config.Kafka.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka admin client: %w", err)
	}
	defer admin.Close()

	client, err := sarama.NewClient(m.config.Kafka.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	defer client.Close()

	partitions, err := client.Partitions(topic)
	if err != nil {
		return nil, fmt.Errorf("get partitions for topic %s: %w", topic, err)
	}

	offsetFetchResponse, err := admin.ListConsumerGroupOffsets(consumerGroup, map[string][]int32{
		topic: partitions,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch consumer group offsets: %w", err)
	}

	lag := &ConsumerLag{
		Topic:         topic,
		ConsumerGroup: consumerGroup,
		PartitionLags: make(map[int32]int64, len(partitions)),
	}

	for _, partition := range partitions {
		latest, err := client.GetOffset(topic, partition, sarama.OffsetNewest)
		if err != nil {
			m.logger.Warnw("failed to get partition offset",
				"error", err,
				"topic", topic,
				"partition", partition,
			)
			continue
		}

		block := offsetFetchResponse.GetBlock(topic, partition)
		if block == nil || block.Offset < 0 {
			// No committed offset yet; the whole partition is lag
			lag.PartitionLags[partition] = latest
			lag.TotalLag += latest
			continue
		}

		partitionLag := latest - block.Offset
		if partitionLag < 0 {
			partitionLag = 0
		}
		lag.PartitionLags[partition] = partitionLag
		lag.TotalLag += partitionLag
	}

	return lag, nil
}
