package kafka

import (
	"AIBoss/backend/go/internal/config"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnsureTopics 连接到第一个 broker，创建尚不存在的主题。
func EnsureTopics(cfg *config.KafkaConfig, topics ...string) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("未配置 Kafka brokers")
	}

	// 1. 建立管理连接
	conn, err := kafka.DialContext(context.Background(), "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	// 2. 获取已存在的主题
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existingTopics := make(map[string]struct{})
	for _, p := range partitions {
		existingTopics[p.Topic] = struct{}{}
	}

	// 3. 遍历并创建不存在的主题
	var topicsToCreate []kafka.TopicConfig
	for _, topicName := range topics {
		if _, exists := existingTopics[topicName]; !exists {
			log.Printf("主题 '%s' 不存在，准备创建...", topicName)
			topicsToCreate = append(topicsToCreate, kafka.TopicConfig{
				Topic:             topicName,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
		}
	}
	if len(topicsToCreate) == 0 {
		return nil
	}
	if err := conn.CreateTopics(topicsToCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	log.Printf("成功创建 %d 个 Kafka 主题。", len(topicsToCreate))
	return nil
}

// HealthCheck 返回检查 Kafka 连接健康状况的函数。
func HealthCheck(cfg *config.KafkaConfig) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if len(cfg.Brokers) == 0 {
			return fmt.Errorf("未配置 Kafka brokers")
		}
		dialer := &kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Controller()
		return err
	}
}
