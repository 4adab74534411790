package mypubsub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

type kafkaPubSub struct {
	producer sarama.SyncProducer
	admin    sarama.ClusterAdmin
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" && os.Getenv("KAFKA_BROKERS") != "" {
		New = newKafkaPubSub
	}
}

func newKafkaPubSub(c context.Context) (PubSub, func(), error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, func() {}, fmt.Errorf("error creating kafka producer for %v: %s", brokers, err)
	}

	admin, err := sarama.NewClusterAdmin(brokers, config)
	if err != nil {
		producer.Close()
		return nil, func() {}, fmt.Errorf("error creating kafka admin for %v: %s", brokers, err)
	}

	return &kafkaPubSub{
			producer: producer,
			admin:    admin,
		}, func() {
			producer.Close()
			admin.Close()
		}, nil
}

// Subscribe is a no-op: kafka consumers pull, there are no push-endpoints to register
func (ps *kafkaPubSub) Subscribe(c context.Context, topicName string, urlToPostTo string) error {
	log.Printf("Ignoring push-subscription on kafka topic %s (%s)", topicName, urlToPostTo)
	return nil
}

func (ps *kafkaPubSub) CreateTopic(c context.Context, topicName string) error {
	err := ps.admin.CreateTopic(topicName, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, false)
	if err != nil {
		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("error creating topic %s: %s", topicName, err)
	}

	log.Printf("Created topic %s", topicName)

	return nil
}

func (ps *kafkaPubSub) Publish(c context.Context, topicName string, data string) error {
	_, _, err := ps.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topicName,
		Value: sarama.StringEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("error publishing event on topic %s: %s", topicName, err)
	}

	return nil
}
