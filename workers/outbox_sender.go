// workers/outbox_sender.go
package workers

import (
	"encoding/json"
	"log"
	"time"

	"arena-ledger-system/config"
	"arena-ledger-system/models"

	"github.com/IBM/sarama"
	"gorm.io/gorm"
)

// NewKafkaProducer builds the synchronous producer used by the outbox
// sender.
func NewKafkaProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
}

// StartOutboxSender drains unpublished ledger events to Kafka. Events are
// written in the same DB transaction as the state change and published
// here afterwards, so downstream consumers see at-least-once delivery in
// seq order.
func StartOutboxSender(db *gorm.DB, producer sarama.SyncProducer, topic string) {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			var events []models.LedgerEvent
			err := db.Where("published = ?", false).
				Order("seq ASC").
				Limit(100).
				Find(&events).Error
			if err != nil {
				log.Printf("[Outbox] DB error: %v", err)
				continue
			}

			for _, ev := range events {
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Printf("[Outbox] Marshal error for event %d: %v", ev.Seq, err)
					continue
				}

				msg := &sarama.ProducerMessage{
					Topic: topic,
					Key:   sarama.StringEncoder(ev.UserID),
					Value: sarama.ByteEncoder(payload),
				}
				if _, _, err := producer.SendMessage(msg); err != nil {
					// Stop the batch so seq order is preserved on retry.
					log.Printf("[Outbox] Kafka send failed for event %d: %v", ev.Seq, err)
					break
				}

				if err := db.Model(&models.LedgerEvent{}).
					Where("seq = ?", ev.Seq).
					Update("published", true).Error; err != nil {
					log.Printf("[Outbox] Failed to mark event %d published: %v", ev.Seq, err)
					break
				}
			}
		}
	}()
}
