package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"storefront_back_end/internal/models"
)

// producer est la partie de *kgo.Client utilisée ici
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// Kafka publie un événement par transition de commande, clé = identifiant de commande
type Kafka struct {
	client producer
	topic  string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("client Kafka: %w", err)
	}
	log.Printf("✅ Producteur Kafka prêt (topic %s)", topic)
	return &Kafka{client: client, topic: topic}, nil
}

// PublishOrderEvent envoie l'événement de façon asynchrone ; les échecs sont journalisés
func (k *Kafka) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encodage événement: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: value,
	}
	// L'envoi est asynchrone : l'annulation de la requête ne doit pas retirer l'enregistrement du lot
	k.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			log.Printf("⚠️ Événement commande #%d non publié: %v", ev.OrderID, err)
		}
	})
	return nil
}

// Close vide les envois en cours puis ferme le client
func (k *Kafka) Close(ctx context.Context) {
	if err := k.client.Flush(ctx); err != nil {
		log.Printf("⚠️ Flush Kafka: %v", err)
	}
	k.client.Close()
}
