package application

import (
	"strings"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/pkg/kafka"
)

// kafkaTopicFor routes a domain event onto its stream. Sync outcomes go to
// the sync topic; everything else is a stock-side event.
func kafkaTopicFor(event domain.DomainEvent) string {
	if strings.HasPrefix(event.EventType(), "sync.") {
		return kafka.Topics.SyncEvents
	}
	return kafka.Topics.StockEvents
}
