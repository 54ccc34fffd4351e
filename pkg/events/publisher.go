package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/livebus/pkg/ctdf"
	"github.com/travigo/livebus/pkg/elastic_client"
)

const sharingEventsIndexFormat = "livebus-sharing-events-%s"

type Publisher interface {
	Publish(event ctdf.SharingEvent)
}

type indexFunc func(indexName string, document io.ReadSeeker)

// ElasticPublisher sends sharing events to the monthly Elasticsearch index from a
// single background worker. Publish never waits on Elasticsearch: when the queue is
// full the event is dropped and logged. Events are also dropped when Elasticsearch
// has not been configured.
type ElasticPublisher struct {
	queue chan ctdf.SharingEvent
	index indexFunc

	closeOnce sync.Once
	mutex     sync.RWMutex
	closed    bool
	done      chan struct{}
}

func NewElasticPublisher(bufferSize int) *ElasticPublisher {
	return newPublisher(bufferSize, elastic_client.IndexRequest)
}

func newPublisher(bufferSize int, index indexFunc) *ElasticPublisher {
	if bufferSize < 0 {
		bufferSize = 0
	}

	publisher := &ElasticPublisher{
		queue: make(chan ctdf.SharingEvent, bufferSize),
		index: index,
		done:  make(chan struct{}),
	}

	go publisher.run()

	return publisher
}

func (p *ElasticPublisher) Publish(event ctdf.SharingEvent) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.closed {
		log.Warn().Str("busNumber", event.BusNumber).Str("type", string(event.Type)).Msg("Publisher closed, dropping sharing event")
		return
	}

	select {
	case p.queue <- event:
	default:
		log.Warn().Str("busNumber", event.BusNumber).Str("type", string(event.Type)).Msg("Sharing event queue full, dropping event")
	}
}

// Close stops accepting events and waits until every queued event has been handed to the indexer.
func (p *ElasticPublisher) Close() {
	p.closeOnce.Do(func() {
		p.mutex.Lock()
		p.closed = true
		close(p.queue)
		p.mutex.Unlock()
	})

	<-p.done
}

func (p *ElasticPublisher) run() {
	defer close(p.done)

	for event := range p.queue {
		elasticEvent, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("busNumber", event.BusNumber).Msg("Failed to encode sharing event")
			continue
		}

		p.index(SharingEventsIndex(event.Timestamp), bytes.NewReader(elasticEvent))
	}
}

func SharingEventsIndex(timestamp time.Time) string {
	return fmt.Sprintf(sharingEventsIndexFormat, timestamp.UTC().Format("2006-01"))
}
