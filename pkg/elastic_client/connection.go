package elastic_client

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livebus/pkg/util"
)

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

// Connect sets up the bulk indexer. Without LIVEBUS_ELASTICSEARCH_ADDRESS indexing is
// skipped, unless required is set in which case that is an error.
func Connect(required bool) error {
	env := util.GetEnvironmentVariables()

	address := env["LIVEBUS_ELASTICSEARCH_ADDRESS"]
	if address == "" && !required {
		log.Info().Msg("Skipping Elasticsearch setup")
		return nil
	} else if address == "" {
		return errors.New("elasticsearch configuration not set")
	}

	tp := http.DefaultTransport.(*http.Transport).Clone()
	if env["LIVEBUS_ELASTICSEARCH_INSECURE"] == "YES" {
		tp.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
		Username:  env["LIVEBUS_ELASTICSEARCH_USERNAME"],
		Password:  env["LIVEBUS_ELASTICSEARCH_PASSWORD"],
		Transport: tp,

		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return err
	}

	res, err := es.Info()
	if err != nil {
		return err
	}
	res.Body.Close()

	bulkIndexer, err = esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        es,
		FlushInterval: 15 * time.Second,
	})
	if err != nil {
		return err
	}

	Client = es

	log.Info().Msgf("Elasticsearch client setup for %s", address)

	return nil
}

func IndexRequest(indexName string, document io.ReadSeeker) {
	if Client == nil {
		return
	}

	err := bulkIndexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Index:  indexName,
			Action: "index",
			Body:   document,
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Error().Err(err).Str("indexName", indexName).Msg("Failed to index document")
				} else {
					log.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index document")
				}
			},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("indexName", indexName).Msg("Failed to queue document")
	}
}

// Close flushes anything still queued in the bulk indexer.
func Close(ctx context.Context) error {
	if Client == nil {
		return nil
	}

	return bulkIndexer.Close(ctx)
}
