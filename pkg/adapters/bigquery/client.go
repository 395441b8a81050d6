package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bq "cloud.google.com/go/bigquery"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Result is a fully read query result.
type Result struct {
	Schema bq.Schema
	Rows   []map[string]bq.Value
}

// Client is the subset of the BigQuery API the adapter uses.
type Client interface {
	Query(ctx context.Context, sql string) (*Result, error)
	Datasets(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, dataset, table string) (bq.Schema, error)
	Close() error
}

// ClientFactory builds a Client from validated settings and key material.
type ClientFactory func(ctx context.Context, cfg core.BigQueryConfig, keyJSON []byte) (Client, error)

type apiClient struct {
	c        *bq.Client
	location string
	batch    bool
}

// NewClient creates a Client backed by the Google Cloud BigQuery library.
func NewClient(ctx context.Context, cfg core.BigQueryConfig, keyJSON []byte) (Client, error) {
	c, err := bq.NewClient(ctx, cfg.Project, option.WithCredentialsJSON(keyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	if cfg.Location != "" {
		c.Location = cfg.Location
	}
	return &apiClient{
		c:        c,
		location: cfg.Location,
		batch:    strings.EqualFold(cfg.Priority, "batch"),
	}, nil
}

func (a *apiClient) Query(ctx context.Context, sql string) (*Result, error) {
	q := a.c.Query(sql)
	if a.location != "" {
		q.Location = a.location
	}
	if a.batch {
		q.Priority = bq.BatchPriority
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: []map[string]bq.Value{}}
	for {
		var row map[string]bq.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	res.Schema = it.Schema
	return res, nil
}

func (a *apiClient) Datasets(ctx context.Context) ([]string, error) {
	it := a.c.Datasets(ctx)
	var names []string
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, ds.DatasetID)
	}
	return names, nil
}

func (a *apiClient) TableSchema(ctx context.Context, dataset, table string) (bq.Schema, error) {
	md, err := a.c.Dataset(dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, err
	}
	return md.Schema, nil
}

func (a *apiClient) Close() error {
	return a.c.Close()
}
