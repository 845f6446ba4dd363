// Package gatewaytest provides an in-memory gateway.Client for tests.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
)

// Client serves records from memory, newest first like the real gateway.
type Client struct {
	mu      sync.Mutex
	records map[gateway.Kind][]gateway.Record
	fail    map[gateway.Kind]failure

	// Calls records the kinds listed, in call order.
	Calls []gateway.Kind
}

type failure struct {
	after int
	err   error
}

func New() *Client {
	return &Client{
		records: make(map[gateway.Kind][]gateway.Record),
		fail:    make(map[gateway.Kind]failure),
	}
}

// Add appends records to the listing of their kind.
func (c *Client) Add(records ...gateway.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		c.records[r.Kind] = append(c.records[r.Kind], r)
	}
}

// FailAfter makes listings of kind stop with err after yielding n records.
func (c *Client) FailAfter(kind gateway.Kind, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fail[kind] = failure{after: n, err: err}
}

func (c *Client) List(_ context.Context, kind gateway.Kind, params gateway.ListParams) gateway.Iterator {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, kind)

	var out []gateway.Record

	for _, r := range c.records[kind] {
		if !params.Since.IsZero() && r.CreatedAt.Before(params.Since) {
			continue
		}

		out = append(out, r)
	}

	it := &iterator{records: out, pos: -1}
	if f, ok := c.fail[kind]; ok {
		it.failAt = f.after
		it.failErr = f.err
	}

	return it
}

type iterator struct {
	records []gateway.Record
	pos     int
	failAt  int
	failErr error
	err     error
}

func (i *iterator) Next() bool {
	if i.err != nil {
		return false
	}

	if i.failErr != nil && i.pos+1 >= i.failAt {
		i.err = i.failErr
		return false
	}

	if i.pos+1 >= len(i.records) {
		return false
	}

	i.pos++

	return true
}

func (i *iterator) Record() gateway.Record { return i.records[i.pos] }
func (i *iterator) Err() error             { return i.err }
