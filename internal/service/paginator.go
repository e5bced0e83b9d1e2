package service

import (
	"context"
	"iter"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/sirupsen/logrus"
)

// Paginator walks a paginated listing by following each page's next link
type Paginator[T any] struct {
	client *Client
	first  string
	log    logrus.FieldLogger
}

// NewPaginator creates a Paginator starting at first
func NewPaginator[T any](client *Client, first string, log logrus.FieldLogger) *Paginator[T] {
	return &Paginator[T]{client: client, first: first, log: log}
}

// Pages yields pages lazily. Each call starts again from the first page.
// The first error ends the sequence.
func (p *Paginator[T]) Pages(ctx context.Context) iter.Seq2[*model.Page[T], error] {
	return func(yield func(*model.Page[T], error) bool) {
		next := p.first
		for next != "" {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			p.log.Info(next)

			var page model.Page[T]
			if err := p.client.getJSON(ctx, next, &page); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&page, nil) {
				return
			}
			next = page.Next
		}
	}
}
