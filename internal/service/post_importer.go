package service

import (
	"context"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
)

// PostImporter creates or updates posts from ballot records, once per post per run
type PostImporter struct {
	cache map[string]*model.Post
}

// NewPostImporter creates a new PostImporter
func NewPostImporter() *PostImporter {
	return &PostImporter{cache: make(map[string]*model.Post)}
}

// UpdateOrCreateFromBallot returns the post for a ballot record, or nil if the record names no post.
// Provisional posts have no id yet and are keyed by slug.
func (i *PostImporter) UpdateOrCreateFromBallot(ctx context.Context, repo store.Repository, rec *model.BallotRecord) (*model.Post, error) {
	id := rec.Post.ResolvedID()
	if id == "" {
		return nil, nil
	}
	if p, ok := i.cache[id]; ok {
		return p, nil
	}

	p, err := repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &model.Post{YNRID: id}
	}
	p.Label = rec.Post.Label

	if err := repo.SavePost(ctx, p); err != nil {
		return nil, err
	}

	i.cache[id] = p
	return p, nil
}
