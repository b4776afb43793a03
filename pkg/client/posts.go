package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"veilo/pkg/models"
)

// CreateResult holds either the post accepted by the backend or the local
// copy saved while it was unreachable.
type CreateResult struct {
	Post      *models.Post
	Emergency *models.EmergencyPost
}

// Offline reports whether the post only exists locally.
func (r *CreateResult) Offline() bool {
	return r.Emergency != nil
}

// PostsAPI wraps the /api/posts endpoints.
type PostsAPI struct {
	exec *Executor
}

// NewPostsAPI creates a posts client on top of exec.
func NewPostsAPI(exec *Executor) *PostsAPI {
	return &PostsAPI{exec: exec}
}

// List returns every post.
func (p *PostsAPI) List(ctx context.Context) ([]models.Post, error) {
	result := p.exec.Execute(ctx, PathPosts, RequestOptions{Method: http.MethodGet})
	if !result.Success {
		return nil, result.Error
	}

	var posts []models.Post
	if err := decodePayload(result.Data, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Get returns a single post.
func (p *PostsAPI) Get(ctx context.Context, id string) (*models.Post, error) {
	result := p.exec.Execute(ctx, postPath(id), RequestOptions{Method: http.MethodGet})
	if !result.Success {
		return nil, result.Error
	}
	return decodePost(result.Data)
}

// Create submits a post. When the backend is down the post is saved locally
// and returned as CreateResult.Emergency with a nil error.
func (p *PostsAPI) Create(ctx context.Context, input models.PostInput) (*CreateResult, error) {
	result := p.exec.Execute(ctx, PathPosts, RequestOptions{
		Method:  http.MethodPost,
		Body:    input,
		Offline: &input,
	})
	if result.Emergency != nil {
		return &CreateResult{Emergency: result.Emergency}, nil
	}
	if !result.Success {
		return nil, result.Error
	}

	post, err := decodePost(result.Data)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Post: post}, nil
}

// Update replaces the user-supplied fields of a post.
func (p *PostsAPI) Update(ctx context.Context, id string, input models.PostInput) (*models.Post, error) {
	result := p.exec.Execute(ctx, postPath(id), RequestOptions{Method: http.MethodPut, Body: input})
	if !result.Success {
		return nil, result.Error
	}
	return decodePost(result.Data)
}

// Delete removes a post.
func (p *PostsAPI) Delete(ctx context.Context, id string) error {
	result := p.exec.Execute(ctx, postPath(id), RequestOptions{Method: http.MethodDelete})
	return result.Error
}

func postPath(id string) string {
	return PathPosts + "/" + url.PathEscape(id)
}

func decodePost(data json.RawMessage) (*models.Post, error) {
	var post models.Post
	if err := decodePayload(data, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// decodePayload accepts both bare payloads and the {"success":..,"data":..}
// envelope, including {"post":..} and {"posts":..} wrappers.
func decodePayload(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Post  json.RawMessage `json:"post"`
		Posts json.RawMessage `json:"posts"`
	}
	inner := data
	if err := json.Unmarshal(data, &envelope); err == nil {
		switch {
		case len(envelope.Data) > 0:
			return decodePayload(envelope.Data, out)
		case len(envelope.Post) > 0:
			inner = envelope.Post
		case len(envelope.Posts) > 0:
			inner = envelope.Posts
		}
	}

	if err := json.Unmarshal(inner, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
