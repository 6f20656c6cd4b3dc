package api

import (
	"context"
	"net/http"

	"consult-client/internal/models"
)

// RatingsClient wraps the rating CRUD endpoints.
type RatingsClient struct {
	c *Client
}

// Ratings returns the ratings sub-client.
func (c *Client) Ratings() *RatingsClient {
	return &RatingsClient{c: c}
}

// Create posts a new rating for a doctor.
func (rc *RatingsClient) Create(ctx context.Context, req models.CreateRatingRequest) (*models.Rating, error) {
	var out models.Rating
	if err := rc.c.do(ctx, http.MethodPost, "/api/ratings", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListForDoctor returns all ratings of one doctor.
func (rc *RatingsClient) ListForDoctor(ctx context.Context, doctorID string) ([]models.Rating, error) {
	var out []models.Rating
	if err := rc.c.do(ctx, http.MethodGet, "/api/doctors/"+doctorID+"/ratings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update revises an existing rating.
func (rc *RatingsClient) Update(ctx context.Context, id string, req models.UpdateRatingRequest) (*models.Rating, error) {
	var out models.Rating
	if err := rc.c.do(ctx, http.MethodPatch, "/api/ratings/"+id, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a rating.
func (rc *RatingsClient) Delete(ctx context.Context, id string) error {
	return rc.c.do(ctx, http.MethodDelete, "/api/ratings/"+id, nil, nil, nil)
}
