package api

import (
	"context"
	"net/http"

	"consult-client/internal/models"
)

// ConsultationsClient wraps the consultation booking endpoints.
type ConsultationsClient struct {
	c *Client
}

// Consultations returns the consultations sub-client.
func (c *Client) Consultations() *ConsultationsClient {
	return &ConsultationsClient{c: c}
}

// Create books a consultation with a doctor.
func (cc *ConsultationsClient) Create(ctx context.Context, req models.CreateConsultationRequest) (*models.Consultation, error) {
	var out models.Consultation
	if err := cc.c.do(ctx, http.MethodPost, "/api/consultations", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the current user's consultations.
func (cc *ConsultationsClient) List(ctx context.Context) ([]models.Consultation, error) {
	var out []models.Consultation
	if err := cc.c.do(ctx, http.MethodGet, "/api/consultations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one consultation by id.
func (cc *ConsultationsClient) Get(ctx context.Context, id string) (*models.Consultation, error) {
	var out models.Consultation
	if err := cc.c.do(ctx, http.MethodGet, "/api/consultations/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel marks a consultation cancelled.
func (cc *ConsultationsClient) Cancel(ctx context.Context, id string) (*models.Consultation, error) {
	var out models.Consultation
	if err := cc.c.do(ctx, http.MethodPatch, "/api/consultations/"+id+"/cancel", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
