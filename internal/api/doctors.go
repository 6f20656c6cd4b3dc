package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"consult-client/internal/models"
)

// DoctorsClient wraps the doctor search and suggestion endpoints. It
// satisfies the search controller's API interface.
type DoctorsClient struct {
	c *Client
}

// Doctors returns the doctors sub-client.
func (c *Client) Doctors() *DoctorsClient {
	return &DoctorsClient{c: c}
}

// SearchDoctors fetches one page of doctors. Rating and location are not
// part of the server contract; only name, speciality, sort and paging are
// sent.
func (d *DoctorsClient) SearchDoctors(ctx context.Context, q models.DoctorQuery) (*models.Page[models.Doctor], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("size", strconv.Itoa(q.Size))
	query.Set("sortBy", q.SortBy)
	query.Set("sortDirection", q.SortDirection)
	if q.Name != "" {
		query.Set("name", q.Name)
	}
	if q.Speciality != "" {
		query.Set("speciality", q.Speciality)
	}

	var page models.Page[models.Doctor]
	if err := d.c.do(ctx, http.MethodGet, "/api/doctors", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SuggestNames returns name completions for a partial input.
func (d *DoctorsClient) SuggestNames(ctx context.Context, partial string) ([]string, error) {
	return d.suggest(ctx, "/api/doctors/suggestions/names", partial)
}

// SuggestSpecialities returns speciality completions for a partial input.
func (d *DoctorsClient) SuggestSpecialities(ctx context.Context, partial string) ([]string, error) {
	return d.suggest(ctx, "/api/doctors/suggestions/specialities", partial)
}

func (d *DoctorsClient) suggest(ctx context.Context, path, partial string) ([]string, error) {
	query := url.Values{}
	query.Set("q", partial)
	var out []string
	if err := d.c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
