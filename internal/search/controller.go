package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"consult-client/internal/models"
)

// Filter defaults. SpecialityAll is the sentinel meaning "no speciality
// constraint" and is never sent to the server.
const (
	SpecialityAll    = "All Specialties"
	DefaultSortBy    = "averageRating"
	DefaultSortOrder = "desc"
	SortAsc          = "asc"
	SortDesc         = "desc"
)

const (
	defaultDebounce        = 300 * time.Millisecond
	defaultSuggestDebounce = 200 * time.Millisecond
	defaultRequestTimeout  = 10 * time.Second
	defaultPageSize        = 10

	// Inputs shorter than this clear the suggestion list without a request.
	suggestMinLen = 2
)

var ErrControllerClosed = errors.New("search: controller closed")

// API is the remote surface the controller drives. Implemented by the
// doctors REST client; narrowed to an interface so tests can fake it.
type API interface {
	SearchDoctors(ctx context.Context, q models.DoctorQuery) (*models.Page[models.Doctor], error)
	SuggestNames(ctx context.Context, partial string) ([]string, error)
	SuggestSpecialities(ctx context.Context, partial string) ([]string, error)
}

// Snapshot is a point-in-time copy of the controller's derived state.
//
// Doctors is the client-filtered view of the current server page, so
// FilteredOnPage can be smaller than the page the server returned.
// ServerTotal/TotalPages always mirror the server's last response: the two
// counts are reported separately precisely because the client-side rating
// and location filters can under-report matches (matching rows on other
// server pages are never seen).
type Snapshot struct {
	Doctors        []models.Doctor
	FilteredOnPage int
	ServerTotal    int64
	TotalPages     int
	CurrentPage    int

	SearchName string
	Speciality string
	MinRating  float64
	Location   string
	SortBy     string
	SortOrder  string

	NameSuggestions       []string
	SpecialitySuggestions []string

	Loading bool
	LastErr error
}

// Config holds controller tuning knobs; zero values fall back to defaults.
type Config struct {
	Debounce        time.Duration
	SuggestDebounce time.Duration
	RequestTimeout  time.Duration
	PageSize        int
}

// Controller turns independently-edited filter, sort and page inputs into a
// single coherent stream of queries against the paginated doctor search
// endpoint. Text-filter edits are debounced; sort and page changes fetch
// immediately; every fetch supersedes the in-flight one (single-flight) and
// a superseded fetch's result is never applied. The zero-based CurrentPage
// is reset to 0 by any filter or sort change, but not by a page-only change.
type Controller struct {
	api     API
	logger  *zap.Logger
	cfg     Config
	onState func(Snapshot)

	mu sync.Mutex

	searchName string
	speciality string
	minRating  float64
	location   string
	sortBy     string
	sortOrder  string

	currentPage   int
	totalPages    int
	totalElements int64
	doctors       []models.Doctor

	loading bool
	lastErr error

	debounceSeq uint64
	debounce    *time.Timer

	fetchGen    uint64
	cancelFetch context.CancelFunc

	nameSuggest     *suggester
	specSuggest     *suggester
	nameSuggestions []string
	specSuggestions []string

	closed bool
}

// NewController builds a controller in the default filter state. onState,
// when non-nil, is invoked with a fresh Snapshot after every state change;
// it runs without the controller lock held.
func NewController(api API, cfg Config, logger *zap.Logger, onState func(Snapshot)) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.SuggestDebounce <= 0 {
		cfg.SuggestDebounce = defaultSuggestDebounce
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	c := &Controller{
		api:        api,
		logger:     logger,
		cfg:        cfg,
		onState:    onState,
		speciality: SpecialityAll,
		sortBy:     DefaultSortBy,
		sortOrder:  DefaultSortOrder,
		totalPages: 1,
	}
	c.nameSuggest = newSuggester(c, api.SuggestNames, func(s []string) { c.nameSuggestions = s })
	c.specSuggest = newSuggester(c, api.SuggestSpecialities, func(s []string) { c.specSuggestions = s })
	return c
}

// Search starts the initial fetch for the current (default) filter state.
func (c *Controller) Search() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.refetchLocked()
}

// SetSearchName records a name-filter edit. The refetch is debounced: rapid
// successive edits within the quiet period collapse into one request using
// the last value, with the page reset to 0. The name suggestion list is
// scheduled on its own shorter debounce.
func (c *Controller) SetSearchName(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.searchName = v
	c.currentPage = 0
	c.scheduleDebouncedFetchLocked()
	c.nameSuggest.scheduleLocked(v)
}

// SetSpeciality records a speciality-filter edit, debounced like the name
// filter. SpecialityAll lifts the constraint.
func (c *Controller) SetSpeciality(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.speciality = v
	c.currentPage = 0
	c.scheduleDebouncedFetchLocked()
	if v != SpecialityAll {
		c.specSuggest.scheduleLocked(v)
	} else {
		c.specSuggest.clearLocked()
	}
}

// SetSort changes the sort directive and refetches immediately from page 0.
func (c *Controller) SetSort(sortBy, sortOrder string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sortBy = sortBy
	c.sortOrder = sortOrder
	c.currentPage = 0
	c.cancelDebounceLocked()
	c.refetchLocked()
}

// SetMinRating changes the client-side rating floor and refetches
// immediately from page 0. The floor is applied to the returned server
// page, not sent as a query parameter.
func (c *Controller) SetMinRating(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.minRating = v
	c.currentPage = 0
	c.cancelDebounceLocked()
	c.refetchLocked()
}

// SetLocation changes the client-side location filter (case-insensitive
// substring match) and refetches immediately from page 0.
func (c *Controller) SetLocation(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.location = v
	c.currentPage = 0
	c.cancelDebounceLocked()
	c.refetchLocked()
}

// SetPage moves to another server page without touching filters or sort.
// The page index is clamped to [0, totalPages-1].
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if page < 0 {
		page = 0
	}
	if c.totalPages > 0 && page > c.totalPages-1 {
		page = c.totalPages - 1
	}
	c.currentPage = page
	c.refetchLocked()
}

// ResetAllFilters restores every filter, sort and page field to its default
// and issues exactly one fetch. Calling it again from the already-default
// state still issues one fetch; the reset is unconditional by contract.
func (c *Controller) ResetAllFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.searchName = ""
	c.speciality = SpecialityAll
	c.minRating = 0
	c.location = ""
	c.sortBy = DefaultSortBy
	c.sortOrder = DefaultSortOrder
	c.currentPage = 0
	c.cancelDebounceLocked()
	c.nameSuggest.clearLocked()
	c.specSuggest.clearLocked()
	c.refetchLocked()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels the debounce timers and any in-flight requests. The
// controller accepts no further mutations afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelDebounceLocked()
	c.fetchGen++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.nameSuggest.closeLocked()
	c.specSuggest.closeLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Doctors:               append([]models.Doctor(nil), c.doctors...),
		FilteredOnPage:        len(c.doctors),
		ServerTotal:           c.totalElements,
		TotalPages:            c.totalPages,
		CurrentPage:           c.currentPage,
		SearchName:            c.searchName,
		Speciality:            c.speciality,
		MinRating:             c.minRating,
		Location:              c.location,
		SortBy:                c.sortBy,
		SortOrder:             c.sortOrder,
		NameSuggestions:       append([]string(nil), c.nameSuggestions...),
		SpecialitySuggestions: append([]string(nil), c.specSuggestions...),
		Loading:               c.loading,
		LastErr:               c.lastErr,
	}
}

func (c *Controller) scheduleDebouncedFetchLocked() {
	c.debounceSeq++
	seq := c.debounceSeq
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.cfg.Debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || seq != c.debounceSeq {
			return
		}
		c.refetchLocked()
	})
}

func (c *Controller) cancelDebounceLocked() {
	c.debounceSeq++
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

// refetchLocked issues the query for the current state, cancelling any
// fetch still in flight. Results are applied only if the fetch is still the
// newest one when it resolves.
func (c *Controller) refetchLocked() {
	c.fetchGen++
	gen := c.fetchGen
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	c.cancelFetch = cancel
	c.loading = true

	q := models.DoctorQuery{
		Name:          c.searchName,
		SortBy:        c.sortBy,
		SortDirection: c.sortOrder,
		Page:          c.currentPage,
		Size:          c.cfg.PageSize,
	}
	if c.speciality != SpecialityAll {
		q.Speciality = c.speciality
	}

	go c.fetch(ctx, cancel, gen, q)
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, q models.DoctorQuery) {
	page, err := c.api.SearchDoctors(ctx, q)
	cancel()

	c.mu.Lock()
	if c.closed || gen != c.fetchGen {
		// Superseded: a newer fetch owns the state now.
		c.mu.Unlock()
		return
	}
	c.loading = false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		// Full-reset failure policy: empty list, pagination collapsed.
		c.doctors = nil
		c.totalPages = 1
		c.totalElements = 0
		c.lastErr = err
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn("doctor search failed", zap.Error(err))
		c.notify(snap)
		return
	}

	c.lastErr = nil
	c.currentPage = page.Number
	c.totalPages = page.TotalPages
	c.totalElements = page.TotalElements
	c.doctors = postFilter(page.Content, c.minRating, c.location)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) notify(snap Snapshot) {
	if c.onState != nil {
		c.onState(snap)
	}
}

// postFilter applies the client-only rating floor and location substring
// match to one server page.
func postFilter(page []models.Doctor, minRating float64, location string) []models.Doctor {
	loc := strings.ToLower(strings.TrimSpace(location))
	out := make([]models.Doctor, 0, len(page))
	for _, d := range page {
		if d.AverageRating < minRating {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(d.Location), loc) {
			continue
		}
		out = append(out, d)
	}
	return out
}
