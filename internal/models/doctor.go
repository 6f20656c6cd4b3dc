package models

/** --------------------ENTITIES-------------------- */

// Doctor is the search-result projection of a doctor profile.
type Doctor struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Speciality    string  `json:"speciality"`
	Location      string  `json:"location"`
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
}

/** -------------------- DTOs -------------------- */

// Page is the paginated envelope returned by the search endpoints.
// Number is the zero-based page index the server actually served.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
}

// DoctorQuery carries the server-side portion of a doctor search.
// Rating and location constraints are applied client-side, see the
// search controller.
type DoctorQuery struct {
	Name          string
	Speciality    string
	SortBy        string
	SortDirection string
	Page          int
	Size          int
}
