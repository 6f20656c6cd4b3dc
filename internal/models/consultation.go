package models

import "time"

// Consultation status constants
const (
	ConsultationPending   = "PENDING"
	ConsultationConfirmed = "CONFIRMED"
	ConsultationCancelled = "CANCELLED"
	ConsultationCompleted = "COMPLETED"
)

/** --------------------ENTITIES-------------------- */

// Consultation is a booked appointment between a patient and a doctor.
type Consultation struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	DoctorID  string    `json:"doctorId"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rating is a patient's review of a doctor.
type Rating struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	DoctorID  string    `json:"doctorId"`
	Score     float64   `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

/** -------------------- DTOs -------------------- */

type CreateConsultationRequest struct {
	DoctorID  string    `json:"doctorId"`
	StartTime time.Time `json:"startTime"`
	Notes     string    `json:"notes,omitempty"`
}

type CreateRatingRequest struct {
	DoctorID string  `json:"doctorId"`
	Score    float64 `json:"score"`
	Comment  string  `json:"comment,omitempty"`
}

type UpdateRatingRequest struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}
