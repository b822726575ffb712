package model

import "github.com/golang-jwt/jwt/v5"

// StaffClaims are JWT claims for clinic staff reading persisted results
type StaffClaims struct {
	StaffID string `json:"staffId"`
	jwt.RegisteredClaims
}

// PatientClaims are JWT claims for a patient-scoped screening session
type PatientClaims struct {
	PatientID string `json:"patientId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for staff login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful staff login
type LoginResponse struct {
	Token   string `json:"token"`
	StaffID string `json:"staffId"`
}

// PatientAuthRequest identifies a patient by name and birth date (YYYY-MM-DD)
type PatientAuthRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
}

// PatientAuthResponse carries the session token for a patient
type PatientAuthResponse struct {
	Token     string `json:"token"`
	PatientID string `json:"patientId"`
}
