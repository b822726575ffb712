package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"socialrisk/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidPatient     = errors.New("name and birth date (YYYY-MM-DD) are required")
)

const (
	staffTokenTTL   = 12 * time.Hour
	patientTokenTTL = 24 * time.Hour
	birthDateLayout = "2006-01-02"
)

// AuthService handles staff and patient authentication
type AuthService struct {
	staffUsername string
	staffPassword string
	jwtSecret     []byte
	now           func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(staffUsername, staffPassword, jwtSecret string) *AuthService {
	return &AuthService{
		staffUsername: staffUsername,
		staffPassword: staffPassword,
		jwtSecret:     []byte(jwtSecret),
		now:           time.Now,
	}
}

// Login validates staff credentials and returns a token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if s.staffPassword == "" || username != s.staffUsername || password != s.staffPassword {
		return nil, ErrInvalidCredentials
	}

	staffID := "staff_" + uuid.New().String()[:8]
	now := s.now()
	claims := &model.StaffClaims{
		StaffID: staffID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(staffTokenTTL)),
		},
	}

	tokenString, err := s.sign(claims)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:   tokenString,
		StaffID: staffID,
	}, nil
}

// AuthenticatePatient derives the patient id and issues a session token
func (s *AuthService) AuthenticatePatient(name, birthDate string) (*model.PatientAuthResponse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidPatient
	}
	if _, err := time.Parse(birthDateLayout, strings.TrimSpace(birthDate)); err != nil {
		return nil, ErrInvalidPatient
	}

	patientID := PatientID(name, birthDate)
	now := s.now()
	claims := &model.PatientClaims{
		PatientID: patientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(patientTokenTTL)),
		},
	}

	tokenString, err := s.sign(claims)
	if err != nil {
		return nil, err
	}

	return &model.PatientAuthResponse{
		Token:     tokenString,
		PatientID: patientID,
	}, nil
}

// ValidateStaffToken validates a staff JWT and returns claims
func (s *AuthService) ValidateStaffToken(tokenString string) (*model.StaffClaims, error) {
	claims := &model.StaffClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.StaffID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidatePatientToken validates a patient JWT and returns claims
func (s *AuthService) ValidatePatientToken(tokenString string) (*model.PatientClaims, error) {
	claims := &model.PatientClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.PatientID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
