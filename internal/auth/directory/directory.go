// Package directory resolves agent credentials. Only the development
// directory ships; a bank directory plugs in behind the same interface.
package directory

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"cpcaisse/internal/auth/models"
	"cpcaisse/pkg/platform/sentinel"
)

// ErrInvalidCredentials is returned for unknown agents and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

var seededAgents = []models.Agent{
	{Matricule: "ADMIN-001", Nom: "Admin DSI", Role: "ADMIN"},
	{Matricule: "CP-001", Nom: "Mme GHARBI", Role: "CP", Region: "Grand Tunis"},
	{Matricule: "DIR-056", Nom: "M. BEN AMOR", Role: "DIRECTEUR", Agence: "056", Region: "Grand Tunis"},
	{Matricule: "SUP-056", Nom: "M. CHAABANE", Role: "SUPERVISEUR", Agence: "056", Region: "Grand Tunis"},
	{Matricule: "CAI-001", Nom: "M. BEN SALAH", Role: "CAISSIER", Agence: "056", Region: "Grand Tunis"},
}

// DevDirectory knows the five seeded agents and admits any other matricule
// as a cashier of agency 056. With a shared password configured every login
// is checked against its bcrypt hash; without one any non-empty password passes.
type DevDirectory struct {
	agents       map[string]models.Agent
	passwordHash []byte
}

func NewDevDirectory(sharedPassword string) (*DevDirectory, error) {
	d := &DevDirectory{agents: make(map[string]models.Agent, len(seededAgents))}
	for _, a := range seededAgents {
		d.agents[a.Matricule] = a
	}
	if sharedPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(sharedPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash development password: %w", err)
		}
		d.passwordHash = hash
	}
	return d, nil
}

func (d *DevDirectory) Authenticate(_ context.Context, matricule, password string) (*models.Agent, error) {
	if matricule == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if d.passwordHash != nil {
		err := bcrypt.CompareHashAndPassword(d.passwordHash, []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, fmt.Errorf("verify password: %w: %w", sentinel.ErrUnavailable, err)
		}
	}
	if agent, ok := d.agents[matricule]; ok {
		return &agent, nil
	}
	return &models.Agent{
		Matricule: matricule,
		Nom:       matricule,
		Role:      "CAISSIER",
		Agence:    "056",
		Region:    "Grand Tunis",
	}, nil
}
