// Package models holds the agent login types.
package models

import (
	"strings"

	dErrors "cpcaisse/pkg/domain-errors"
)

// Agent is a directory entry. Agence is empty for agents without a branch
// (CP, ADMIN); Region is empty for agents with a national scope.
type Agent struct {
	Matricule string
	Nom       string
	Role      string
	Agence    string
	Region    string
	Email     string
}

type LoginRequest struct {
	Matricule string `json:"matricule"`
	Password  string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Matricule = strings.ToUpper(strings.TrimSpace(r.Matricule))
}

func (r *LoginRequest) Validate() error {
	if r.Matricule == "" || r.Password == "" {
		return dErrors.NewRule(dErrors.CodeBadRequest, "MISSING_CREDENTIALS", "Matricule et mot de passe requis.")
	}
	return nil
}
