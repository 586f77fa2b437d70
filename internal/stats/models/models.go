// Package models holds the dashboard aggregates served to CP and directors.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"cpcaisse/pkg/validation"
)

// EvolutionDays is the width of the daily evolution window, today included.
const EvolutionDays = 7

// Query selects the reporting month. Agence is empty for every agency.
type Query struct {
	Annee  int `json:"annee" validate:"min=2000,max=2100"`
	Mois   int `json:"mois" validate:"min=1,max=12"`
	Agence string
}

func (q *Query) Validate() error {
	return validation.Validate(q)
}

// MonthStart is the first day of the queried month.
func (q Query) MonthStart() time.Time {
	return time.Date(q.Annee, time.Month(q.Mois), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd is the first day of the following month, exclusive.
func (q Query) MonthEnd() time.Time {
	return q.MonthStart().AddDate(0, 1, 0)
}

// YearStart is the first day of the queried year.
func (q Query) YearStart() time.Time {
	return time.Date(q.Annee, time.January, 1, 0, 0, 0, 0, time.UTC)
}

type Totals struct {
	Total        int
	N4           int
	Recidives    int
	Clotures     int
	EnCours      int
	MontantTotal decimal.Decimal
	MontantMoyen decimal.Decimal
}

type LevelBucket struct {
	Niveau  int
	Nb      int
	Montant decimal.Decimal
}

type StatusBucket struct {
	Statut string
	Nb     int
}

type RegionBucket struct {
	Region  string
	Nb      int
	Montant decimal.Decimal
}

type DayBucket struct {
	Jour      time.Time
	Manquants int
	Excedents int
}

// Dashboard is the whole statistics payload for one month.
type Dashboard struct {
	Annee     int
	Mois      int
	Totaux    Totals
	ParNiveau []LevelBucket
	ParStatut []StatusBucket
	ParRegion []RegionBucket
	Evolution []DayBucket
}
