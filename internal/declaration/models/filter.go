package models

import (
	"time"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// SortKey is one of the closed set of listing orders.
type SortKey string

const (
	SortCreatedAsc  SortKey = "created_at"
	SortCreatedDesc SortKey = "-created_at"
	SortAmountAsc   SortKey = "montant"
	SortAmountDesc  SortKey = "-montant"
	SortLevelAsc    SortKey = "niveau"
	SortLevelDesc   SortKey = "-niveau"
)

var sortKeys = map[SortKey]struct{}{
	SortCreatedAsc: {}, SortCreatedDesc: {},
	SortAmountAsc: {}, SortAmountDesc: {},
	SortLevelAsc: {}, SortLevelDesc: {},
}

// ParseSort returns the requested order, falling back to newest first for
// anything outside the allow-list so stale clients keep working.
func ParseSort(raw string) SortKey {
	if _, ok := sortKeys[SortKey(raw)]; ok {
		return SortKey(raw)
	}
	return SortCreatedDesc
}

// Descending reports whether the order is reversed.
func (k SortKey) Descending() bool {
	return len(k) > 0 && k[0] == '-'
}

// Field names the sorted attribute: created_at, montant or niveau.
func (k SortKey) Field() string {
	if k.Descending() {
		return string(k[1:])
	}
	return string(k)
}

// ListFilter selects a page of declarations. Agence is already the effective
// filter once the caller's scope has been applied.
type ListFilter struct {
	Agence    string
	Statut    Status
	Niveau    int
	DateDebut *time.Time
	DateFin   *time.Time
	Sort      SortKey
	Page      int
	Limit     int
}

// NormalizePage clamps page to at least 1 and limit to [1, MaxPageLimit],
// defaulting limit when unset.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	limit = min(max(limit, 1), MaxPageLimit)
	return page, limit
}

// Offset is the number of rows skipped before the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches applies the filter predicates to one declaration. Used by the
// in-memory store; SQL stores translate the same predicates to WHERE clauses.
func (f ListFilter) Matches(d *Declaration) bool {
	if f.Agence != "" && d.AgenceCode != f.Agence {
		return false
	}
	if f.Statut != "" && d.Statut != f.Statut {
		return false
	}
	if f.Niveau != 0 && d.Niveau != f.Niveau {
		return false
	}
	if f.DateDebut != nil && d.DateConstat.Before(*f.DateDebut) {
		return false
	}
	if f.DateFin != nil && d.DateConstat.After(*f.DateFin) {
		return false
	}
	return true
}

// Page is one page of summaries plus the total matching count.
type Page struct {
	Items []Summary
	Total int
	Page  int
	Limit int
}
