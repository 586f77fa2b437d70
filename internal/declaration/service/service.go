// Package service runs the declaration use cases: submission, review
// transitions and scoped reads.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AgencyDirectory,AuditRecorder,Dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cpcaisse/internal/access"
	auditmodels "cpcaisse/internal/audit/models"
	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/platform/metrics"
	"cpcaisse/internal/platform/tracing"
	refmodels "cpcaisse/internal/referential/models"
	"cpcaisse/internal/sideeffect"
	id "cpcaisse/pkg/domain"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/requestcontext"
	"cpcaisse/pkg/validation"
)

var tracer = tracing.Tracer("cpcaisse/declaration")

// Store persists declarations. Create, FindForUpdate and UpdateStatus need an
// ambient transaction.
type Store interface {
	Create(ctx context.Context, d *models.Declaration) error
	FindByID(ctx context.Context, declID id.DeclarationID) (*models.Declaration, error)
	FindForUpdate(ctx context.Context, declID id.DeclarationID) (*models.Declaration, error)
	UpdateStatus(ctx context.Context, d *models.Declaration) error
	List(ctx context.Context, filter models.ListFilter) ([]models.Summary, error)
	Count(ctx context.Context, filter models.ListFilter) (int, error)
}

// AgencyDirectory resolves active agencies from the reference data.
type AgencyDirectory interface {
	ActiveAgency(ctx context.Context, code string) (*refmodels.Agency, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, event auditmodels.Event) error
}

// Dispatcher hands committed facts to the side-effect workers. It reports
// whether the event was queued.
type Dispatcher interface {
	Dispatch(ctx context.Context, event sideeffect.Event) bool
}

// Service implements the declaration lifecycle.
type Service struct {
	store      Store
	agencies   AgencyDirectory
	audit      AuditRecorder
	dispatcher Dispatcher
	tx         txcontext.Runner
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock sets the clock read once a declaration's row lock is held.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store Store, agencies AgencyDirectory, audit AuditRecorder, dispatcher Dispatcher, tx txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:      store,
		agencies:   agencies,
		audit:      audit,
		dispatcher: dispatcher,
		tx:         tx,
		logger:     slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notification reports what the creation notice was addressed to.
type Notification struct {
	Sent       bool
	Recipients []string
}

// CreateResult is the committed declaration plus its notification outcome.
type CreateResult struct {
	Declaration  *models.Declaration
	Notification Notification
}

// Create validates a submission, stores it with its CREATION audit event in
// one transaction, then dispatches the post-commit side effects.
func (s *Service) Create(ctx context.Context, identity access.Identity, req *models.CreateRequest) (result *CreateResult, err error) {
	ctx, span := tracing.Start(ctx, tracer, "declaration.create", "matricule", identity.Matricule)
	defer func() { tracing.End(span, err) }()

	if !identity.Role.IsKnown() {
		return nil, dErrors.NewRule(dErrors.CodeForbidden, "ROLE_INSUFFICIENT", "Droits insuffisants pour cette action.")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	dateConstat, err := validation.ParseISODate(req.Ecart.DateConstat)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "date_constat invalide.")
	}
	if dateConstat.After(now) {
		return nil, dErrors.NewRule(dErrors.CodeBusinessRule, "DATE_FUTURE", "La date de constat ne peut pas être dans le futur.")
	}

	agency, err := s.agencies.ActiveAgency(ctx, req.Agence.Code)
	if err != nil {
		return nil, err
	}
	if identity.Role == access.RoleCaissier && identity.Agence != agency.Code {
		return nil, dErrors.NewRule(dErrors.CodeBusinessRule, "AGENCE_MISMATCH", "Un caissier ne peut déclarer que pour sa propre agence.")
	}

	decl := newDeclaration(req, identity, agency, dateConstat, now, requestcontext.ClientIP(ctx))

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, decl); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "Référence "+decl.Ref+" déjà utilisée.")
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to create declaration")
		}
		declID := decl.ID
		return s.audit.Record(ctx, auditmodels.Event{
			DeclarationID:  &declID,
			DeclarationRef: decl.Ref,
			ActorMatricule: identity.Matricule,
			ActorRole:      string(identity.Role),
			Action:         auditmodels.ActionCreation,
			NewStatus:      string(models.StatusSoumis),
			Details: map[string]any{
				"ref":    decl.Ref,
				"niveau": decl.Niveau,
			},
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "declaration creation failed",
			"error", err,
			"agence", decl.AgenceCode,
			"matricule", identity.Matricule,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	s.metrics.IncrementDeclarationsCreated(decl.Niveau)
	s.logger.InfoContext(ctx, "declaration created",
		"id", decl.ID.String(),
		"ref", decl.Ref,
		"niveau", decl.Niveau,
		"agence", decl.AgenceCode,
		"matricule", identity.Matricule,
		"request_id", requestcontext.RequestID(ctx),
	)

	recipients := models.Recipients{
		AgenceNom: agency.Nom,
		Region:    agency.Region,
		CPEmail:   agency.CPEmail,
		DirEmail:  agency.DirEmail,
	}
	queued := s.dispatch(ctx, sideeffect.KindDeclarationCreated, decl, recipients)
	if decl.Niveau == models.MaxLevel {
		s.dispatch(ctx, sideeffect.KindSeverityFourAlert, decl, recipients)
	}
	if decl.Recidive {
		s.dispatch(ctx, sideeffect.KindRecurrenceAlert, decl, recipients)
	}

	addresses := recipients.Addresses()
	return &CreateResult{
		Declaration: decl,
		Notification: Notification{
			Sent:       queued && len(addresses) > 0,
			Recipients: addresses,
		},
	}, nil
}

func newDeclaration(req *models.CreateRequest, identity access.Identity, agency *refmodels.Agency, dateConstat, now time.Time, ip string) *models.Declaration {
	declID := id.NewDeclarationID()
	ref := req.RefClient
	if ref == "" {
		ref = models.NewReference(now, declID)
	}

	fonction := req.Caissier.Fonction
	if fonction == "Autre" && req.Caissier.FonctionAutre != "" {
		fonction = req.Caissier.FonctionAutre
	}
	typeCaisse := req.Ecart.TypeCaisse
	if strings.EqualFold(typeCaisse, "Autre") && req.Ecart.CaisseAutre != "" {
		typeCaisse = req.Ecart.CaisseAutre
	}

	d := &models.Declaration{
		ID:         declID,
		Ref:        ref,
		Statut:     models.StatusSoumis,
		Niveau:     models.ResolveLevel(*req.Niveau, *req.Ecart.MontantDT, req.IsRecurrence()),
		AgenceCode: agency.Code,
		AgenceNom:  agency.Nom,
		Caissier: models.Caissier{
			Matricule: req.Caissier.Matricule,
			Nom:       req.Caissier.Nom,
			Grade:     req.Caissier.Grade,
			Fonction:  fonction,
		},
		DateConstat:  dateConstat,
		HeureConstat: req.Ecart.HeureConstat,
		HeureArrete:  req.Ecart.HeureArrete,
		MontantDT:    *req.Ecart.MontantDT,
		MontantMM:    req.MontantMM(),
		Nature:       models.Nature(req.Ecart.Nature),
		TypeCaisse:   typeCaisse,

		DeclarationCaissier:     req.Circonstances.DeclarationCaissier,
		ObservationsSuperviseur: req.Circonstances.ObservationsSup,
		Causes:                  req.Circonstances.Causes,
		Mesures:                 []string{},

		Recidive:           req.IsRecurrence(),
		DeclarantMatricule: identity.Matricule,
		DeclarantRole:      string(identity.Role),
		IPSoumission:       ip,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Mesures != nil {
		d.Mesures = req.Mesures.Actions
		d.MesuresAutres = req.Mesures.Autres
	}
	if d.Recidive && req.Recidive.NbEcarts != nil {
		d.NbEcartsRecidive = *req.Recidive.NbEcarts
	}
	return d
}

// Transition applies a status change and/or case annotations under a row
// lock. The status moves only along the state machine; annotations merge
// field by field and never clear a stored value.
func (s *Service) Transition(ctx context.Context, identity access.Identity, declID id.DeclarationID, req *models.TransitionRequest) (updated *models.Declaration, err error) {
	ctx, span := tracing.Start(ctx, tracer, "declaration.transition", "declaration_id", declID.String(), "statut", req.Statut)
	defer func() { tracing.End(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	annotations := req.CaseProcessing()
	target, hasTarget := models.ParseStatus(req.Statut)
	if !hasTarget && annotations.IsEmpty() {
		return nil, dErrors.NewRule(dErrors.CodeEmptyUpdate, "EMPTY_UPDATE", "Aucune modification fournie.")
	}

	var prior models.Status
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.FindForUpdate(ctx, declID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return notFound()
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to load declaration")
		}
		if !access.InScope(identity, current.AgenceCode) {
			return notFound()
		}

		// Stamped under the lock so timestamps follow commit order.
		prior = current.Statut
		now := s.clock().UTC()
		if hasTarget {
			if !prior.CanTransitionTo(target) {
				return illegalTransition(prior, target)
			}
			current.Statut = target
			current.StatutUpdatedAt = &now
			current.StatutUpdatedBy = identity.Matricule
		}
		mergeCaseProcessing(&current.CPCentral, annotations)
		current.UpdatedAt = now

		if err := s.store.UpdateStatus(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to update declaration")
		}

		action := auditmodels.ActionModification
		if hasTarget {
			action = auditmodels.ActionChangementStatut
		}
		auditID := current.ID
		if err := s.audit.Record(ctx, auditmodels.Event{
			DeclarationID:  &auditID,
			DeclarationRef: current.Ref,
			ActorMatricule: identity.Matricule,
			ActorRole:      string(identity.Role),
			Action:         action,
			PriorStatus:    string(prior),
			NewStatus:      string(current.Statut),
			Timestamp:      now,
			Details: map[string]any{
				"cp_central": caseProcessingDetails(annotations),
			},
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIllegalTransition) {
			s.metrics.IncrementTransitionsRefused()
		}
		return nil, err
	}

	if hasTarget {
		s.metrics.IncrementStatusTransitions(string(updated.Statut))
	}
	s.logger.InfoContext(ctx, "declaration updated",
		"id", declID.String(),
		"prior_statut", string(prior),
		"statut", string(updated.Statut),
		"matricule", identity.Matricule,
		"request_id", requestcontext.RequestID(ctx),
	)

	if hasTarget && updated.Statut == models.StatusValide {
		recipients, err := s.recipients(ctx, updated.AgenceCode)
		if err != nil {
			s.logger.WarnContext(ctx, "validation notice skipped: agency lookup failed",
				"error", err,
				"agence", updated.AgenceCode,
				"request_id", requestcontext.RequestID(ctx),
			)
		} else {
			s.dispatch(ctx, sideeffect.KindDeclarationValidated, updated, recipients)
		}
	}
	return updated, nil
}

func illegalTransition(current, attempted models.Status) error {
	allowed := current.AllowedTargets()
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	possible := strings.Join(names, ", ")
	if possible == "" {
		possible = "aucune"
	}
	err := dErrors.NewRule(dErrors.CodeIllegalTransition, "STATUT_INCOMPATIBLE",
		"Transition "+string(current)+" → "+string(attempted)+" non autorisée. Transitions possibles : "+possible+".")
	return dErrors.WithDetails(err, map[string]any{
		"current":   string(current),
		"attempted": string(attempted),
		"allowed":   names,
	})
}

func mergeCaseProcessing(dst *models.CaseProcessing, src models.CaseProcessing) {
	if src.TraitePar != "" {
		dst.TraitePar = src.TraitePar
	}
	if src.NDossier != "" {
		dst.NDossier = src.NDossier
	}
	if src.Commentaire != "" {
		dst.Commentaire = src.Commentaire
	}
}

func caseProcessingDetails(c models.CaseProcessing) map[string]string {
	out := map[string]string{}
	if c.TraitePar != "" {
		out["traite_par"] = c.TraitePar
	}
	if c.NDossier != "" {
		out["n_dossier"] = c.NDossier
	}
	if c.Commentaire != "" {
		out["commentaire"] = c.Commentaire
	}
	return out
}

// List returns one page of summaries within the caller's agency scope.
func (s *Service) List(ctx context.Context, identity access.Identity, filter models.ListFilter) (*models.Page, error) {
	filter.Agence = access.EffectiveAgencyFilter(identity, filter.Agence)
	filter.Sort = models.ParseSort(string(filter.Sort))
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)

	var (
		items []models.Summary
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list declarations")
	}
	if items == nil {
		items = []models.Summary{}
	}
	return &models.Page{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Get returns the full declaration when identity may read it.
func (s *Service) Get(ctx context.Context, identity access.Identity, declID id.DeclarationID) (*models.Declaration, error) {
	d, err := s.store.FindByID(ctx, declID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, notFound()
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load declaration")
	}
	if !access.CanRead(identity, d.DeclarantMatricule, d.AgenceCode) {
		s.logger.WarnContext(ctx, "declaration read denied",
			"id", declID.String(),
			"matricule", identity.Matricule,
			"role", string(identity.Role),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "Accès non autorisé à cette déclaration.")
	}
	return d, nil
}

// CheckReadable fails exactly as Get would.
func (s *Service) CheckReadable(ctx context.Context, identity access.Identity, declID id.DeclarationID) error {
	_, err := s.Get(ctx, identity, declID)
	return err
}

// ArchivedPDF is a readable archive file.
type ArchivedPDF struct {
	Path     string
	FileName string
}

// PDF locates the archived document of a readable declaration.
func (s *Service) PDF(ctx context.Context, identity access.Identity, declID id.DeclarationID) (*ArchivedPDF, error) {
	d, err := s.Get(ctx, identity, declID)
	if err != nil {
		return nil, err
	}
	if d.PDFPath == "" {
		return nil, dErrors.NewRule(dErrors.CodeNotFound, "PDF_NOT_FOUND", "PDF non encore généré.")
	}
	if _, err := os.Stat(d.PDFPath); err != nil {
		s.logger.WarnContext(ctx, "archived pdf missing on disk",
			"id", declID.String(),
			"path", d.PDFPath,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, &dErrors.Error{
			Code:    dErrors.CodeNotFound,
			Reason:  "PDF_FILE_MISSING",
			Message: "Fichier PDF introuvable sur le serveur.",
			Err:     sentinel.ErrFileMissing,
		}
	}
	return &ArchivedPDF{Path: d.PDFPath, FileName: d.Ref + ".pdf"}, nil
}

func (s *Service) recipients(ctx context.Context, code string) (models.Recipients, error) {
	agency, err := s.agencies.ActiveAgency(ctx, code)
	if err != nil {
		return models.Recipients{}, err
	}
	return models.Recipients{
		AgenceNom: agency.Nom,
		Region:    agency.Region,
		CPEmail:   agency.CPEmail,
		DirEmail:  agency.DirEmail,
	}, nil
}

func (s *Service) dispatch(ctx context.Context, kind sideeffect.Kind, d *models.Declaration, recipients models.Recipients) bool {
	ev := sideeffect.NewEvent(kind, d, recipients, requestcontext.Now(ctx), requestcontext.RequestID(ctx))
	if s.dispatcher.Dispatch(ctx, ev) {
		return true
	}
	s.logger.WarnContext(ctx, "side effect not queued",
		"kind", string(kind),
		"id", d.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return false
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "Déclaration introuvable.")
}
