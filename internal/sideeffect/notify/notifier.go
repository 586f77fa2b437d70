// Package notify mails declaration events to the permanent-control mailboxes,
// the agency director and the alert lists.
package notify

//go:generate mockgen -source=notifier.go -destination=mocks/mocks.go -package=mocks Mailer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"

	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/sideeffect"
)

type Mailer interface {
	Send(ctx context.Context, msg Mail) error
}

// Lists are the fixed alert recipients.
type Lists struct {
	AlerteN4       string
	AlerteRecidive string
	BaseURL        string
}

type Notifier struct {
	mailer Mailer
	lists  Lists
	logger *slog.Logger
}

func New(mailer Mailer, lists Lists, logger *slog.Logger) *Notifier {
	return &Notifier{mailer: mailer, lists: lists, logger: logger}
}

// Register subscribes the notifier to every event it mails.
func (n *Notifier) Register(r *sideeffect.Router) {
	r.Register(sideeffect.KindDeclarationCreated, n)
	r.Register(sideeffect.KindSeverityFourAlert, n)
	r.Register(sideeffect.KindRecurrenceAlert, n)
	r.Register(sideeffect.KindDeclarationValidated, n)
}

func (n *Notifier) Handle(ctx context.Context, event sideeffect.Event) error {
	d := event.Declaration
	if d == nil {
		return errors.New("side effect without declaration")
	}

	var mails []Mail
	switch event.Kind {
	case sideeffect.KindDeclarationCreated:
		mails = n.creationMails(d, event.Recipients)
	case sideeffect.KindSeverityFourAlert:
		mails = n.severityFourMails(d)
	case sideeffect.KindRecurrenceAlert:
		mails = n.recurrenceMails(d)
	case sideeffect.KindDeclarationValidated:
		mails = n.validatedMails(d, event.Recipients)
	default:
		return nil
	}

	var errs []error
	for _, m := range mails {
		if m.Subject == "" || len(m.To) == 0 {
			continue
		}
		if err := n.mailer.Send(ctx, m); err != nil {
			errs = append(errs, err)
			continue
		}
		n.logger.InfoContext(ctx, "mail sent",
			"kind", event.Kind,
			"ref", d.Ref,
			"to", m.To,
			"request_id", event.RequestID,
		)
	}
	return errors.Join(errs...)
}

func (n *Notifier) creationMails(d *models.Declaration, rcpt models.Recipients) []Mail {
	urgent := ""
	if d.Niveau >= 3 {
		urgent = "🔴 URGENT "
	}
	cp := n.mail(rcpt.CPEmail, cpBody,
		fmt.Sprintf("[CP] Nouvelle déclaration %s— Agence %s — Réf. %s", urgent, d.AgenceCode, d.Ref),
		newView(d, n.lists.BaseURL,
			"Nouvelle déclaration de différence de caisse reçue",
			"Une nouvelle déclaration a été soumise et nécessite votre traitement dans les meilleurs délais.",
			"Délai réglementaire de traitement : dès réception. Niveau d'alerte : "+styleFor(d.Niveau).Label+"."),
	)
	director := n.mail(rcpt.DirEmail, directorBody,
		fmt.Sprintf("[Agence %s] Déclaration de caisse soumise — Réf. %s", d.AgenceCode, d.Ref),
		newView(d, n.lists.BaseURL,
			"Déclaration de différence de caisse soumise",
			"Une déclaration de différence de caisse a été soumise dans votre agence. Elle a été transmise au Contrôle Permanent Central.",
			"Déclaration transmise conformément à la circulaire BCT en vigueur."),
	)
	return []Mail{cp, director}
}

func (n *Notifier) severityFourMails(d *models.Declaration) []Mail {
	m := n.mail(n.lists.AlerteN4, severityFourBody,
		fmt.Sprintf("🔴 ALERTE N4 — Agence %s — %s DT — %s", d.AgenceCode, strconv.FormatInt(d.MontantDT, 10), d.Ref),
		newView(d, n.lists.BaseURL,
			"🔴 ALERTE NIVEAU 4 — Écart de caisse critique",
			"Un écart de caisse de NIVEAU 4 a été détecté. Une action immédiate est requise.",
			"Ce message est généré automatiquement pour toute déclaration de niveau 4. Conservation : 10 ans."),
	)
	m.Priority = true
	return []Mail{m}
}

func (n *Notifier) recurrenceMails(d *models.Declaration) []Mail {
	return []Mail{n.mail(n.lists.AlerteRecidive, recurrenceBody,
		fmt.Sprintf("⚠ Récidive — %s — Agence %s", d.Caissier.Matricule, d.AgenceCode),
		newView(d, n.lists.BaseURL,
			"⚠ RÉCIDIVE DÉTECTÉE — Caissier en situation de récidive",
			fmt.Sprintf("Le caissier %s (%s) est en situation de récidive d'écart de caisse.", d.Caissier.Nom, d.Caissier.Matricule),
			"Signalement automatique — Procédure disciplinaire à engager selon politique RH."),
	)}
}

func (n *Notifier) validatedMails(d *models.Declaration, rcpt models.Recipients) []Mail {
	return []Mail{n.mail(rcpt.DirEmail, validatedBody,
		"✅ Déclaration validée — Réf. "+d.Ref,
		newView(d, n.lists.BaseURL,
			"✅ Déclaration validée par le Contrôle Permanent",
			"La déclaration de différence de caisse ci-dessous a été validée par la Direction du Contrôle Permanent.",
			"Conservation du document : 10 ans. Un exemplaire doit être conservé à l'agence."),
	)}
}

// mail renders one message. A render failure is logged and yields a mail with
// no subject, which Handle skips.
func (n *Notifier) mail(to string, t *template.Template, subject string, v view) Mail {
	if to == "" {
		return Mail{}
	}
	body, err := render(t, v)
	if err != nil {
		n.logger.Error("failed to render mail", "subject", subject, "error", err)
		return Mail{}
	}
	return Mail{To: []string{to}, Subject: subject, HTML: body}
}
