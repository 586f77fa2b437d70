package notify

import (
	"bytes"
	"html/template"

	"cpcaisse/internal/declaration/models"
)

type levelStyle struct {
	Label string
	Color string
	Bg    string
}

var levelStyles = map[int]levelStyle{
	1: {Label: "Niveau 1", Color: "#43A047", Bg: "#E8F5E9"},
	2: {Label: "Niveau 2", Color: "#F57F17", Bg: "#FFF9C4"},
	3: {Label: "Niveau 3", Color: "#E65100", Bg: "#FFF3E0"},
	4: {Label: "Niveau 4 — CRITIQUE", Color: "#C62828", Bg: "#FFEBEE"},
}

func styleFor(niveau int) levelStyle {
	if s, ok := levelStyles[niveau]; ok {
		return s
	}
	return levelStyles[1]
}

const layoutHTML = `<!DOCTYPE html><html lang="fr"><head><meta charset="UTF-8">
<style>
  body{font-family:Arial,sans-serif;background:#F3F4F6;margin:0;padding:20px}
  .card{background:#fff;border-radius:10px;max-width:640px;margin:0 auto;overflow:hidden}
  .header{background:#0D1B2A;padding:20px 28px}
  .header-title{font-size:16px;font-weight:700;color:#fff;margin:0}
  .header-sub{font-size:11px;color:#00B4D8;margin:2px 0 0;font-family:monospace}
  .body{padding:24px 28px;font-size:13px;color:#374151;line-height:1.7}
  h2{font-size:15px;color:#0D1B2A;margin:0 0 14px}
  .field{background:#F9FAFB;border:1px solid #E5E7EB;border-radius:6px;padding:10px 14px;margin:4px 0}
  .field-label{font-size:10px;font-weight:700;color:#9CA3AF;text-transform:uppercase}
  .field-val{font-size:13px;color:#111827;font-weight:600}
  .ref{font-family:monospace;background:#EFF6FF;border:1px solid #BFDBFE;border-radius:4px;padding:8px 14px;color:#1E40AF;font-weight:700;margin:14px 0}
  .footer-section{background:#F9FAFB;border-top:1px solid #E5E7EB;padding:16px 28px;font-size:11px;color:#6B7280}
</style></head><body>
<div class="card">
  <div class="header">
    <div class="header-title">Contrôle Permanent — Réseau Agences</div>
    <div class="header-sub">Système de déclaration BQ-CP-CAI-001</div>
  </div>
  <div style="background:{{.Style.Bg}};border-left:5px solid {{.Style.Color}};padding:12px 20px;font-weight:700;color:{{.Style.Color}};font-size:13px">⚠ {{.Style.Label}} — {{.Nature}} de {{.Montant}}</div>
  <div class="body">
    <h2>{{.Titre}}</h2>
    <p>{{.Intro}}</p>
    <div class="ref">Réf : {{.Ref}}</div>
    <div class="field"><div class="field-label">Agence</div><div class="field-val">{{or .Agence "—"}}</div></div>
    <div class="field"><div class="field-label">Date constat</div><div class="field-val">{{or .DateConstat "—"}}</div></div>
    <div class="field"><div class="field-label">Caissier</div><div class="field-val">{{or .CaissierNom "—"}}</div></div>
    <div class="field"><div class="field-label">Matricule</div><div class="field-val">{{or .CaissierMatricule "—"}}</div></div>
    <div class="field"><div class="field-label">Montant</div><div class="field-val">{{.Montant}}</div></div>
    <div class="field"><div class="field-label">Type caisse</div><div class="field-val">{{or .TypeCaisse "—"}}</div></div>
    {{template "corps" .}}
  </div>
  <div class="footer-section">
    {{.Footer}}
    <br>Cet e-mail est généré automatiquement — Ne pas répondre directement.<br>
    Accès au portail CP : <a href="{{.BaseURL}}">Portail Interne</a> · DSI : dsi@banque.tn<br>
    Conservez cet e-mail — Réf. réglementaire BQ-CP-CAI-001 Rév.03 — 2025
  </div>
</div></body></html>`

var layout = template.Must(template.New("layout").Parse(layoutHTML))

func withBody(body string) *template.Template {
	return template.Must(template.Must(layout.Clone()).Parse(`{{define "corps"}}` + body + `{{end}}`))
}

var (
	cpBody = withBody(`<p><strong>Déclaration du caissier :</strong></p>
<blockquote style="border-left:3px solid #1A6FA8;margin:0;padding:8px 14px;color:#4B5563;font-style:italic">{{or .DeclarationCaissier "—"}}</blockquote>
<p style="margin-top:12px">Veuillez vous connecter au portail pour prendre en charge ce dossier.</p>`)

	directorBody = withBody(`<p>Veuillez vous assurer que toutes les mesures conservatoires ont été prises par le superviseur.</p>`)

	severityFourBody = withBody(`<p style="color:#C62828;font-weight:700">Critère N4 : montant supérieur à 1 000 DT ou récidive avérée.</p>
<p>Le dossier a été automatiquement transmis au Contrôle Permanent Central et à la Direction Générale.</p>`)

	recurrenceBody = withBody(`<p>Conformément aux procédures internes, une revue des écarts précédents et une entrevue avec les Ressources Humaines sont recommandées.</p>`)

	validatedBody = withBody(`<p>Les mesures correctives notées dans le dossier doivent être mises en œuvre dans les délais impartis.</p>`)
)

// view is the data every mail template renders. Free text from the
// submission is escaped by html/template.
type view struct {
	Titre  string
	Intro  string
	Footer string
	Style  levelStyle

	Ref                 string
	Agence              string
	DateConstat         string
	CaissierNom         string
	CaissierMatricule   string
	Montant             string
	Nature              string
	TypeCaisse          string
	DeclarationCaissier string
	BaseURL             string
}

func newView(d *models.Declaration, baseURL, titre, intro, footer string) view {
	v := view{
		Titre:               titre,
		Intro:               intro,
		Footer:              footer,
		Style:               styleFor(d.Niveau),
		Ref:                 d.Ref,
		Agence:              d.AgenceCode,
		CaissierNom:         d.Caissier.Nom,
		CaissierMatricule:   d.Caissier.Matricule,
		Montant:             models.FormatAmount(d.MontantDT, d.MontantMM),
		Nature:              string(d.Nature),
		TypeCaisse:          d.TypeCaisse,
		DeclarationCaissier: d.DeclarationCaissier,
		BaseURL:             baseURL,
	}
	if v.Nature == "" {
		v.Nature = string(models.NatureManquant)
	}
	if !d.DateConstat.IsZero() {
		v.DateConstat = d.DateConstat.Format("2006-01-02")
	}
	return v
}

func render(t *template.Template, v view) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
