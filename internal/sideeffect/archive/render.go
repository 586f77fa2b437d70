package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"cpcaisse/internal/declaration/models"
)

var levelLabels = map[int]string{
	1: "N1 — Faible",
	2: "N2 — Modéré",
	3: "N3 — Élevé",
	4: "N4 — Critique",
}

// levelColors are the badge text colours, by level.
var levelColors = map[int][3]int{
	1: {27, 94, 32},
	2: {245, 127, 23},
	3: {230, 81, 0},
	4: {198, 40, 40},
}

const (
	pageWidth   = 180.0
	columnWidth = pageWidth / 3
	fieldHeight = 6.0
)

type field struct {
	label string
	value string
}

// Render lays out the frozen declaration form as an A4 PDF.
func Render(d *models.Declaration, region string, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetY(6)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 4, tr("BQ-CP-CAI-001 — "+d.Ref+" — CONFIDENTIEL"), "", 1, "C", false, 0, "")
		pdf.SetY(15)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(pageWidth/2, 4, tr("Direction du Contrôle Permanent — Conservation : 10 ans"), "", 0, "L", false, 0, "")
		pdf.CellFormat(pageWidth/2, 4, fmt.Sprintf("Page %d / {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	banner(pdf, tr, d, generatedAt)

	section(pdf, tr, "1 — Identification de l'agence", []field{
		{"Code agence", d.AgenceCode},
		{"Région", region},
		{"Date du constat", formatDate(d.DateConstat)},
	})
	section(pdf, tr, "2 — Identité du caissier", []field{
		{"Nom & Prénom", d.Caissier.Nom},
		{"Matricule", d.Caissier.Matricule},
		{"Fonction", d.Caissier.Fonction},
	})
	section(pdf, tr, "3 — Écart constaté", []field{
		{"Montant écart", models.FormatAmount(d.MontantDT, d.MontantMM)},
		{"Nature", string(d.Nature)},
		{"Type caisse", d.TypeCaisse},
		{"Heure constat", d.HeureConstat},
		{"Heure arrêté", d.HeureArrete},
		{"Récidive", recurrence(d)},
	})
	textSection(pdf, tr, "4 — Déclaration du caissier", d.DeclarationCaissier)
	textSection(pdf, tr, "5 — Observations du superviseur", d.ObservationsSuperviseur)
	signatures(pdf, tr, d.Caissier.Nom)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(156, 163, 175)
	pdf.CellFormat(0, 4, tr("3 exemplaires obligatoires : Agence (1) · Contrôle Permanent (2) · Caissier (3) · Conservation : 10 ans · CONFIDENTIEL"), "T", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf %s: %w", d.Ref, err)
	}
	return buf.Bytes(), nil
}

func banner(pdf *fpdf.Fpdf, tr func(string) string, d *models.Declaration, generatedAt time.Time) {
	pdf.SetFillColor(13, 27, 42)
	pdf.Rect(15, pdf.GetY(), pageWidth, 18, "F")
	pdf.SetXY(19, pdf.GetY()+3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(120, 6, tr("DÉCLARATION DE DIFFÉRENCE DE CAISSE"), "", 0, "L", false, 0, "")

	label, ok := levelLabels[d.Niveau]
	if !ok {
		label = "—"
	}
	c := levelColors[d.Niveau]
	pdf.SetFillColor(255, 255, 255)
	pdf.SetTextColor(c[0], c[1], c[2])
	pdf.CellFormat(50, 6, tr(label), "", 1, "C", true, 0, "")

	pdf.SetX(19)
	pdf.SetFont("Courier", "", 8)
	pdf.SetTextColor(0, 180, 216)
	meta := fmt.Sprintf("Réf : %s · BQ-CP-CAI-001 Rév.03 — 2025 · Généré le %s", d.Ref, generatedAt.Format("02/01/2006 15:04"))
	pdf.CellFormat(0, 5, tr(meta), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFillColor(31, 41, 55)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(pageWidth, 7, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(2)
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string, fields []field) {
	sectionTitle(pdf, tr, title)
	for i, f := range fields {
		x := 15 + float64(i%3)*columnWidth
		if i%3 == 0 && i > 0 {
			pdf.Ln(2 * fieldHeight)
		}
		y := pdf.GetY()
		pdf.SetXY(x, y)
		pdf.SetFont("Helvetica", "B", 7)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(columnWidth-4, fieldHeight/2+1, tr(f.label), "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(17, 24, 39)
		pdf.CellFormat(columnWidth-4, fieldHeight, tr(orDash(f.value)), "B", 0, "L", false, 0, "")
		pdf.SetY(y)
	}
	pdf.Ln(2*fieldHeight + 4)
}

func textSection(pdf *fpdf.Fpdf, tr func(string) string, title, text string) {
	sectionTitle(pdf, tr, title)
	pdf.SetFillColor(249, 250, 251)
	pdf.SetTextColor(17, 17, 17)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(pageWidth, 5, tr(orDash(text)), "1", "L", true)
	pdf.Ln(4)
}

func signatures(pdf *fpdf.Fpdf, tr func(string) string, caissier string) {
	sectionTitle(pdf, tr, "6 — Signatures")
	boxes := []field{
		{"Le Caissier", orDash(caissier)},
		{"Le Superviseur", ""},
		{"Le Directeur d'Agence", ""},
	}
	y := pdf.GetY()
	for i, b := range boxes {
		x := 15 + float64(i)*columnWidth
		pdf.Rect(x, y, columnWidth-4, 28, "D")
		pdf.SetXY(x, y+2)
		pdf.SetFont("Helvetica", "B", 7)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(columnWidth-4, 4, tr(b.label), "", 2, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(17, 24, 39)
		pdf.CellFormat(columnWidth-4, 4, tr(b.value), "", 0, "C", false, 0, "")
		pdf.Line(x+6, y+24, x+columnWidth-10, y+24)
	}
	pdf.SetY(y + 30)
}

func recurrence(d *models.Declaration) string {
	if !d.Recidive {
		return "NON"
	}
	if d.NbEcartsRecidive > 0 {
		return fmt.Sprintf("OUI — %d écart(s)", d.NbEcartsRecidive)
	}
	return "OUI — N/A écart(s)"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
