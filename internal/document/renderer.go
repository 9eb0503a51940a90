package document

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/lancerkit/esign/model"
)

// RenderInput is everything the renderer needs. The renderer is a pure
// function of this struct: the embedded timestamps and IP are inputs, never
// sampled inside, so identical inputs produce byte-identical PDFs.
type RenderInput struct {
	ContractNumber string
	Organization   model.Organization
	Signer         model.Party
	Reviewer       *model.Party
	Terms          model.Terms

	// GeneratedAt is stamped into the PDF metadata. For the unsigned
	// baseline this is the contract creation time; for the signed
	// rendition it is the signing time.
	GeneratedAt time.Time

	// Signature, when present, adds the visual signature block.
	Signature *SignatureBlock
}

// SignatureBlock carries the captured signature for the signed rendition.
type SignatureBlock struct {
	ImagePNG    []byte
	SignerName  string
	SignerTitle string
	SignedAt    time.Time
	SignerIP    string
}

// Renderer renders subscription agreements to PDF.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// Render produces the agreement PDF. Rendering is bounded, synchronous and
// in-memory; it never touches the network or the clock.
func (r *Renderer) Render(in RenderInput) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Subscription Agreement %s", in.ContractNumber), true)
	pdf.SetAuthor(in.Organization.Name, true)
	pdf.SetCreationDate(in.GeneratedAt.UTC())
	pdf.SetModificationDate(in.GeneratedAt.UTC())
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Header.
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Subscription Agreement", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract No. %s", in.ContractNumber), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Parties.
	r.heading(pdf, "Parties")
	pdf.MultiCell(0, 5, fmt.Sprintf(
		"%s (reg. no. %s)\n%s",
		in.Organization.Name, in.Organization.RegistrationNumber, in.Organization.Address,
	), "", "L", false)
	pdf.Ln(2)
	pdf.MultiCell(0, 5, partyLine("Subscriber", in.Signer), "", "L", false)
	if in.Reviewer != nil && in.Reviewer.Email != "" {
		pdf.MultiCell(0, 5, partyLine("Reviewer", *in.Reviewer), "", "L", false)
	}
	pdf.Ln(4)

	// Commercial terms.
	r.heading(pdf, "Commercial Terms")
	r.termRow(pdf, "Plan", in.Terms.Tier)
	r.termRow(pdf, "Annual price", formatAmount(in.Terms.AnnualPrice, in.Terms.Currency))
	r.termRow(pdf, "Billing interval", in.Terms.BillingInterval)
	r.termRow(pdf, "VAT rate", fmt.Sprintf("%.1f%%", in.Terms.VATRate))
	r.termRow(pdf, "Start date", in.Terms.StartDate.UTC().Format("2 January 2006"))
	r.termRow(pdf, "Duration", fmt.Sprintf("%d months", in.Terms.DurationMonths))
	pdf.Ln(4)

	// Custom terms, in stable key order.
	if len(in.Terms.CustomTerms) > 0 {
		r.heading(pdf, "Additional Terms")
		keys := make([]string, 0, len(in.Terms.CustomTerms))
		for k := range in.Terms.CustomTerms {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(0, 6, k, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, in.Terms.CustomTerms[k], "", "L", false)
			pdf.Ln(2)
		}
		pdf.Ln(2)
	}

	// Signature block.
	r.heading(pdf, "Signature")
	if in.Signature == nil {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, "This agreement has not been signed yet.", "", "L", false)
	} else if err := r.signatureBlock(pdf, in.Signature); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("document: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// signatureBlock draws the raster signature and the attribution lines that
// make the signature legally attributable: name, title, timestamp, IP.
func (r *Renderer) signatureBlock(pdf *fpdf.Fpdf, sig *SignatureBlock) error {
	if len(sig.ImagePNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(sig.ImagePNG))
		if pdf.Err() {
			return fmt.Errorf("document: embed signature image: %w", pdf.Error())
		}
		pdf.ImageOptions("signature", 20, pdf.GetY(), 60, 0, true, opts, 0, "")
		pdf.Ln(2)
	}

	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(20, pdf.GetY(), 110, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	name := sig.SignerName
	if sig.SignerTitle != "" {
		name = fmt.Sprintf("%s, %s", sig.SignerName, sig.SignerTitle)
	}
	pdf.CellFormat(0, 6, name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Signed electronically on %s",
		sig.SignedAt.UTC().Format("2 January 2006 15:04:05 MST")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("IP address: %s", sig.SignerIP), "", 1, "L", false, 0, "")
	return nil
}

func (r *Renderer) heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func (r *Renderer) termRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(50, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func partyLine(role string, p model.Party) string {
	line := fmt.Sprintf("%s: %s", role, p.Name)
	if p.Title != "" {
		line += ", " + p.Title
	}
	return line + " <" + p.Email + ">"
}

// formatAmount renders a minor-unit amount as a major-unit string,
// e.g. 1299900 EUR -> "12,999.00 EUR".
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	major := minor / 100
	cents := minor % 100
	return fmt.Sprintf("%s%s.%02d %s", sign, groupThousands(major), cents, currency)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
