package document

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/lancerkit/esign/model"
)

func testInput() RenderInput {
	return RenderInput{
		ContractNumber: "2026-0042",
		Organization: model.Organization{
			ID:                 "org-1",
			Name:               "Acme Studio Oy",
			RegistrationNumber: "1234567-8",
			Address:            "Mannerheimintie 1, 00100 Helsinki",
		},
		Signer:   model.Party{Name: "Sam Signer", Email: "sam@example.com", Title: "CEO"},
		Reviewer: &model.Party{Name: "Robin Reviewer", Email: "robin@example.com"},
		Terms: model.Terms{
			Tier:            "Professional",
			AnnualPrice:     1299900,
			Currency:        "EUR",
			BillingInterval: "yearly",
			VATRate:         25.5,
			StartDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			DurationMonths:  12,
			CustomTerms: map[string]string{
				"Support":     "Response within one business day.",
				"Termination": "Either party may terminate with 90 days notice.",
			},
		},
		GeneratedAt: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
	}
}

func testSignaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	for x := 10; x < 110; x++ {
		img.Set(x, 20, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func TestRender_producesPDF(t *testing.T) {
	out, err := NewRenderer().Render(testInput())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
	if len(out) < 1000 {
		t.Errorf("output suspiciously small: %d bytes", len(out))
	}
}

func TestRender_deterministic(t *testing.T) {
	r := NewRenderer()
	in := testInput()
	a, err := r.Render(in)
	if err != nil {
		t.Fatalf("first Render() error = %v", err)
	}
	b, err := r.Render(in)
	if err != nil {
		t.Fatalf("second Render() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs must produce byte-identical PDFs")
	}
	if Digest(a) != Digest(b) {
		t.Error("digests of identical renders must match")
	}
}

func TestRender_signatureChangesBytes(t *testing.T) {
	r := NewRenderer()
	in := testInput()

	unsigned, err := r.Render(in)
	if err != nil {
		t.Fatalf("unsigned Render() error = %v", err)
	}

	in.Signature = &SignatureBlock{
		ImagePNG:    testSignaturePNG(t),
		SignerName:  "Sam Signer",
		SignerTitle: "CEO",
		SignedAt:    time.Date(2026, 3, 20, 14, 5, 0, 0, time.UTC),
		SignerIP:    "203.0.113.7",
	}
	signed, err := r.Render(in)
	if err != nil {
		t.Fatalf("signed Render() error = %v", err)
	}

	if Digest(unsigned) == Digest(signed) {
		t.Error("signing must materially change the document digest")
	}
}

func TestRender_withoutSignatureImage(t *testing.T) {
	in := testInput()
	in.Signature = &SignatureBlock{
		SignerName: "Sam Signer",
		SignedAt:   time.Date(2026, 3, 20, 14, 5, 0, 0, time.UTC),
		SignerIP:   "203.0.113.7",
	}
	if _, err := NewRenderer().Render(in); err != nil {
		t.Fatalf("Render() without raster image should still succeed, got %v", err)
	}
}

func TestDigest_knownValue(t *testing.T) {
	// SHA-256 of the empty input.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(nil); got != want {
		t.Errorf("Digest(nil) = %s, want %s", got, want)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor    int64
		currency string
		want     string
	}{
		{1299900, "EUR", "12,999.00 EUR"},
		{50, "USD", "0.50 USD"},
		{100000000, "SEK", "1,000,000.00 SEK"},
		{-12345, "EUR", "-123.45 EUR"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.minor, tt.currency); got != tt.want {
			t.Errorf("formatAmount(%d, %s) = %q, want %q", tt.minor, tt.currency, got, tt.want)
		}
	}
}
