package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"github.com/rs/zerolog"
)

//go:embed templates/receipt.html
var templateFS embed.FS

var receiptTemplate = template.Must(template.ParseFS(templateFS, "templates/receipt.html"))

var jakarta = loadZone("Asia/Jakarta")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

type ReceiptUploader interface {
	UploadRaw(ctx context.Context, data []byte, folder, publicID string) (string, error)
}

type ReceiptStore interface {
	SetRegistrationReceipt(ctx context.Context, id uuid.UUID, url string) error
}

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

type ReceiptService struct {
	store    ReceiptStore
	uploader ReceiptUploader
	render   PDFRenderer
	log      zerolog.Logger
}

func NewReceiptService(store ReceiptStore, uploader ReceiptUploader, render PDFRenderer, log zerolog.Logger) *ReceiptService {
	if render == nil {
		render = ChromePDF
	}
	return &ReceiptService{store: store, uploader: uploader, render: render, log: log.With().Str("service", "receipt").Logger()}
}

type receiptLine struct {
	Label  string
	Amount string
}

type receiptData struct {
	Reference       string
	PaidAt          string
	ParticipantName string
	Phone           string
	ActivityTitle   string
	ActivityDates   string
	Location        string
	Lines           []receiptLine
	Total           string
}

// Generate renders, uploads and records the receipt of a paid registration.
// The registration must have its User and Activity loaded.
func (s *ReceiptService) Generate(ctx context.Context, reg *models.ActivityRegistration) (string, error) {
	if reg.Status != models.RegistrationPaid {
		return "", fmt.Errorf("%w: receipts are only issued for paid registrations", ErrConflict)
	}

	html, err := renderReceiptHTML(reg)
	if err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}

	renderCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	pdf, err := s.render(renderCtx, html)
	if err != nil {
		return "", fmt.Errorf("failed to generate PDF: %w", err)
	}

	url, err := s.uploader.UploadRaw(ctx, pdf, "receipts", reg.PaymentReference+".pdf")
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}
	if err := s.store.SetRegistrationReceipt(ctx, reg.ID, url); err != nil {
		return "", fmt.Errorf("failed to save receipt url: %w", err)
	}
	reg.ReceiptURL = &url

	s.log.Info().Str("registration_id", reg.ID.String()).Str("url", url).Msg("receipt generated")
	return url, nil
}

func renderReceiptHTML(reg *models.ActivityRegistration) (string, error) {
	paidAt := "-"
	if reg.PaidAt != nil {
		paidAt = reg.PaidAt.In(jakarta).Format("02 Jan 2006 15:04 WIB")
	}

	lines := []receiptLine{{Label: "Biaya pendaftaran", Amount: Rupiah(reg.BaseFee)}}
	if reg.TshirtSize != "" {
		lines = append(lines, receiptLine{Label: "Kaos ukuran " + string(reg.TshirtSize), Amount: Rupiah(reg.TshirtPrice)})
	}
	if reg.NeedAccommodation && reg.RoomType != nil {
		lines = append(lines, receiptLine{Label: "Penginapan (" + string(*reg.RoomType) + ")", Amount: Rupiah(reg.AccommodationPrice)})
	}

	a := reg.Activity
	dates := a.StartDate.In(jakarta).Format("02 Jan 2006")
	if end := a.EndDate.In(jakarta).Format("02 Jan 2006"); end != dates {
		dates += " - " + end
	}

	var buf bytes.Buffer
	err := receiptTemplate.Execute(&buf, receiptData{
		Reference:       reg.PaymentReference,
		PaidAt:          paidAt,
		ParticipantName: reg.User.FullName,
		Phone:           reg.User.Phone,
		ActivityTitle:   a.Title,
		ActivityDates:   dates,
		Location:        a.Location,
		Lines:           lines,
		Total:           Rupiah(reg.TotalPrice),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Rupiah formats an amount as "Rp 1.250.000".
func Rupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "Rp " + b.String()
}

// ChromePDF prints HTML to PDF with a headless Chrome instance.
func ChromePDF(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
