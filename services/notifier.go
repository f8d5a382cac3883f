package services

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"github.com/komunitas/platform/events"
	"github.com/komunitas/platform/models"
	"github.com/rs/zerolog"
)

type Pusher interface {
	SendToUser(userID uuid.UUID, payload interface{})
}

type Mailer interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, htmlContent string) error
}

type NotifierStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetRegistration(ctx context.Context, id uuid.UUID) (*models.ActivityRegistration, error)
}

// Notifier fans status events out to the owner's open websockets and inbox,
// and issues receipts for paid registrations.
type Notifier struct {
	store    NotifierStore
	pusher   Pusher
	mailer   Mailer
	receipts *ReceiptService
	log      zerolog.Logger
}

func NewNotifier(store NotifierStore, pusher Pusher, mailer Mailer, receipts *ReceiptService, log zerolog.Logger) *Notifier {
	return &Notifier{store: store, pusher: pusher, mailer: mailer, receipts: receipts, log: log.With().Str("service", "notifier").Logger()}
}

// Handle is an events.Handler. Delivery failures are logged; only failing to
// load the record is returned.
func (n *Notifier) Handle(ctx context.Context, evt events.StatusChanged) error {
	if n.pusher != nil {
		n.pusher.SendToUser(evt.UserID, evt)
	}

	switch evt.Type {
	case events.OrderStatusChanged:
		order, err := n.store.GetOrder(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", evt.ID, err)
		}
		subject, body := orderEmail(order)
		n.email(ctx, &order.User, subject, body)

	case events.RegistrationStatusChanged:
		reg, err := n.store.GetRegistration(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("failed to load registration %s: %w", evt.ID, err)
		}
		if reg.Status == models.RegistrationPaid && reg.ReceiptURL == nil && n.receipts != nil {
			if _, err := n.receipts.Generate(ctx, reg); err != nil {
				n.log.Error().Err(err).Str("registration_id", reg.ID.String()).Msg("failed to issue receipt")
			}
		}
		subject, body := registrationEmail(reg)
		n.email(ctx, &reg.User, subject, body)

	default:
		n.log.Warn().Str("type", string(evt.Type)).Msg("unknown event type")
	}
	return nil
}

func (n *Notifier) email(ctx context.Context, user *models.User, subject, body string) {
	if n.mailer == nil || user.Email == nil || subject == "" {
		return
	}
	if err := n.mailer.SendEmail(ctx, *user.Email, user.FullName, subject, body); err != nil {
		n.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to send status email")
	}
}

func orderEmail(o *models.Order) (string, string) {
	item := html.EscapeString(o.Merchandise.Name)
	switch o.Status {
	case models.OrderPaid:
		return "Pembayaran pesanan diterima",
			fmt.Sprintf("<p>Halo %s,</p><p>Pembayaran untuk pesanan <b>%s</b> (%d x %s) sebesar %s sudah kami terima.</p>",
				html.EscapeString(o.User.FullName), o.PaymentReference, o.Quantity, item, Rupiah(o.Total))
	case models.OrderShipping:
		resi := "-"
		if o.TrackingNumber != nil {
			resi = html.EscapeString(*o.TrackingNumber)
		}
		courier := ""
		if o.Courier != nil {
			courier = html.EscapeString(*o.Courier)
		}
		return "Pesanan Anda sedang dikirim",
			fmt.Sprintf("<p>Halo %s,</p><p>Pesanan <b>%s</b> sudah dikirim melalui %s dengan nomor resi <b>%s</b>.</p>",
				html.EscapeString(o.User.FullName), o.PaymentReference, courier, resi)
	case models.OrderCompleted:
		return "Pesanan selesai",
			fmt.Sprintf("<p>Halo %s,</p><p>Pesanan <b>%s</b> telah selesai. Terima kasih!</p>", html.EscapeString(o.User.FullName), o.PaymentReference)
	case models.OrderCancelled:
		return "Pesanan dibatalkan",
			fmt.Sprintf("<p>Halo %s,</p><p>Pesanan <b>%s</b> dibatalkan.</p>", html.EscapeString(o.User.FullName), o.PaymentReference)
	}
	return "", ""
}

func registrationEmail(r *models.ActivityRegistration) (string, string) {
	title := html.EscapeString(r.Activity.Title)
	switch r.Status {
	case models.RegistrationPaid:
		receipt := ""
		if r.ReceiptURL != nil {
			receipt = fmt.Sprintf(`<p><a href="%s">Unduh bukti pendaftaran</a></p>`, html.EscapeString(*r.ReceiptURL))
		}
		return "Pendaftaran " + r.Activity.Title + " berhasil",
			fmt.Sprintf("<p>Halo %s,</p><p>Pendaftaran Anda untuk <b>%s</b> sudah terkonfirmasi. Total pembayaran %s.</p>%s",
				html.EscapeString(r.User.FullName), title, Rupiah(r.TotalPrice), receipt)
	case models.RegistrationFailed:
		return "Pembayaran pendaftaran gagal",
			fmt.Sprintf("<p>Halo %s,</p><p>Pembayaran pendaftaran <b>%s</b> gagal. Silakan daftar ulang.</p>", html.EscapeString(r.User.FullName), title)
	case models.RegistrationCancelled:
		return "Pendaftaran dibatalkan",
			fmt.Sprintf("<p>Halo %s,</p><p>Pendaftaran Anda untuk <b>%s</b> dibatalkan.</p>", html.EscapeString(r.User.FullName), title)
	}
	return "", ""
}
