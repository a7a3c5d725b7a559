package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/logging"
	"github.com/vendora/vendora-backend/internal/queue"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderStatus       = "order_status"
)

// subset of TaskQueue.
type queueService interface {
	Enqueue(taskType string, data interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type OrderEmailItem struct {
	Name           string
	Quantity       int32
	UnitPriceCents int64
}

type OrderEmail struct {
	To           string
	CustomerName string
	OrderRef     string
	Status       database.OrderStatus
	TotalCents   int64
	Currency     string
	ExpiresAt    time.Time
	Items        []OrderEmailItem
}

// Mailer renders customer emails and hands them to the worker queue.
// Enqueue failures are logged, not returned: an order is never rolled back
// because its email could not be queued.
type Mailer struct {
	queue    queueService
	subjects *texttemplate.Template
	bodies   *template.Template
}

func NewMailer(q queueService) (*Mailer, error) {
	subjects, bodies, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	return &Mailer{queue: q, subjects: subjects, bodies: bodies}, nil
}

// each .html file must define {{define "name:subject"}} and {{define "name:body"}} blocks,
// where name matches the filename without extension. Subjects are plain text
// headers and are rendered without HTML escaping.
func LoadTemplates() (*texttemplate.Template, *template.Template, error) {
	subjects, err := texttemplate.New("subjects").
		Funcs(texttemplate.FuncMap{"money": FormatMoney}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load email subjects: %w", err)
	}
	bodies, err := template.New("email").
		Funcs(template.FuncMap{"money": FormatMoney}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return subjects, bodies, nil
}

func (m *Mailer) OrderConfirmation(o OrderEmail) {
	m.send(TemplateOrderConfirmation, o)
}

func (m *Mailer) OrderStatusChanged(o OrderEmail) {
	m.send(TemplateOrderStatus, o)
}

func (m *Mailer) send(name string, o OrderEmail) {
	if o.To == "" {
		return
	}
	subject, body, err := m.render(name, o)
	if err != nil {
		logging.Error("failed to render email template", "template", name, "error", err)
		return
	}

	if _, err := m.queue.Enqueue(queue.TypeEmailDelivery, queue.EmailDeliveryPayload{
		To:       o.To,
		Subject:  subject,
		HTMLBody: body,
	}, asynq.Queue("critical")); err != nil {
		logging.Error("failed to enqueue email", "template", name, "order", o.OrderRef, "error", err)
	}
}

func (m *Mailer) render(name string, data any) (subject, body string, err error) {
	var subjectBuf bytes.Buffer
	if err = m.subjects.ExecuteTemplate(&subjectBuf, name+":subject", data); err != nil {
		return "", "", fmt.Errorf("render subject for %q: %w", name, err)
	}

	var bodyBuf bytes.Buffer
	if err = m.bodies.ExecuteTemplate(&bodyBuf, name+":body", data); err != nil {
		return "", "", fmt.Errorf("render body for %q: %w", name, err)
	}
	return subjectBuf.String(), bodyBuf.String(), nil
}

// FormatMoney renders minor units, e.g. 1999 EUR -> "19.99 EUR".
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

// OrderRef is the short reference shown to customers.
func OrderRef(o database.Order) string {
	return o.ID.String()[:8]
}
