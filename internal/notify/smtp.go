package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type smtpTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

var smtpTemplates = map[string]smtpTemplate{
	TemplateTaskAssigned: {
		subject: texttemplate.Must(texttemplate.New("s").Parse(`Nueva tarea asignada: {{.task_title}}`)),
		body: template.Must(template.New("b").Parse(
			`<p>Hola {{.to_name}},</p>` +
				`<p>{{.assigned_by}} te asignó la tarea <strong>{{.task_title}}</strong> (prioridad {{.priority}}).</p>` +
				`{{if .due_date}}<p>Fecha límite: {{.due_date}}</p>{{end}}` +
				`<p><a href="{{.link}}">Abrir en Solis Center</a></p>`)),
	},
	TemplateFormReceived: {
		subject: texttemplate.Must(texttemplate.New("s").Parse(`Nueva respuesta: {{.form_title}}`)),
		body: template.Must(template.New("b").Parse(
			`<p>Se recibió una respuesta al formulario <strong>{{.form_title}}</strong> de {{.submitted_by}}.</p>` +
				`<p><a href="{{.link}}">Ver respuestas</a></p>`)),
	},
}

// SMTP renders messages from a small built-in template set and sends them
// through gomail.
type SMTP struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := s.render(msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTP) render(msg Message) (*gomail.Message, error) {
	tpl, ok := smtpTemplates[msg.TemplateID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, msg.TemplateID)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, msg.Params); err != nil {
		return nil, fmt.Errorf("smtp: render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, msg.Params); err != nil {
		return nil, fmt.Errorf("smtp: render body: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", subject.String())
	m.SetBody("text/html", body.String())
	return m, nil
}
