package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/notify"
	"solis/internal/permission"
	"solis/internal/sanitize"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type FormStore interface {
	Create(ctx context.Context, form *model.FormTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.FormTemplate, error)
	List(ctx context.Context) ([]model.FormTemplate, error)
	Update(ctx context.Context, form *model.FormTemplate) error
	CreateSubmission(ctx context.Context, sub *model.FormSubmission) error
	ListSubmissions(ctx context.Context, formID uuid.UUID) ([]model.FormSubmission, error)
}

type TemplateInput struct {
	Title       string
	Description string
	Fields      []model.FormField
	IsActive    *bool
}

var fieldTypes = []string{
	model.FieldText, model.FieldTextarea, model.FieldNumber,
	model.FieldDate, model.FieldEmail, model.FieldSelect,
}

type FormService struct {
	forms      FormStore
	users      UserLookup
	notifier   notify.Notifier
	validate   *validator.Validate
	consoleURL string
	log        *logger.Logger
	now        func() time.Time
}

func NewFormService(forms FormStore, users UserLookup, notifier notify.Notifier, validate *validator.Validate, consoleURL string, log *logger.Logger) *FormService {
	return &FormService{
		forms:      forms,
		users:      users,
		notifier:   notifier,
		validate:   validate,
		consoleURL: strings.TrimRight(consoleURL, "/"),
		log:        log.Named("forms"),
		now:        time.Now,
	}
}

func (s *FormService) CreateTemplate(ctx context.Context, actor *model.User, in TemplateInput) (*model.FormTemplate, error) {
	title, fields, err := normalizeTemplate(in)
	if err != nil {
		return nil, err
	}
	if !allowed(actor, permission.ManageAutomations) {
		return nil, ErrForbidden
	}

	now := s.now().UTC()
	form := &model.FormTemplate{
		ID:          uuid.New(),
		Title:       title,
		Description: sanitize.HTML(in.Description),
		Fields:      fields,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedBy:   actor.Snapshot(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// UpdateTemplate replaces title, description, fields and the active flag.
// Renaming a field label does not migrate answers already stored under the
// old label.
func (s *FormService) UpdateTemplate(ctx context.Context, actor *model.User, id uuid.UUID, in TemplateInput) (*model.FormTemplate, error) {
	title, fields, err := normalizeTemplate(in)
	if err != nil {
		return nil, err
	}
	if !allowed(actor, permission.ManageAutomations) {
		return nil, ErrForbidden
	}

	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Title = title
	form.Description = sanitize.HTML(in.Description)
	form.Fields = fields
	if in.IsActive != nil {
		form.IsActive = *in.IsActive
	}
	form.UpdatedAt = s.now().UTC()

	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *FormService) ListTemplates(ctx context.Context, actor *model.User) ([]model.FormTemplate, error) {
	if !allowed(actor, permission.ManageAutomations) {
		return nil, ErrForbidden
	}
	return s.forms.List(ctx)
}

func (s *FormService) GetTemplate(ctx context.Context, actor *model.User, id uuid.UUID) (*model.FormTemplate, error) {
	if !allowed(actor, permission.ManageAutomations) {
		return nil, ErrForbidden
	}
	return s.forms.GetByID(ctx, id)
}

// Public returns the template definition for the public responder.
func (s *FormService) Public(ctx context.Context, id uuid.UUID) (*model.FormTemplate, error) {
	return s.forms.GetByID(ctx, id)
}

// Submit validates answers keyed by field label and stores them. Labels the
// template does not define are dropped. submittedBy is the respondent's
// email, or empty for anonymous respondents.
func (s *FormService) Submit(ctx context.Context, id uuid.UUID, answers map[string]string, submittedBy string) (*model.FormSubmission, error) {
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !form.IsActive {
		return nil, ErrFormClosed
	}

	clean := make(map[string]string, len(form.Fields))
	for _, f := range form.Fields {
		value := strings.TrimSpace(sanitize.Text(answers[f.Label]))
		if value == "" {
			if f.Required {
				return nil, invalid(f.Label, "campo obligatorio")
			}
			continue
		}
		if err := s.checkAnswer(f, value); err != nil {
			return nil, err
		}
		clean[f.Label] = value
	}

	if submittedBy == "" {
		submittedBy = model.AnonymousSubmitter
	}
	sub := &model.FormSubmission{
		ID:          uuid.New(),
		FormID:      form.ID,
		Answers:     clean,
		SubmittedBy: submittedBy,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.forms.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	s.notifyOwner(ctx, form, sub)
	return sub, nil
}

func (s *FormService) ListSubmissions(ctx context.Context, actor *model.User, formID uuid.UUID) ([]model.FormSubmission, error) {
	if !allowed(actor, permission.ManageAutomations) {
		return nil, ErrForbidden
	}
	if _, err := s.forms.GetByID(ctx, formID); err != nil {
		return nil, err
	}
	return s.forms.ListSubmissions(ctx, formID)
}

func (s *FormService) checkAnswer(f model.FormField, value string) error {
	switch f.Type {
	case model.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return invalid(f.Label, "debe ser un número")
		}
	case model.FieldDate:
		if _, err := model.ParseDate(value); err != nil {
			return invalid(f.Label, "fecha inválida, usa AAAA-MM-DD")
		}
	case model.FieldEmail:
		if err := s.validate.Var(value, "email"); err != nil {
			return invalid(f.Label, "correo inválido")
		}
	case model.FieldSelect:
		if !contains(f.Options, value) {
			return invalid(f.Label, "opción no válida")
		}
	}
	return nil
}

func (s *FormService) notifyOwner(ctx context.Context, form *model.FormTemplate, sub *model.FormSubmission) {
	ownerID, err := uuid.Parse(form.CreatedBy.ID)
	if err != nil {
		return
	}
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil || owner == nil || owner.Email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err = s.notifier.Send(ctx, notify.Message{
		TemplateID: notify.TemplateFormReceived,
		To:         owner.Email,
		Params: map[string]string{
			"form_title":   form.Title,
			"submitted_by": sub.SubmittedBy,
			"link":         fmt.Sprintf("%s/formularios/%s", s.consoleURL, form.ID),
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("form_id", form.ID.String()).Msg("submission notification failed")
	}
}

// normalizeTemplate validates a template and assigns ids to new fields.
// Labels must be unique since answers are keyed by them.
func normalizeTemplate(in TemplateInput) (string, []model.FormField, error) {
	title := sanitize.Text(in.Title)
	if title == "" {
		return "", nil, invalid("title", "el título es obligatorio")
	}
	if len(in.Fields) == 0 {
		return "", nil, invalid("fields", "el formulario necesita al menos un campo")
	}

	seen := make(map[string]bool, len(in.Fields))
	fields := make([]model.FormField, 0, len(in.Fields))
	for i, f := range in.Fields {
		name := fmt.Sprintf("fields[%d]", i)
		f.Label = sanitize.Text(f.Label)
		if f.Label == "" {
			return "", nil, invalid(name+".label", "la etiqueta es obligatoria")
		}
		if seen[f.Label] {
			return "", nil, invalid(name+".label", "etiqueta repetida")
		}
		seen[f.Label] = true
		if !contains(fieldTypes, f.Type) {
			return "", nil, invalid(name+".type", "tipo de campo desconocido")
		}
		if f.Type == model.FieldSelect {
			opts := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				if o = sanitize.Text(o); o != "" {
					opts = append(opts, o)
				}
			}
			if len(opts) == 0 {
				return "", nil, invalid(name+".options", "la lista necesita opciones")
			}
			f.Options = opts
		} else {
			f.Options = nil
		}
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		fields = append(fields, f)
	}
	return title, fields, nil
}
