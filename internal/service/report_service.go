package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"solis/internal/ai"
	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/permission"
	"solis/internal/sanitize"

	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
)

type ReportStore interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	List(ctx context.Context, department, reportType string) ([]model.Report, error)
	SetAnalysis(ctx context.Context, id uuid.UUID, analysis string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Analyst produces commentary on report data. *ai.Gemini implements it.
type Analyst interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, history []ai.Turn, message string) (string, error)
}

type CreateReportInput struct {
	Title      string
	Type       string
	Department string
	DateRange  string
	Metrics    []model.Metric
	Analyze    bool
}

const (
	analysisTimeout = 2 * time.Minute
	chatIdleTTL     = 30 * time.Minute
)

var reportTypes = []string{model.ReportDiario, model.ReportSemanal, model.ReportMensual, model.ReportIncidente}

type ReportService struct {
	reports     ReportStore
	analyst     Analyst
	historySize int
	chats       *ccache.Cache[*ai.Conversation]
	log         *logger.Logger
	now         func() time.Time

	analyses sync.WaitGroup
}

func NewReportService(reports ReportStore, analyst Analyst, historySize int, log *logger.Logger) *ReportService {
	return &ReportService{
		reports:     reports,
		analyst:     analyst,
		historySize: historySize,
		chats:       ccache.New(ccache.Configure[*ai.Conversation]().MaxSize(500)),
		log:         log.Named("reports"),
		now:         time.Now,
	}
}

func (s *ReportService) Create(ctx context.Context, actor *model.User, in CreateReportInput) (*model.Report, error) {
	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, invalid("title", "el título es obligatorio")
	}
	if !contains(reportTypes, in.Type) {
		return nil, invalid("type", "tipo de reporte desconocido")
	}
	dept := in.Department
	if dept == "" {
		dept = actor.Department
	}
	if !permission.ValidDepartment(dept) {
		return nil, invalid("department", "departamento desconocido")
	}
	metrics := make([]model.Metric, 0, len(in.Metrics))
	for i, m := range in.Metrics {
		label := sanitize.Text(m.Label)
		if label == "" {
			return nil, invalid(fmt.Sprintf("metrics[%d].label", i), "la métrica necesita etiqueta")
		}
		metrics = append(metrics, model.Metric{Label: label, Value: sanitize.Text(m.Value), TrendValue: m.TrendValue})
	}

	now := s.now().UTC()
	report := &model.Report{
		ID:         uuid.New(),
		Title:      title,
		Type:       in.Type,
		Department: dept,
		CreatedBy:  actor.Snapshot(),
		DateRange:  sanitize.Text(in.DateRange),
		Metrics:    metrics,
		Status:     model.ReportPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	if in.Analyze {
		s.startAnalysis(*report)
	}
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *ReportService) List(ctx context.Context, department, reportType string) ([]model.Report, error) {
	return s.reports.List(ctx, department, reportType)
}

func (s *ReportService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !allowed(actor, permission.DeleteTasks) && report.CreatedBy.ID != actor.ID.String() {
		return ErrForbidden
	}
	return s.reports.Delete(ctx, id)
}

// Analyze schedules AI commentary for a report. It returns once the report is
// known to exist; the analysis itself runs in the background and failures are
// only logged.
func (s *ReportService) Analyze(ctx context.Context, id uuid.UUID) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.startAnalysis(*report)
	return nil
}

// Wait blocks until background analyses finish.
func (s *ReportService) Wait() {
	s.analyses.Wait()
}

func (s *ReportService) startAnalysis(report model.Report) {
	s.analyses.Add(1)
	go func() {
		defer s.analyses.Done()
		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()

		text, err := s.analyst.Summarize(ctx, ReportPrompt(report))
		if err != nil {
			s.log.Warn().Err(err).Str("report_id", report.ID.String()).Msg("report analysis failed")
			return
		}
		if err := s.reports.SetAnalysis(ctx, report.ID, sanitize.HTML(text)); err != nil {
			s.log.Error().Err(err).Str("report_id", report.ID.String()).Msg("storing report analysis failed")
			return
		}
		s.log.Info().Str("report_id", report.ID.String()).Msg("report analyzed")
	}()
}

// Chat continues the actor's conversation about a report. The conversation
// keeps a bounded number of exchanges and expires when idle.
func (s *ReportService) Chat(ctx context.Context, actor *model.User, id uuid.UUID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", invalid("message", "el mensaje está vacío")
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	key := actor.ID.String() + ":" + id.String()
	conv := s.conversation(key)

	// The report itself always opens the history, so trimming never loses it.
	acknowledged := report.AIAnalysis
	if acknowledged == "" {
		acknowledged = "Entendido, tengo el reporte."
	}
	history := append([]ai.Turn{
		{Role: ai.RoleUser, Text: ReportPrompt(*report)},
		{Role: ai.RoleModel, Text: acknowledged},
	}, conv.History()...)

	answer, err := s.analyst.Chat(ctx, history, message)
	if err != nil {
		return "", err
	}
	conv.Record(message, answer)
	s.chats.Set(key, conv, chatIdleTTL)
	return answer, nil
}

func (s *ReportService) conversation(key string) *ai.Conversation {
	if item := s.chats.Get(key); item != nil && !item.Expired() {
		return item.Value()
	}
	conv := ai.NewConversation(s.historySize)
	s.chats.Set(key, conv, chatIdleTTL)
	return conv
}

// ReportPrompt renders a report as the text handed to the analyst.
func ReportPrompt(r model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reporte %s \"%s\" del departamento %s", r.Type, r.Title, r.Department)
	if r.DateRange != "" {
		fmt.Fprintf(&b, " (%s)", r.DateRange)
	}
	b.WriteString(".\nMétricas:\n")
	if len(r.Metrics) == 0 {
		b.WriteString("- sin métricas\n")
	}
	for _, m := range r.Metrics {
		fmt.Fprintf(&b, "- %s: %s", m.Label, m.Value)
		if m.TrendValue != nil {
			fmt.Fprintf(&b, " (tendencia %+.1f%%)", *m.TrendValue)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
