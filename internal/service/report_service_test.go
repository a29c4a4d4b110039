package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"solis/internal/ai"
	"solis/internal/logger"
	"solis/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReportService() (*ReportService, *MockReportStore, *MockAnalyst) {
	reports := new(MockReportStore)
	analyst := new(MockAnalyst)
	return NewReportService(reports, analyst, 2, logger.Nop()), reports, analyst
}

func TestReportCreate_AnalyzesInBackground(t *testing.T) {
	svc, reports, analyst := newReportService()
	actor := userWithRole(model.RoleGerente, model.DepartmentMarketing)
	trend := 12.5

	reports.On("Create", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil)
	analyst.On("Summarize", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Leads: 340 (tendencia +12.5%)")
	})).Return("<p>Buen mes</p><script>x</script>", nil).Once()
	reports.On("SetAnalysis", mock.Anything, mock.Anything, "<p>Buen mes</p>").Return(nil).Once()

	report, err := svc.Create(context.Background(), actor, CreateReportInput{
		Title:   "Marzo",
		Type:    model.ReportMensual,
		Metrics: []model.Metric{{Label: "Leads", Value: "340", TrendValue: &trend}},
		Analyze: true,
	})
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, model.ReportPending, report.Status)
	assert.Equal(t, model.DepartmentMarketing, report.Department)
	analyst.AssertExpectations(t)
	reports.AssertExpectations(t)
}

func TestReportCreate_AnalysisFailureIsNotFatal(t *testing.T) {
	svc, reports, analyst := newReportService()
	actor := userWithRole(model.RoleGerente, model.DepartmentMarketing)

	reports.On("Create", mock.Anything, mock.Anything).Return(nil)
	analyst.On("Summarize", mock.Anything, mock.Anything).Return("", ai.ErrNotConfigured)

	_, err := svc.Create(context.Background(), actor, CreateReportInput{Title: "Marzo", Type: model.ReportSemanal, Analyze: true})
	require.NoError(t, err)
	svc.Wait()

	reports.AssertNotCalled(t, "SetAnalysis", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportCreate_Validation(t *testing.T) {
	svc, reports, _ := newReportService()
	actor := userWithRole(model.RoleGerente, model.DepartmentMarketing)

	_, err := svc.Create(context.Background(), actor, CreateReportInput{Title: "Marzo", Type: "anual"})
	assert.True(t, IsValidation(err))

	_, err = svc.Create(context.Background(), actor, CreateReportInput{
		Title: "Marzo", Type: model.ReportDiario, Metrics: []model.Metric{{Value: "3"}},
	})
	assert.True(t, IsValidation(err))

	reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReportChat_KeepsReportContextAndBoundedHistory(t *testing.T) {
	svc, reports, analyst := newReportService()
	actor := userWithRole(model.RoleGerente, model.DepartmentMarketing)
	report := &model.Report{ID: uuid.New(), Title: "Marzo", Type: model.ReportMensual, Department: model.DepartmentMarketing, AIAnalysis: "Buen mes"}
	reports.On("GetByID", mock.Anything, report.ID).Return(report, nil)

	var histories [][]ai.Turn
	analyst.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			histories = append(histories, args.Get(1).([]ai.Turn))
		}).
		Return("respuesta", nil)

	for _, q := range []string{"uno", "dos", "tres", "cuatro"} {
		_, err := svc.Chat(context.Background(), actor, report.ID, q)
		require.NoError(t, err)
	}

	require.Len(t, histories, 4)
	for _, h := range histories {
		require.GreaterOrEqual(t, len(h), 2)
		assert.Equal(t, ai.RoleUser, h[0].Role)
		assert.Contains(t, h[0].Text, "Marzo")
		assert.Equal(t, "Buen mes", h[1].Text)
	}
	assert.Len(t, histories[0], 2)
	assert.Len(t, histories[1], 4)
	assert.Len(t, histories[2], 6)
	assert.Equal(t, "uno", histories[2][2].Text)
	// two exchanges retained, "uno" dropped
	assert.Len(t, histories[3], 6)
	assert.Equal(t, "dos", histories[3][2].Text)
}

func TestReportChat_EmptyMessage(t *testing.T) {
	svc, reports, _ := newReportService()

	_, err := svc.Chat(context.Background(), userWithRole(model.RoleGerente, model.DepartmentMarketing), uuid.New(), "  ")

	assert.True(t, IsValidation(err))
	reports.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestReportChat_AnalystErrorNotRecorded(t *testing.T) {
	svc, reports, analyst := newReportService()
	actor := userWithRole(model.RoleGerente, model.DepartmentMarketing)
	report := &model.Report{ID: uuid.New(), Title: "Marzo", Type: model.ReportMensual}
	reports.On("GetByID", mock.Anything, report.ID).Return(report, nil)
	analyst.On("Chat", mock.Anything, mock.Anything, "uno").Return("", errors.New("quota")).Once()
	analyst.On("Chat", mock.Anything, mock.MatchedBy(func(h []ai.Turn) bool { return len(h) == 2 }), "dos").Return("ok", nil).Once()

	_, err := svc.Chat(context.Background(), actor, report.ID, "uno")
	require.Error(t, err)
	_, err = svc.Chat(context.Background(), actor, report.ID, "dos")
	require.NoError(t, err)

	analyst.AssertExpectations(t)
}

func TestReportDelete_Permissions(t *testing.T) {
	svc, reports, _ := newReportService()
	creator := userWithRole(model.RoleOperativo, model.DepartmentMarketing)
	other := userWithRole(model.RoleOperativo, model.DepartmentMarketing)
	report := &model.Report{ID: uuid.New(), CreatedBy: creator.Snapshot()}
	reports.On("GetByID", mock.Anything, report.ID).Return(report, nil)
	reports.On("Delete", mock.Anything, report.ID).Return(nil).Once()

	assert.ErrorIs(t, svc.Delete(context.Background(), other, report.ID), ErrForbidden)
	assert.NoError(t, svc.Delete(context.Background(), creator, report.ID))
	reports.AssertExpectations(t)
}

func TestReportPrompt(t *testing.T) {
	trend := -3.0
	prompt := ReportPrompt(model.Report{
		Title: "Semana 12", Type: model.ReportSemanal, Department: model.DepartmentClosers, DateRange: "17-23 mar",
		Metrics: []model.Metric{{Label: "Cierres", Value: "9", TrendValue: &trend}, {Label: "Citas", Value: "21"}},
	})

	assert.Contains(t, prompt, `Reporte semanal "Semana 12" del departamento closers (17-23 mar).`)
	assert.Contains(t, prompt, "- Cierres: 9 (tendencia -3.0%)\n")
	assert.Contains(t, prompt, "- Citas: 21\n")
}
