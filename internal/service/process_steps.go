package service

import "github.com/noah-isme/casetrack-api/internal/models"

// Step is one entry of the fixed review sequence.
type Step struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	Progress   int                  `json:"progress"`
	NextStatus models.ProcessStatus `json:"nextStatus"`
}

// Progress values increase strictly along the table order.
var stepTable = []Step{
	{ID: "DADOS_PESSOAIS", Title: "Personal data reviewed", Progress: 20, NextStatus: models.ProcessStatusPendingCompany},
	{ID: "ATIVIDADES_CNAE", Title: "Business activities reviewed", Progress: 40, NextStatus: models.ProcessStatusPendingDocs},
	{ID: "DOCUMENTOS", Title: "Documents reviewed", Progress: 60, NextStatus: models.ProcessStatusInAnalysis},
	{ID: "VALIDACAO_REGISTRO", Title: "Registry validated", Progress: 80, NextStatus: models.ProcessStatusUnderReview},
	{ID: "APROVACAO_FINAL", Title: "Final approval", Progress: 100, NextStatus: models.ProcessStatusApproved},
}

var stepIndex = func() map[string]Step {
	idx := make(map[string]Step, len(stepTable))
	for _, st := range stepTable {
		idx[st.ID] = st
	}
	return idx
}()

// LookupStep finds a step by id.
func LookupStep(id string) (Step, bool) {
	st, ok := stepIndex[id]
	return st, ok
}

// Steps returns a copy of the ordered step table.
func Steps() []Step {
	out := make([]Step, len(stepTable))
	copy(out, stepTable)
	return out
}
