package ingest

import (
	"fmt"
	"strings"
)

// Field names shared by the schemas and the loaders.
const (
	FieldTicketID             = "ticket_id"
	FieldAnalyst              = "analyst"
	FieldCreatedAt            = "created_at"
	FieldCompletedAt          = "completed_at"
	FieldFirstResponse        = "first_response"
	FieldSecondResponse       = "second_response"
	FieldResolution           = "resolution"
	FieldSLAFirstExpired      = "sla_first_expired"
	FieldSLAResolutionExpired = "sla_resolution_expired"
	FieldSLAFirstMet          = "sla_first_met"
	FieldSLAResolutionMet     = "sla_resolution_met"
	FieldCategory             = "category"
	FieldSurveySent           = "survey_sent"
	FieldRating               = "rating"
	FieldRespondedAt          = "responded_at"
)

// Field declares one optional or required spreadsheet column.
type Field struct {
	Name     string
	Aliases  []string // exact header matches, compared folded
	Contains string   // substring fallback, compared folded
	Required bool
	// Group joins alternative fields for one concept; the group is reported
	// missing once, and only when none of its fields is bound.
	Group string
}

// Schema is the declared column layout of one source.
type Schema struct {
	Source string
	Fields []Field
}

// SchemaError reports a declared column that the sheet does not carry.
type SchemaError struct {
	Source   string
	Field    string
	Required bool
}

func (e *SchemaError) Error() string {
	kind := "optional"
	if e.Required {
		kind = "required"
	}
	return fmt.Sprintf("schema %s: %s column %q not found", e.Source, kind, e.Field)
}

// Binding maps field names to column indexes.
type Binding map[string]int

// Index returns the column bound to field, or -1.
func (b Binding) Index(field string) int {
	if i, ok := b[field]; ok {
		return i
	}
	return -1
}

// Has reports whether field was found in the header.
func (b Binding) Has(field string) bool {
	return b.Index(field) >= 0
}

// Bind resolves every declared field against header. Exact aliases win over
// substring fallbacks, and a column is bound to at most one field.
func (s Schema) Bind(header []string) (Binding, []*SchemaError) {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = Fold(h)
	}

	b := make(Binding, len(s.Fields))
	used := make(map[int]bool, len(header))

	for _, f := range s.Fields {
		for _, alias := range f.Aliases {
			want := Fold(alias)
			if i := indexOf(folded, want, used); i >= 0 {
				b[f.Name] = i
				used[i] = true
				break
			}
		}
	}

	for _, f := range s.Fields {
		if b.Has(f.Name) || f.Contains == "" {
			continue
		}
		want := Fold(f.Contains)
		for i, h := range folded {
			if !used[i] && h != "" && strings.Contains(h, want) {
				b[f.Name] = i
				used[i] = true
				break
			}
		}
	}

	bound := make(map[string]bool)
	for _, f := range s.Fields {
		if f.Group != "" && b.Has(f.Name) {
			bound[f.Group] = true
		}
	}

	var missing []*SchemaError
	for _, f := range s.Fields {
		if b.Has(f.Name) {
			continue
		}
		if f.Group != "" {
			if bound[f.Group] {
				continue
			}
			bound[f.Group] = true
		}
		missing = append(missing, &SchemaError{Source: s.Source, Field: f.Name, Required: f.Required})
	}
	return b, missing
}

func indexOf(folded []string, want string, used map[int]bool) int {
	for i, h := range folded {
		if !used[i] && h == want {
			return i
		}
	}
	return -1
}

// OperationalSchema is the ticket export layout. SLA columns come in two
// polarities: "... Expirado" counts breaches, the bare header counts tickets
// that met the target.
func OperationalSchema() Schema {
	return Schema{
		Source: "operational",
		Fields: []Field{
			{Name: FieldTicketID, Aliases: []string{"Código", "Protocolo", "Número do Chamado", "ID"}, Required: true},
			{Name: FieldAnalyst, Aliases: []string{"Responsável", "Nome Completo do Operador", "Operador", "Analista"}},
			{Name: FieldCreatedAt, Aliases: []string{"Data de Criação", "Data de Abertura", "Criado em"}},
			{Name: FieldCompletedAt, Aliases: []string{"Data de Finalização", "Data de Conclusão", "Data de Fechamento", "Finalizado em"}},
			{Name: FieldFirstResponse, Aliases: []string{"Tempo de Primeiro Atendimento", "Tempo Primeiro Atendimento", "TME"}},
			{Name: FieldSecondResponse, Aliases: []string{"Tempo de Segundo Atendimento", "Tempo Segundo Atendimento", "TMA"}},
			{Name: FieldResolution, Aliases: []string{"Tempo de Resolução", "Tempo Resolução", "TMR"}},
			{Name: FieldSLAFirstExpired, Aliases: []string{"SLA Primeiro Atendimento Expirado"}, Contains: "primeiro atendimento expirado", Group: "sla_first"},
			{Name: FieldSLAFirstMet, Aliases: []string{"SLA Primeiro Atendimento", "SLA Primeiro Atendimento Cumprido"}, Contains: "sla primeiro", Group: "sla_first"},
			{Name: FieldSLAResolutionExpired, Aliases: []string{"SLA Resolução Expirado"}, Contains: "resolucao expirado", Group: "sla_resolution"},
			{Name: FieldSLAResolutionMet, Aliases: []string{"SLA Resolução", "SLA Resolução Cumprido"}, Contains: "sla resolu", Group: "sla_resolution"},
			{Name: FieldCategory, Aliases: []string{"Categoria", "Nome da Categoria"}},
			{Name: FieldSurveySent, Aliases: []string{"Pesquisa Enviada", "Pesquisa de Satisfação Enviada"}},
		},
	}
}

// SurveySchema is the satisfaction survey layout. The rating column is the
// free-text question header, matched exactly or by the fallback substring.
func SurveySchema(ratingHeader, ratingFallback string) Schema {
	var aliases []string
	if ratingHeader != "" {
		aliases = append(aliases, ratingHeader)
	}
	return Schema{
		Source: "survey",
		Fields: []Field{
			{Name: FieldTicketID, Aliases: []string{"Código do Chamado", "Código do Atendimento", "Codigo Chamado", "Ticket"}, Required: true},
			{Name: FieldRating, Aliases: aliases, Contains: ratingFallback, Required: true},
			{Name: FieldRespondedAt, Aliases: []string{"Data da Resposta", "Respondido em", "Data de Resposta"}},
		},
	}
}
