// Package report renders the client-facing HTML analysis report.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/vetletters/claims-intake/internal/application"
	"github.com/vetletters/claims-intake/internal/domain/analysis"
	domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

//go:embed templates/*.html
var templates embed.FS

type Builder struct {
	tmpl  *template.Template
	clock application.Clock
}

func NewBuilder(clock application.Clock) (*Builder, error) {
	tmpl, err := template.New("report.html").Funcs(template.FuncMap{
		"usd": func(n int) string { return fmt.Sprintf("$%d", n) },
	}).ParseFS(templates, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}
	return &Builder{tmpl: tmpl, clock: clock}, nil
}

type templateData struct {
	Claim        *domain.ClaimRecord
	Analysis     *analysis.Result
	GeneratedAt  string
	AnnualAmount int
}

// Render produces the full HTML report for one analyzed claim.
func (b *Builder) Render(rec *domain.ClaimRecord, res *analysis.Result) ([]byte, error) {
	data := templateData{
		Claim:        rec,
		Analysis:     res,
		GeneratedAt:  b.clock.Now().UTC().Format(time.RFC1123),
		AnnualAmount: res.ExecutiveSummary.AnnualIncreasePotential,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return buf.Bytes(), nil
}
