package export

import (
	"context"
	"fmt"
	"html/template"
)

// Service renders pages. pdf and docx are replaceable so the HTML pipeline
// can be exercised without Chrome or pandoc installed.
type Service struct {
	pdf  func(ctx context.Context, html, title string) (*Result, error)
	docx func(ctx context.Context, html, title string) (*Result, error)
}

func NewService() *Service {
	return &Service{pdf: exportPDF, docx: exportDOCX}
}

// Export renders page in the requested format.
func (s *Service) Export(ctx context.Context, page Page, format Format) (*Result, error) {
	html, err := RenderPageHTML(TemplateData{
		Title:         page.Title,
		Icon:          page.Icon,
		ContentHTML:   template.HTML(ContentToHTML(page.Content)),
		Author:        page.Author,
		WorkspaceName: page.WorkspaceName,
		Tags:          page.Tags,
		UpdatedAt:     page.UpdatedAt,
		Revision:      page.Revision,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(page.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return s.pdf(ctx, html, page.Title)
	case FormatDOCX:
		return s.docx(ctx, html, page.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
