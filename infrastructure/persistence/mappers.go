package persistence

import (
	"github.com/helixml/harvest/domain/document"
	"github.com/helixml/harvest/domain/fragment"
)

// DocumentMapper maps between document.Document and DocumentModel.
type DocumentMapper struct{}

// ToDomain converts a DocumentModel to a document.Document.
func (DocumentMapper) ToDomain(e DocumentModel) document.Document {
	return document.ReconstructDocument(e.ID, e.TenantID, e.URL, e.Host, e.Site, e.Title, e.Content, e.CreatedAt)
}

// ToModel converts a document.Document to a DocumentModel.
func (DocumentMapper) ToModel(d document.Document) DocumentModel {
	return DocumentModel{
		ID:        d.ID(),
		TenantID:  d.TenantID(),
		URL:       d.URL(),
		Host:      d.Host(),
		Site:      d.Site(),
		Title:     d.Title(),
		Content:   d.Content(),
		CreatedAt: d.CreatedAt(),
	}
}

// FragmentMapper maps between fragment.Fragment and FragmentModel.
type FragmentMapper struct{}

// ToDomain converts a FragmentModel to a fragment.Fragment.
func (FragmentMapper) ToDomain(e FragmentModel) fragment.Fragment {
	return fragment.ReconstructFragment(
		e.ID, e.TenantID, e.DocumentID, e.URL,
		e.Position, e.Content, e.TokenCount,
		[]float64(e.Embedding), e.CreatedAt,
	)
}

// ToModel converts a fragment.Fragment to a FragmentModel.
func (FragmentMapper) ToModel(f fragment.Fragment) FragmentModel {
	vec := f.Embedding()
	var emb Float64Slice
	if vec != nil {
		emb = make(Float64Slice, len(vec))
		copy(emb, vec)
	}
	return FragmentModel{
		ID:         f.ID(),
		TenantID:   f.TenantID(),
		DocumentID: f.DocumentID(),
		URL:        f.URL(),
		Position:   f.Position(),
		Content:    f.Content(),
		TokenCount: f.TokenCount(),
		Embedding:  emb,
		CreatedAt:  f.CreatedAt(),
	}
}
