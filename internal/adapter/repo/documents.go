package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordcraft/internal/domain"
	"wordcraft/internal/infra"
	"wordcraft/internal/sqlinline"
)

// DocumentRepositoryPG implements domain.DocumentRepository backed by PostgreSQL.
type DocumentRepositoryPG struct {
	db infra.SQLExecutor
}

// NewDocumentRepository creates a new DocumentRepositoryPG.
func NewDocumentRepository(db infra.SQLExecutor) *DocumentRepositoryPG {
	return &DocumentRepositoryPG{db: db}
}

// ListByOwner returns the owner's documents, most recently modified first.
func (r *DocumentRepositoryPG) ListByOwner(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := r.db.Query(ctx, sqlinline.QSelectDocumentsByOwner, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DocumentRepositoryPG) Create(ctx context.Context, userID string, draft domain.DocumentDraft) (*domain.Document, error) {
	draft = draft.Normalize()
	d := domain.Document{
		ID:               uuid.NewString(),
		Title:            draft.Title,
		Content:          draft.Content,
		ProcessedContent: draft.ProcessedContent,
		Tool:             draft.Tool,
	}
	row := r.db.QueryRow(ctx, sqlinline.QInsertDocument, d.ID, userID, d.Title, d.Content, d.ProcessedContent, string(d.Tool))
	if err := row.Scan(&d.CreatedAt, &d.LastModified); err != nil {
		return nil, err
	}
	return &d, nil
}

// Update applies patch to a document the owner holds; otherwise ErrNotFound.
func (r *DocumentRepositoryPG) Update(ctx context.Context, userID, id string, patch domain.DocumentPatch) error {
	var tool *string
	if patch.Tool != nil {
		s := string(*patch.Tool)
		tool = &s
	}
	var modified any
	if !patch.LastModified.IsZero() {
		modified = patch.LastModified
	}
	tag, err := r.db.Exec(ctx, sqlinline.QUpdateDocument, id, userID, patch.Title, patch.Content, patch.ProcessedContent, tool, modified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DocumentRepositoryPG) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QDeleteDocument, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (domain.Document, error) {
	var (
		d    domain.Document
		tool string
	)
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &d.ProcessedContent, &tool, &d.CreatedAt, &d.LastModified); err != nil {
		return d, err
	}
	d.Tool = domain.ToolKind(tool)
	return d, nil
}

var _ domain.DocumentRepository = (*DocumentRepositoryPG)(nil)
