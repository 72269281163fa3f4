package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wordcraft/internal/domain"
	"wordcraft/internal/sqlinline"
)

var created = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestAccountCreateInsertsProfileInTx(t *testing.T) {
	db := newStubSQL()
	db.rows[sqlinline.QInsertAccount] = func([]any) pgx.Row {
		return simpleRow{scan: func(dest ...any) error { return assign(dest, created) }}
	}
	repo := NewAccountRepository(db)
	profile := domain.DefaultProfile("u1", "ann@example.com", "")

	acct, err := repo.Create(context.Background(), &domain.Account{ID: "u1", Email: "ann@example.com", PasswordHash: []byte("h")}, profile)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !acct.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", acct.CreatedAt, created)
	}
	if db.txCount != 1 || len(db.calls) != 2 {
		t.Fatalf("tx = %d calls = %d, want 1 and 2", db.txCount, len(db.calls))
	}
	insert := db.calls[1]
	if insert.query != sqlinline.QInsertProfile {
		t.Fatalf("second statement = %q, want profile insert", insert.query)
	}
	if insert.args[1] != "ann" || insert.args[3] != "free" || insert.args[4] != 50 || insert.args[5] != 100 {
		t.Fatalf("profile args = %#v", insert.args)
	}
	if got := string(insert.args[6].([]byte)); got != `{"ai-detector":0,"humanizer":0,"plagiarism":0}` {
		t.Fatalf("usage arg = %s", got)
	}
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	db := newStubSQL()
	db.rows[sqlinline.QInsertAccount] = func([]any) pgx.Row {
		return simpleRow{scan: func(...any) error { return &pgconn.PgError{Code: "23505"} }}
	}
	_, err := NewAccountRepository(db).Create(context.Background(), &domain.Account{ID: "u1"}, domain.DefaultProfile("u1", "a@b.c", ""))
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("Create() error = %v, want ErrEmailTaken", err)
	}
	if !db.rollback {
		t.Fatalf("transaction not rolled back")
	}
}

func TestAccountGetByEmailNotFound(t *testing.T) {
	_, err := NewAccountRepository(newStubSQL()).GetByEmail(context.Background(), "x@y.z")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestAccountDeleteMissing(t *testing.T) {
	db := newStubSQL()
	db.execs[sqlinline.QDeleteAccount] = func([]any) (pgconn.CommandTag, error) {
		return pgconn.NewCommandTag("DELETE 0"), nil
	}
	if err := NewAccountRepository(db).Delete(context.Background(), "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestProfileGetDecodesUsage(t *testing.T) {
	db := newStubSQL()
	db.rows[sqlinline.QSelectProfileByID] = func([]any) pgx.Row {
		return simpleRow{scan: func(dest ...any) error {
			return assign(dest, "u1", "Ann", "ann@example.com", "premium", 7, 2000, []byte(`{"humanizer":3}`))
		}}
	}
	got, err := NewProfileRepository(db).GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	want := &domain.Profile{
		ID: "u1", Name: "Ann", Email: "ann@example.com", Plan: domain.PlanPremium,
		Credits: 7, MaxCredits: 2000, Usage: map[domain.ToolKind]int{domain.ToolHumanizer: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileUpdatePassesNullsForUnsetFields(t *testing.T) {
	db := newStubSQL()
	db.rows[sqlinline.QUpdateProfile] = func(args []any) pgx.Row {
		return simpleRow{scan: func(dest ...any) error {
			return assign(dest, "u1", "Ann", "a@b.c", "free", 9, 100, []byte(`{}`))
		}}
	}
	credits := 9
	if _, err := NewProfileRepository(db).Update(context.Background(), "u1", domain.ProfilePatch{Credits: &credits}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	args := db.calls[0].args
	if args[1].(*string) != nil || args[2].(*string) != nil || args[4].(*int) != nil || args[5].([]byte) != nil {
		t.Fatalf("unset fields not null: %#v", args)
	}
	if *args[3].(*int) != 9 {
		t.Fatalf("credits arg = %v, want 9", args[3])
	}
}

func TestProfileUpdateMissing(t *testing.T) {
	credits := 1
	_, err := NewProfileRepository(newStubSQL()).Update(context.Background(), "u1", domain.ProfilePatch{Credits: &credits})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestSessionGetByIDRevoked(t *testing.T) {
	revoked := created.Add(time.Hour)
	db := newStubSQL()
	db.rows[sqlinline.QSelectSessionByID] = func([]any) pgx.Row {
		return simpleRow{scan: func(dest ...any) error {
			return assign(dest, "s1", "u1", "en-US", "ID", created, created.Add(24*time.Hour), &revoked)
		}}
	}
	s, err := NewSessionRepository(db).GetByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if s.Active(created.Add(2 * time.Hour)) {
		t.Fatalf("revoked session reported active")
	}
	if _, err := NewSessionRepository(newStubSQL()).GetByID(context.Background(), "s2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionListActive(t *testing.T) {
	db := newStubSQL()
	rows := &fakeRows{values: [][]any{
		{"s2", "u1", "de", "", created.Add(time.Minute), created.Add(time.Hour), nil},
		{"s1", "u1", "en-US", "US", created, created.Add(time.Hour), nil},
	}}
	db.queries[sqlinline.QSelectActiveSessions] = func([]any) (pgx.Rows, error) { return rows, nil }
	got, err := NewSessionRepository(db).ListActive(context.Background(), "u1", created)
	if err != nil {
		t.Fatalf("ListActive() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "s2" || got[1].Country != "US" {
		t.Fatalf("sessions = %+v", got)
	}
	if !rows.closed {
		t.Fatalf("rows not closed")
	}
}

func TestDocumentCreateNormalizesDraft(t *testing.T) {
	db := newStubSQL()
	db.rows[sqlinline.QInsertDocument] = func([]any) pgx.Row {
		return simpleRow{scan: func(dest ...any) error { return assign(dest, created, created) }}
	}
	d, err := NewDocumentRepository(db).Create(context.Background(), "u1", domain.DocumentDraft{Content: "x"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if d.ID == "" || d.Title != domain.DefaultDocumentTitle || d.Tool != domain.ToolHumanizer {
		t.Fatalf("document = %+v", d)
	}
	if args := db.calls[0].args; args[1] != "u1" || args[5] != "humanizer" {
		t.Fatalf("insert args = %#v", args)
	}
}

func TestDocumentListByOwner(t *testing.T) {
	db := newStubSQL()
	db.queries[sqlinline.QSelectDocumentsByOwner] = func([]any) (pgx.Rows, error) {
		return &fakeRows{values: [][]any{
			{"d1", "Essay", "in", "out", "plagiarism", created, created.Add(time.Second)},
		}}, nil
	}
	docs, err := NewDocumentRepository(db).ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByOwner() error: %v", err)
	}
	if len(docs) != 1 || docs[0].Tool != domain.ToolPlagiarism || docs[0].ProcessedContent != "out" {
		t.Fatalf("documents = %+v", docs)
	}
}

func TestDocumentUpdateAndDeleteScopedToOwner(t *testing.T) {
	db := newStubSQL()
	zero := func([]any) (pgconn.CommandTag, error) { return pgconn.NewCommandTag("UPDATE 0"), nil }
	db.execs[sqlinline.QUpdateDocument] = zero
	db.execs[sqlinline.QDeleteDocument] = zero
	repo := NewDocumentRepository(db)
	title := "t"
	if err := repo.Update(context.Background(), "u2", "d1", domain.DocumentPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(context.Background(), "u2", "d1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
	if args := db.calls[0].args; args[6] != nil {
		t.Fatalf("zero LastModified should be sent as NULL, got %#v", args[6])
	}
}
