package accounts

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"flylow/models"
)

const testDir = "/data"

// setupTestService creates an accounts service on an in-memory filesystem.
func setupTestService(t *testing.T) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc, err := NewService(fs, testDir)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc, fs
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := Code(err); got != code {
		t.Fatalf("expected code %s, got %q (%v)", code, got, err)
	}
}

func TestNewService_EmptyStorageDir(t *testing.T) {
	_, err := NewService(afero.NewMemMapFs(), "")
	if err != ErrStorageDirRequired {
		t.Errorf("expected ErrStorageDirRequired, got %v", err)
	}

	_, err = NewService(afero.NewMemMapFs(), "   ")
	if err != ErrStorageDirRequired {
		t.Errorf("expected ErrStorageDirRequired for whitespace, got %v", err)
	}
}

func TestSignUp_Success(t *testing.T) {
	svc, _ := setupTestService(t)

	account, err := svc.SignUp("  Traveller@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if account.ID == "" {
		t.Error("expected non-empty ID")
	}
	if account.Email != "traveller@example.com" {
		t.Errorf("expected normalized email, got %q", account.Email)
	}
	if account.Provider != models.ProviderPassword {
		t.Errorf("expected password provider, got %q", account.Provider)
	}
	if account.CreatedAt.IsZero() || account.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("secret1")); err != nil {
		t.Error("expected password to be correctly hashed")
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc, _ := setupTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
		code     string
	}{
		{"empty email", "", "secret1", CodeInvalidEmail},
		{"missing at", "traveller.example.com", "secret1", CodeInvalidEmail},
		{"missing domain dot", "traveller@localhost", "secret1", CodeInvalidEmail},
		{"display name", "Traveller <t@example.com>", "secret1", CodeInvalidEmail},
		{"short password", "t@example.com", "12345", CodeWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(tt.email, tt.password)
			requireCode(t, err, tt.code)
		})
	}
}

func TestSignUp_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	svc, _ := setupTestService(t)

	if _, err := svc.SignUp("t@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	_, err := svc.SignUp("T@EXAMPLE.COM", "another1")
	requireCode(t, err, CodeEmailInUse)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected wrapped ErrEmailExists, got %v", err)
	}
}

func TestSignIn(t *testing.T) {
	svc, _ := setupTestService(t)
	created, err := svc.SignUp("t@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	account, err := svc.SignIn("T@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if account.ID != created.ID {
		t.Errorf("expected account %s, got %s", created.ID, account.ID)
	}

	_, err = svc.SignIn("t@example.com", "wrong-pass")
	requireCode(t, err, CodeWrongPassword)

	_, err = svc.SignIn("nobody@example.com", "secret1")
	requireCode(t, err, CodeUserNotFound)

	_, err = svc.SignIn("not-an-email", "secret1")
	requireCode(t, err, CodeInvalidEmail)
}

func TestSignIn_DisabledAccount(t *testing.T) {
	svc, _ := setupTestService(t)
	created, _ := svc.SignUp("t@example.com", "secret1")

	if err := svc.SetDisabled(created.ID, true); err != nil {
		t.Fatalf("SetDisabled failed: %v", err)
	}
	_, err := svc.SignIn("t@example.com", "secret1")
	requireCode(t, err, CodeUserDisabled)

	if err := svc.SetDisabled("missing", true); err != ErrAccountNotFound {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLinkExternal_CreatesOnceThenReuses(t *testing.T) {
	svc, _ := setupTestService(t)

	first, created, err := svc.LinkExternal(models.ProviderGoogle, "google_123", "g@example.com")
	if err != nil {
		t.Fatalf("LinkExternal failed: %v", err)
	}
	if !created {
		t.Error("expected a new account")
	}
	if first.Provider != models.ProviderGoogle || first.ExternalID != "google_123" {
		t.Errorf("unexpected account %+v", first)
	}
	if first.PasswordHash == "" {
		t.Error("expected a random password hash")
	}

	second, created, err := svc.LinkExternal(models.ProviderGoogle, "google_123", "g@example.com")
	if err != nil {
		t.Fatalf("LinkExternal failed: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("expected the same account, got created=%v id=%s", created, second.ID)
	}
}

func TestLinkExternal_LinksExistingEmail(t *testing.T) {
	svc, _ := setupTestService(t)
	existing, _ := svc.SignUp("t@example.com", "secret1")

	linked, created, err := svc.LinkExternal(models.ProviderGoogle, "google_9", "T@example.com")
	if err != nil {
		t.Fatalf("LinkExternal failed: %v", err)
	}
	if created {
		t.Error("expected linking, not creation")
	}
	if linked.ID != existing.ID || linked.ExternalID != "google_9" {
		t.Errorf("unexpected linked account %+v", linked)
	}

	// password sign-in keeps working after linking
	if _, err := svc.SignIn("t@example.com", "secret1"); err != nil {
		t.Errorf("SignIn after link failed: %v", err)
	}
}

func TestLinkExternal_RequiresExternalID(t *testing.T) {
	svc, _ := setupTestService(t)
	if _, _, err := svc.LinkExternal(models.ProviderGoogle, " ", "g@example.com"); err != ErrExternalIDRequired {
		t.Errorf("expected ErrExternalIDRequired, got %v", err)
	}
}

func TestNewService_LoadsExistingAccounts(t *testing.T) {
	svc1, fs := setupTestService(t)
	created, err := svc1.SignUp("t@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	svc2, err := NewService(fs, testDir)
	if err != nil {
		t.Fatalf("failed to create second service: %v", err)
	}
	loaded, ok := svc2.GetByEmail("t@example.com")
	if !ok {
		t.Fatal("expected account to be loaded from disk")
	}
	if loaded.ID != created.ID || loaded.PasswordHash != created.PasswordHash {
		t.Error("expected persisted account to keep id and hash")
	}
	if _, ok := svc2.Get(created.ID); !ok {
		t.Error("expected Get by id to succeed")
	}
}

func TestSignUp_WriteFailureRollsBack(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll(testDir, 0o755); err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(afero.NewReadOnlyFs(base), testDir)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := svc.SignUp("t@example.com", "secret1"); err == nil {
		t.Fatal("expected write failure")
	}
	if _, ok := svc.GetByEmail("t@example.com"); ok {
		t.Error("expected failed sign-up to leave no account behind")
	}
}

func TestCode_NonAuthError(t *testing.T) {
	if got := Code(errors.New("boom")); got != "" {
		t.Errorf("expected empty code, got %q", got)
	}
	if got := Code(nil); got != "" {
		t.Errorf("expected empty code for nil, got %q", got)
	}
}
