package recall_test

import (
	"errors"
	"testing"
	"time"

	"recall/internal/recall"
	"recall/internal/testutil"
)

func TestIdentityStore_CreateAccount(t *testing.T) {
	t.Run("creates and authenticates", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ids := env.Service.Identity
		ctx := t.Context()

		user, err := ids.CreateAccount(ctx, "ada@example.com", "  Ada  ", "pw-1")
		if err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}
		if user.Name != "Ada" {
			t.Errorf("Name = %q, want trimmed", user.Name)
		}
		if user.PasswordHash == "pw-1" || user.PasswordHash == "" {
			t.Error("password stored unhashed")
		}

		got, err := ids.Authenticate(ctx, "ada@example.com", "pw-1")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("Authenticate() id = %q, want %q", got.ID, user.ID)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ctx := t.Context()
		env.SignUp(t, "ada@example.com")

		_, err := env.Service.Identity.CreateAccount(ctx, "ada@example.com", "Other", "pw")
		if !errors.Is(err, recall.ErrDuplicateEmail) {
			t.Errorf("CreateAccount() error = %v, want ErrDuplicateEmail", err)
		}
	})

	t.Run("different case is a separate account", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ctx := t.Context()
		first, _ := env.SignUp(t, "ada@example.com")

		user, err := env.Service.Identity.CreateAccount(ctx, "Ada@Example.com", "Other", "pw")
		if err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}
		if user.ID == first {
			t.Error("different-cased email reused the first account")
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ctx := t.Context()

		tests := []struct {
			name, email, user, pw string
			wantErr               error
		}{
			{"bad email", "not-an-email", "n", "pw", recall.ErrInvalidEmail},
			{"blank name", "a@b.c", "  ", "pw", recall.ErrEmptyField},
			{"empty password", "a@b.c", "n", "", recall.ErrEmptyField},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.Service.Identity.CreateAccount(ctx, tt.email, tt.user, tt.pw)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateAccount() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})
}

func TestIdentityStore_Authenticate(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	ctx := t.Context()
	env.SignUp(t, "ada@example.com")

	_, errUnknown := env.Service.Identity.Authenticate(ctx, "nobody@example.com", "secret-password")
	_, errWrong := env.Service.Identity.Authenticate(ctx, "ada@example.com", "wrong")

	if !errors.Is(errUnknown, recall.ErrInvalidCredentials) || !errors.Is(errWrong, recall.ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v, want ErrInvalidCredentials", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("messages differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestIdentityStore_Authenticate_paddedEmail(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	ctx := t.Context()
	ids := env.Service.Identity

	user, err := ids.CreateAccount(ctx, " ada@example.com ", "Ada", "pw-1")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("stored email = %q, want trimmed", user.Email)
	}

	for _, email := range []string{" ada@example.com ", "ada@example.com", "\tada@example.com\n"} {
		got, err := ids.Authenticate(ctx, email, "pw-1")
		if err != nil {
			t.Errorf("Authenticate(%q) error = %v", email, err)
			continue
		}
		if got.ID != user.ID {
			t.Errorf("Authenticate(%q) id = %q, want %q", email, got.ID, user.ID)
		}
	}

	if _, err := ids.Authenticate(ctx, " Ada@example.com ", "pw-1"); !errors.Is(err, recall.ErrInvalidCredentials) {
		t.Errorf("Authenticate(different case) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestIdentityStore_Sessions(t *testing.T) {
	t.Run("token lives thirty days", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ctx := t.Context()
		userID, token := env.SignUp(t, "ada@example.com")

		env.Clock.Advance(29 * 24 * time.Hour)
		got, err := env.Service.Identity.ResolveSession(ctx, token)
		if err != nil || got != userID {
			t.Fatalf("ResolveSession() at T+29d = %q, %v", got, err)
		}

		env.Clock.Advance(2 * 24 * time.Hour)
		_, err = env.Service.Identity.ResolveSession(ctx, token)
		if !errors.Is(err, recall.ErrInvalidToken) {
			t.Errorf("ResolveSession() at T+31d error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expiry instant is already expired", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ctx := t.Context()
		_, token := env.SignUp(t, "ada@example.com")

		env.Clock.Advance(recall.DefaultSessionTTL)
		if _, err := env.Service.Identity.ResolveSession(ctx, token); !errors.Is(err, recall.ErrInvalidToken) {
			t.Errorf("ResolveSession() at expiry error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("sessions are independent", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		ctx := t.Context()
		userID, first := env.SignUp(t, "ada@example.com")

		second, err := env.Service.Identity.IssueSession(ctx, userID)
		if err != nil {
			t.Fatalf("IssueSession() error = %v", err)
		}
		if err := env.Service.Identity.RevokeSession(ctx, first); err != nil {
			t.Fatalf("RevokeSession() error = %v", err)
		}

		if _, err := env.Service.Identity.ResolveSession(ctx, first); !errors.Is(err, recall.ErrInvalidToken) {
			t.Errorf("revoked token error = %v, want ErrInvalidToken", err)
		}
		if got, err := env.Service.Identity.ResolveSession(ctx, second); err != nil || got != userID {
			t.Errorf("second token = %q, %v", got, err)
		}
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		if err := env.Service.Identity.RevokeSession(t.Context(), "never-issued"); err != nil {
			t.Errorf("RevokeSession() error = %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		if _, err := env.Service.Identity.ResolveSession(t.Context(), ""); !errors.Is(err, recall.ErrInvalidToken) {
			t.Errorf("ResolveSession(\"\") error = %v", err)
		}
	})
}

func TestIdentityStore_CurrentUser(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	ctx := t.Context()
	userID, token := env.SignUp(t, "ada@example.com")

	user, err := env.Service.Identity.CurrentUser(ctx, token)
	if err != nil || user == nil || user.ID != userID {
		t.Fatalf("CurrentUser() = %+v, %v", user, err)
	}

	user, err = env.Service.Identity.CurrentUser(ctx, "bogus")
	if err != nil || user != nil {
		t.Errorf("CurrentUser(bogus) = %+v, %v; want nil, nil", user, err)
	}
}

func TestIdentityStore_UpdateProfile(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	ctx := t.Context()
	ada, _ := env.SignUp(t, "ada@example.com")
	env.SignUp(t, "bob@example.com")

	t.Run("keeping own email is allowed", func(t *testing.T) {
		user, err := env.Service.Identity.UpdateProfile(ctx, ada, "Ada L.", "ada@example.com")
		if err != nil {
			t.Fatalf("UpdateProfile() error = %v", err)
		}
		if user.Name != "Ada L." {
			t.Errorf("Name = %q", user.Name)
		}
	})

	t.Run("taking another user's email fails", func(t *testing.T) {
		_, err := env.Service.Identity.UpdateProfile(ctx, ada, "Ada", "bob@example.com")
		if !errors.Is(err, recall.ErrDuplicateEmail) {
			t.Errorf("UpdateProfile() error = %v, want ErrDuplicateEmail", err)
		}
	})

	t.Run("malformed email fails", func(t *testing.T) {
		_, err := env.Service.Identity.UpdateProfile(ctx, ada, "Ada", "ada-at-example")
		if !errors.Is(err, recall.ErrInvalidEmail) {
			t.Errorf("UpdateProfile() error = %v, want ErrInvalidEmail", err)
		}
	})
}

func TestIdentityStore_ChangePassword(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	ctx := t.Context()
	userID, _ := env.SignUp(t, "ada@example.com")
	ids := env.Service.Identity

	if err := ids.ChangePassword(ctx, userID, "wrong", "new-pw"); !errors.Is(err, recall.ErrIncorrectPassword) {
		t.Fatalf("ChangePassword(wrong current) error = %v", err)
	}
	if err := ids.ChangePassword(ctx, userID, "secret-password", ""); !errors.Is(err, recall.ErrEmptyField) {
		t.Fatalf("ChangePassword(empty new) error = %v", err)
	}
	if err := ids.ChangePassword(ctx, userID, "secret-password", "new-pw"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := ids.Authenticate(ctx, "ada@example.com", "secret-password"); !errors.Is(err, recall.ErrInvalidCredentials) {
		t.Errorf("old password still works: %v", err)
	}
	if _, err := ids.Authenticate(ctx, "ada@example.com", "new-pw"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
