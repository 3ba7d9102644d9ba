package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/carebook-portal/internal/cli"
	"github.com/jrsteele09/carebook-portal/internal/config"
	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/portal/portalfake"
	"github.com/jrsteele09/carebook-portal/users"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	fake    *portalfake.Server
	folder  string
	storage string
}

func newCLIFixture(t *testing.T, storage string) *cliFixture {
	t.Helper()
	fake := portalfake.New()
	t.Cleanup(fake.Close)
	fake.AddAccount(portalfake.Account{
		ID:        "abc",
		Email:     "house@example.com",
		Password:  "vicodin",
		Name:      "Gregory House",
		Role:      users.RoleDoctor,
		Confirmed: true,
	})
	return &cliFixture{fake: fake, folder: t.TempDir(), storage: storage}
}

// run executes one CLI invocation, as a separate process would
func (f *cliFixture) run(ctx context.Context, t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd(config.New())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--api-url", f.fake.APIBaseURL(),
		"--token-url", f.fake.TokenBaseURL(),
		"--folder", f.folder,
		"--storage", f.storage,
		"--log-level", "disabled",
		"--no-color",
	}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (f *cliFixture) whoami(t *testing.T) map[string]any {
	t.Helper()
	out, err := f.run(context.Background(), t, "", "whoami", "--json")
	require.NoError(t, err)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	return view
}

func TestCLI_LoginWhoamiLogout(t *testing.T) {
	for _, storage := range []string{"file", "sqlite"} {
		t.Run(storage, func(t *testing.T) {
			f := newCLIFixture(t, storage)

			out, err := f.run(context.Background(), t, "", "login", "--email", "house@example.com", "--password", "vicodin")
			require.NoError(t, err)
			require.Contains(t, out, "Signed in as house@example.com (Doctor)")

			view := f.whoami(t)
			require.Equal(t, "authenticated", view["state"])
			require.Equal(t, "abc", view["id"])
			require.Equal(t, "Doctor", view["role"])
			require.Equal(t, true, view["canRefresh"])
			require.Equal(t, true, view["staff"])
			require.NotContains(t, view, "accessToken")

			out, err = f.run(context.Background(), t, "", "whoami")
			require.NoError(t, err)
			require.Contains(t, out, "role:    Doctor")

			out, err = f.run(context.Background(), t, "", "logout")
			require.NoError(t, err)
			require.Contains(t, out, "Signed out")
			require.Equal(t, "unauthenticated", f.whoami(t)["state"])
			require.Equal(t, 1, f.fake.Calls(portal.OpLogin))
			require.Equal(t, 1, f.fake.Calls(portal.OpLogout))
		})
	}
}

func TestCLI_LoginPrompts(t *testing.T) {
	f := newCLIFixture(t, "file")

	out, err := f.run(context.Background(), t, "house@example.com\nvicodin\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Email: ")
	require.Contains(t, out, "Password: ")
	require.Contains(t, out, "Signed in as house@example.com")
}

func TestCLI_LoginRejected(t *testing.T) {
	f := newCLIFixture(t, "file")

	_, err := f.run(context.Background(), t, "", "login", "--email", "house@example.com", "--password", "wrong")
	require.ErrorIs(t, err, perrors.ErrInvalidCredentials)
	require.Equal(t, "unauthenticated", f.whoami(t)["state"])
}

func TestCLI_LoginWithTokens(t *testing.T) {
	f := newCLIFixture(t, "file")
	account := &portalfake.Account{ID: "n1", Email: "nurse@example.com", Role: users.RoleNurse}
	accessToken := f.fake.IssueAccessToken(account, time.Hour)

	out, err := f.run(context.Background(), t, "", "login", "--access-token", accessToken, "--refresh-token", "r-1")
	require.NoError(t, err)
	require.Contains(t, out, "(Nurse)")
	require.Zero(t, f.fake.Calls(portal.OpLogin))
	require.Equal(t, "n1", f.whoami(t)["id"])
}

func TestCLI_Register(t *testing.T) {
	f := newCLIFixture(t, "file")

	out, err := f.run(context.Background(), t, "", "register", "--email", "patient@example.com", "--password", "pw", "--name", "Pat")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as patient@example.com (Patient)")
	require.Equal(t, "Patient", f.whoami(t)["role"])

	_, err = f.run(context.Background(), t, "", "register", "--email", "x@example.com", "--password", "pw", "--role", "Janitor")
	require.ErrorIs(t, err, perrors.ErrInvalidInput)

	out, err = f.run(context.Background(), t, "", "register", "--email", "house@example.com", "--password", "pw")
	require.Error(t, err)
	require.Contains(t, out, "Registration refused: Email already registered")
}

func TestCLI_Refresh(t *testing.T) {
	f := newCLIFixture(t, "file")
	_, err := f.run(context.Background(), t, "", "refresh")
	require.ErrorIs(t, err, perrors.ErrNotAuthenticated)

	_, err = f.run(context.Background(), t, "", "login", "--email", "house@example.com", "--password", "vicodin")
	require.NoError(t, err)

	out, err := f.run(context.Background(), t, "", "refresh")
	require.NoError(t, err)
	require.Contains(t, out, "Session refreshed")
	require.Equal(t, 1, f.fake.Calls(portal.OpRefresh))
	require.Equal(t, "authenticated", f.whoami(t)["state"])
}

func TestCLI_Keepalive(t *testing.T) {
	f := newCLIFixture(t, "file")

	_, err := f.run(context.Background(), t, "", "keepalive")
	require.ErrorIs(t, err, perrors.ErrNotAuthenticated)

	_, err = f.run(context.Background(), t, "", "login", "--email", "house@example.com", "--password", "vicodin")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	out, err := f.run(ctx, t, "", "keepalive")
	require.NoError(t, err)
	require.Contains(t, out, "keeping house@example.com signed in")
	require.Contains(t, out, "stopped, session kept")
	require.Equal(t, "authenticated", f.whoami(t)["state"])
}

func TestCLI_RootPrintsBanner(t *testing.T) {
	f := newCLIFixture(t, "memory")

	out, err := f.run(context.Background(), t, "")
	require.NoError(t, err)
	require.Contains(t, out, "login")
	require.Contains(t, out, "keepalive")
	require.Greater(t, strings.Count(out, "\n"), 10)
}

func TestCLI_BadStorageBackend(t *testing.T) {
	f := newCLIFixture(t, "floppy")

	_, err := f.run(context.Background(), t, "", "whoami")
	require.ErrorContains(t, err, "unknown storage backend")
}
