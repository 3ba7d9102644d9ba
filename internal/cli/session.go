package cli

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/carebook-portal/auth"
	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
	"github.com/jrsteele09/carebook-portal/sessions"
	"github.com/spf13/cobra"
)

// whoami is the printable view of a session; tokens are never printed
type whoami struct {
	State   string    `json:"state"`
	ID      string    `json:"id,omitempty"`
	Role    string    `json:"role,omitempty"`
	Email   string    `json:"email,omitempty"`
	Name    string    `json:"name,omitempty"`
	Staff   bool      `json:"staff"`
	Expires time.Time `json:"expires,omitzero"`
	Refresh bool      `json:"canRefresh"`
}

func newWhoamiCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := whoami{State: a.manager.State().String()}
			if current := a.manager.Current(); current != nil {
				view.ID = current.ID
				view.Role = current.Role.String()
				view.Staff = current.Role.IsStaff()
				view.Email = current.Email
				view.Name = current.Name
				view.Expires = current.ExpiresAt().UTC()
				view.Refresh = current.RefreshToken != ""
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			p := a.painter(cmd.OutOrStdout())
			current := a.manager.Current()
			if current == nil {
				p.printf("%s Not signed in\n", p.state(a.manager.State()))
				return nil
			}
			p.printf("%s %s\n", p.state(a.manager.State()), current.Email)
			p.printf("  id:      %s\n", current.ID)
			p.printf("  name:    %s\n", current.Name)
			p.printf("  role:    %s\n", p.role(current.Role))
			p.printf("  expires: %s (%s)\n", view.Expires.Format(time.RFC3339), time.Until(current.ExpiresAt()).Round(time.Second))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new token pair now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager.Refresh(contextOf(cmd)); err != nil {
				return err
			}
			current := a.manager.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed, expires %s\n", current.ExpiresAt().UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func newKeepaliveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keepalive",
		Short: "Keep the session refreshed until interrupted",
		Long: "Restore the session and keep refreshing it ahead of expiry until " +
			"interrupted or until the session ends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			p := a.painter(cmd.OutOrStdout())
			printBanner(cmd.OutOrStdout(), a.cfg.GetAppName())

			if !a.manager.IsAuthenticated() {
				return fmt.Errorf("keepalive: %w", perrors.ErrNotAuthenticated)
			}

			ended := make(chan struct{})
			var once sync.Once
			var mu sync.Mutex
			unsubscribe := a.manager.Subscribe(func(state auth.State, session *sessions.Session) {
				mu.Lock()
				p.printf("%s %s\n", time.Now().Format(time.Kitchen), p.state(state))
				mu.Unlock()
				if state == auth.StateUnauthenticated {
					once.Do(func() { close(ended) })
				}
			})
			defer unsubscribe()

			if current := a.manager.Current(); current != nil {
				mu.Lock()
				p.printf("%s keeping %s signed in, expires %s\n", p.state(auth.StateAuthenticated), current.Email, current.ExpiresAt().UTC().Format(time.RFC3339))
				mu.Unlock()
			}

			select {
			case <-ctx.Done():
				unsubscribe()
				mu.Lock()
				defer mu.Unlock()
				p.printf("stopped, session kept\n")
				return nil
			case <-ended:
				return fmt.Errorf("keepalive: session ended: %w", perrors.ErrNotAuthenticated)
			}
		},
	}
}
