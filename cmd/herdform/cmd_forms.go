package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-herdform"
	"github.com/goliatone/go-herdform/internal/prompt"
	"github.com/goliatone/go-herdform/pkg/dashboard"
	pkgopenapi "github.com/goliatone/go-herdform/pkg/openapi"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/render"
	"github.com/goliatone/go-herdform/pkg/submit"
	"github.com/goliatone/go-herdform/pkg/table"
)

var interactive bool

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "List the forms found on the page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return s.list(ctx, formsView("forms", s.dash.Forms()))
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <form> [name=value...]",
	Short: "Submit a form and show its status",
	Long: `Posts the form with its current values, replaced by the given name=value
pairs. With --interactive the remaining fields are asked for. JSON replies are
shown as the form status; file replies are saved in the download directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		preset, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return s.submit(ctx, args[0], preset, interactive)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Log in to the herd application",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		email := ""
		if len(args) == 1 {
			email = args[0]
		}
		if err := s.login(ctx, prompt.NewSurvey(), email); err != nil {
			_ = s.status(ctx, loginFormID)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Connecté.")
		return nil
	},
}

var openapiCmd = &cobra.Command{
	Use:   "openapi-forms <path|url>",
	Short: "List the forms described by an OpenAPI document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, err := pkgopenapi.SourceFor(args[0])
		if err != nil {
			return err
		}
		var opts []pkgopenapi.FormOption
		if base, err := cfg.BaseURL(); err == nil {
			opts = append(opts, pkgopenapi.WithBaseURL(base))
		}
		loader := herdform.NewLoader(pkgopenapi.WithHTTPFallback(cfg.Server.Timeout))
		pg, err := herdform.DiscoverForms(ctx, loader, nil, src, opts...)
		if err != nil {
			return err
		}
		registry, err := renderers()
		if err != nil {
			return err
		}
		r, err := registry.Get(rendererName)
		if err != nil {
			return err
		}
		body, err := r.RenderList(ctx, formsView("openapi", pg.Forms()), renderOptions(cfg))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	},
}

func init() {
	submitCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask for the fields not given as arguments")
}

func (s *session) submit(ctx context.Context, formID string, preset url.Values, ask bool) error {
	values := preset
	if ask {
		desc, ok := s.dash.Page().Form(formID)
		if !ok {
			return fmt.Errorf("unknown form %q", formID)
		}
		var err error
		if values, err = prompt.Fill(ctx, prompt.NewSurvey(), desc, preset); err != nil {
			return err
		}
	}

	out, err := s.dash.Submit(ctx, formID, values)
	if errors.Is(err, dashboard.ErrUnknownForm) || errors.Is(err, dashboard.ErrFormRemoved) {
		return err
	}
	if err := s.status(ctx, formID); err != nil {
		return err
	}
	switch {
	case err != nil:
		return err
	case out.Kind == submit.KindDownload && out.Download != nil:
		fmt.Fprintf(s.out, "Fichier enregistré : %s (%d octets)\n", out.Download.Location, out.Download.Size)
	case out.Kind == submit.KindRedirect:
		fmt.Fprintf(s.out, "Redirection : %s\n", out.Location)
	case out.Status.Tone == submit.ToneFailure:
		return fmt.Errorf("%s: %s", formID, out.Status.Text)
	}
	return nil
}

// parseAssignments reads name=value arguments. Repeated names keep every
// value in order.
func parseAssignments(args []string) (url.Values, error) {
	values := url.Values{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		values.Add(name, value)
	}
	return values, nil
}

func formsView(name string, forms []page.FormDescriptor) render.ListView {
	view := render.ListView{
		Name:      name,
		Title:     "Formulaires",
		Columns:   []string{"Formulaire", "Méthode", "Action", "Statut", "Options"},
		EmptyText: "Aucun formulaire.",
	}
	for _, f := range forms {
		status := f.StatusID
		if f.Silent() {
			status = "-"
		}
		var flags []string
		if f.OneShot {
			flags = append(flags, "one-shot")
		}
		if f.NonJSON != "" {
			flags = append(flags, string(f.NonJSON))
		}
		if len(f.Refresh) > 0 {
			flags = append(flags, "refresh="+strings.Join(f.Refresh, ","))
		}
		view.Rows = append(view.Rows, table.Row{
			ID:    f.ID,
			Cells: []string{f.ID, f.Method, f.Action, status, strings.Join(flags, " ")},
		})
	}
	return view
}
