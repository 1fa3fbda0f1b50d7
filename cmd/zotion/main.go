package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"zotion/internal/client"
	"zotion/internal/palette"
	"zotion/internal/sidebar"
)

type CLI struct {
	Server  string        `env:"ZOTION_URL" default:"http://localhost:8080" help:"Base URL of the zotion server."`
	Token   string        `env:"ZOTION_TOKEN" help:"Bearer token sent with every request."`
	Timeout time.Duration `default:"30s" help:"Request timeout."`
	Debug   bool          `env:"ZOTION_DEBUG" help:"Enable debug logging."`

	Search  SearchCmd  `cmd:"" help:"Search pages by title."`
	Tree    TreeCmd    `cmd:"" help:"Print the sidebar tree."`
	Rewrite RewriteCmd `cmd:"" help:"Rewrite a page's content with AI and save it."`
	Open    OpenCmd    `cmd:"" help:"Print the route of a page."`
}

type SearchCmd struct {
	Query string `arg:"" optional:"" help:"Text to match against titles."`
}

func (cmd *SearchCmd) Run(ctx context.Context, api *client.Client) error {
	var state palette.State
	if err := api.Get(ctx, "/api/palette?q="+url.QueryEscape(cmd.Query), &state); err != nil {
		return err
	}
	fmt.Print(formatItems(state))
	return nil
}

type TreeCmd struct {
	Expand []string      `short:"e" help:"Document ids to expand, outermost first."`
	Wait   time.Duration `default:"5s" help:"How long to wait for every level to load."`
}

func (cmd *TreeCmd) Run(ctx context.Context, api *client.Client) error {
	var session struct {
		ID   string       `json:"id"`
		View sidebar.View `json:"view"`
	}
	if err := api.Post(ctx, "/api/sidebar/sessions", nil, &session); err != nil {
		return err
	}
	defer func() {
		if err := api.Do(context.Background(), "DELETE", "/api/sidebar/sessions/"+session.ID, nil, nil); err != nil {
			slog.Debug("failed to close sidebar session", "session_id", session.ID, "error", err)
		}
	}()

	base := "/api/sidebar/sessions/" + session.ID
	view, err := waitResolved(ctx, api, base, cmd.Wait)
	if err != nil {
		return err
	}

	// A child id only becomes visible once its parent level has loaded.
	for _, id := range cmd.Expand {
		var resp struct {
			Expanded bool `json:"expanded"`
		}
		if err := api.Post(ctx, base+"/toggle", map[string]string{"document_id": id}, &resp); err != nil {
			return fmt.Errorf("expand %s: %w", id, err)
		}
		if view, err = waitResolved(ctx, api, base, cmd.Wait); err != nil {
			return err
		}
	}

	fmt.Print(formatTree(view))
	return nil
}

// waitResolved polls the session until no level shows placeholders or wait elapses.
func waitResolved(ctx context.Context, api *client.Client, path string, wait time.Duration) (sidebar.View, error) {
	deadline := time.Now().Add(wait)
	for {
		var resp struct {
			View sidebar.View `json:"view"`
		}
		if err := api.Get(ctx, path, &resp); err != nil {
			return sidebar.View{}, err
		}
		if resolved(resp.View) || time.Now().After(deadline) {
			return resp.View, nil
		}

		select {
		case <-ctx.Done():
			return sidebar.View{}, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

type RewriteCmd struct {
	ID string `arg:"" help:"Document id."`
}

func (cmd *RewriteCmd) Run(ctx context.Context, api *client.Client) error {
	fmt.Fprintln(os.Stderr, palette.MsgRewriting)

	var doc struct {
		Title   string  `json:"title"`
		Content *string `json:"content"`
	}
	if err := api.Post(ctx, "/api/palette/documents/"+cmd.ID+"/rewrite", nil, &doc); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			return errors.New(palette.MsgRewriteFailed)
		}
		return err
	}

	fmt.Fprintln(os.Stderr, palette.MsgRewritten)
	if doc.Content != nil {
		fmt.Println(*doc.Content)
	}
	return nil
}

type OpenCmd struct {
	ID string `arg:"" help:"Document id."`
}

func (cmd *OpenCmd) Run(ctx context.Context, api *client.Client) error {
	var resp struct {
		Route string `json:"route"`
	}
	if err := api.Post(ctx, "/api/palette/select", map[string]string{"document_id": cmd.ID}, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Route)
	return nil
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("zotion"),
		kong.Description("Terminal client for a zotion workspace."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zotion: %v\n", err)
		os.Exit(1)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)

	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	api := client.New(cli.Server, client.WithToken(cli.Token))
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(api)

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
