package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"wikit-semantics/internal/generator"
	"wikit-semantics/internal/model"
	"wikit-semantics/internal/service"
)

var preview struct {
	server   string
	basePath string
	user     string
	itemType string
}

var previewCmd = &cobra.Command{
	Use:   "preview <ticket-id>",
	Short: "Generate an answer for a ticket through a running server, like the browser widget does",
	Long: `Logs in to a development server, loads the ticket page, wires the answer
buttons, generates an answer and prints what ends up in the editor.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	f := previewCmd.Flags()
	f.StringVar(&preview.server, "server", "http://localhost:3000", "Server origin")
	f.StringVar(&preview.basePath, "base-path", "", "Route prefix of the server")
	f.StringVar(&preview.user, "user", "", "Login name")
	f.StringVar(&preview.itemType, "item-type", string(model.ItemFollowup), "followup, solution or task")
	_ = previewCmd.MarkFlagRequired("user")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ticketID, err := service.ParseTicketID(args[0])
	if err != nil {
		return err
	}
	itemType, err := model.ParseItemType(preview.itemType)
	if err != nil {
		return err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	client := &http.Client{Jar: jar}
	origin := strings.TrimRight(preview.server, "/")
	prefix := origin + strings.TrimRight(preview.basePath, "/")

	resp, err := client.PostForm(prefix+"/login", url.Values{"name": {preview.user}})
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login as %s: HTTP %d", preview.user, resp.StatusCode)
	}

	page, err := loadPage(ctx, client, fmt.Sprintf("%s/tickets/%d", prefix, ticketID))
	if err != nil {
		return err
	}

	reg := generator.NewRegistry(page, client, origin)
	reg.Scan()
	g := reg.Widget(ticketID, itemType)
	if g == nil {
		return fmt.Errorf("no answer button for %s on ticket %d", itemType, ticketID)
	}

	mode := "buffered"
	if g.Config().StreamingEnabled {
		mode = "streaming"
	}
	fmt.Printf("Generating %s answer (%s)...\n", itemType, mode)
	if err := g.Generate(ctx); err != nil {
		return err
	}
	if err := g.Add(); err != nil {
		return err
	}

	editor, err := page.Editor(itemType)
	if err != nil {
		return err
	}
	fmt.Println(editor)
	return nil
}

func loadPage(ctx context.Context, client *http.Client, pageURL string) (*generator.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", pageURL, resp.StatusCode)
	}
	return generator.ParsePage(resp.Body, "")
}
