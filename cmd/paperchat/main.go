package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"paperchat/internal/app"
	"paperchat/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	repoURL = "https://github.com/paperchat/paperchat"
)

func loadApplication() (*app.Application, error) {
	_ = godotenv.Load()
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	return app.NewApplication(cfg), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func main() {
	root := &cobra.Command{
		Use:     "paperchat",
		Short:   "Paperchat - search research papers and chat with your PDFs",
		Long:    "Paperchat is a terminal client for a document QA backend.\n\nUse without arguments for TUI mode, or with a subcommand for one-shot operations.\n\nFor more information, visit: " + repoURL,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApplication()
			if err != nil {
				return err
			}
			p := tea.NewProgram(tui.New(application), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search papers and print one page of results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := loadApplication()
			if err != nil {
				return err
			}
			req, err := application.Search.Begin(args[0], searchPage)
			if err != nil {
				return err
			}
			out := application.Search.Execute(ctx, req)
			if out.Err != nil {
				return out.Err
			}
			application.Search.Apply(out)

			fmt.Printf("Page %d of %d (%d results total)\n\n", application.Search.Page(), application.Search.TotalPages(), out.Total)
			for i, p := range application.Search.Papers() {
				marker := "  "
				if application.Search.Important(i) {
					marker = "* "
				}
				fmt.Printf("%s%s\n", marker, p.Title)
				fmt.Printf("    %s (%d) · %d citations\n", p.Authors, p.Year, p.Citations)
				if p.PDFLink != "" {
					fmt.Printf("    %s\n", p.PDFLink)
				}
			}
			return nil
		},
	}
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page to fetch")

	uploadCmd := &cobra.Command{
		Use:   "upload [file.pdf]",
		Short: "Upload a PDF document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := loadApplication()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			resp, err := application.Documents.Upload(ctx, args[0], f, uploadTopicID)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s (%d chunks, document %d)\n", resp.Message, resp.Filename, resp.Chunks, resp.DocumentID)
			return nil
		},
	}
	uploadCmd.Flags().Int64Var(&uploadTopicID, "topic-id", 0, "Attach the document to a topic")

	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List saved topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := loadApplication()
			if err != nil {
				return err
			}
			topics, err := application.Topics.FetchTopics(ctx)
			if err != nil {
				return err
			}
			for _, t := range topics {
				fmt.Printf("%d\t%s\t%d papers\n", t.ID, t.Name, t.PaperCount)
			}
			return nil
		},
	}

	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "List uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := loadApplication()
			if err != nil {
				return err
			}
			docs, err := application.Documents.Fetch(ctx, docsTopicID)
			if err != nil {
				return err
			}
			for _, d := range docs {
				fmt.Printf("%d\t%s\t%d chunks\t%s\n", d.ID, d.Filename, d.ChunkCount, d.UploadDate)
			}
			return nil
		},
	}
	docsCmd.Flags().Int64Var(&docsTopicID, "topic-id", 0, "Filter by topic (0 lists all documents)")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := loadApplication()
			if err != nil {
				return err
			}
			sessions, err := application.Sessions.Fetch(ctx)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Printf("%d\t%s\t%d documents\t%s\n", s.ID, s.Name, s.DocumentCount, s.CreatedDate)
			}
			return nil
		},
	}

	sessionCmd := &cobra.Command{
		Use:   "session [id]",
		Short: "Show a session and its member documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			application, err := loadApplication()
			if err != nil {
				return err
			}
			details, err := application.Sessions.FetchDetails(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("%s (session %d)\n", details.Name, details.ID)
			for _, d := range details.Documents {
				fmt.Printf("  %d\t%s\n", d.ID, d.Filename)
			}
			return nil
		},
	}

	root.AddCommand(searchCmd, uploadCmd, topicsCmd, docsCmd, sessionsCmd, sessionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	searchPage    int
	uploadTopicID int64
	docsTopicID   int64
)
