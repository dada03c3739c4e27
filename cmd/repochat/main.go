// Command repochat is a terminal chat client for asking questions about a
// repository.
//
// Usage:
//
//	REPOCHAT_TOKEN=... repochat -repo owner/name [flags]
//
// Flags:
//
//	-repo string         Repository identifier (required)
//	-branch string       Repository branch to chat about
//	-base-url string     Assistant service base URL
//	-provider string     Model provider override
//	-model string        Model override
//	-temperature float   Sampling temperature (0 to 2)
//	-max-tokens int      Response token cap
//	-context string      Context mode: full, smart, agentic
//	-resume              Resume the most recently updated chat
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"repochat"
	"repochat/assistant"
	bt "repochat/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "repochat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		repo        = flag.String("repo", "", "Repository identifier (required)")
		branch      = flag.String("branch", "", "Repository branch to chat about")
		baseURL     = flag.String("base-url", "", "Assistant service base URL")
		provider    = flag.String("provider", "", "Model provider override")
		model       = flag.String("model", "", "Model override")
		temperature = flag.Float64("temperature", -1, "Sampling temperature (0 to 2)")
		maxTokens   = flag.Int("max-tokens", 0, "Response token cap")
		contextMode = flag.String("context", "", "Context mode: full, smart, agentic")
		resume      = flag.Bool("resume", false, "Resume the most recently updated chat")
	)
	flag.Parse()

	token := os.Getenv("REPOCHAT_TOKEN")
	if token == "" {
		return errors.New("REPOCHAT_TOKEN is not set")
	}
	if *repo == "" {
		return errors.New("-repo is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var clientOpts []assistant.Option
	if *baseURL != "" {
		clientOpts = append(clientOpts, assistant.WithBaseURL(*baseURL))
	}
	client := assistant.New(clientOpts...)

	feed := bt.NewFeed()
	chatOpts := []repochat.ChatOption{
		repochat.WithOnChange(feed.Transcript),
		repochat.WithOnResolution(feed.Resolution),
	}
	if *branch != "" {
		chatOpts = append(chatOpts, repochat.WithBranch(*branch))
	}
	if *provider != "" {
		chatOpts = append(chatOpts, repochat.WithProvider(*provider))
	}
	if *model != "" {
		chatOpts = append(chatOpts, repochat.WithModel(*model))
	}
	if *temperature >= 0 {
		chatOpts = append(chatOpts, repochat.WithTemperature(*temperature))
	}
	if *maxTokens > 0 {
		chatOpts = append(chatOpts, repochat.WithMaxTokens(*maxTokens))
	}
	if *contextMode != "" {
		chatOpts = append(chatOpts, repochat.WithContextMode(repochat.ContextMode(*contextMode)))
	}

	if *resume {
		session, err := latestSession(ctx, client, token, *repo)
		if err != nil {
			return err
		}
		if session != nil {
			chatOpts = append(chatOpts, repochat.WithSession(*session))
			fmt.Fprintf(os.Stderr, "Resuming chat %s\n", session.ChatID)
		}
	}

	chat := repochat.NewChat(client, token, *repo, chatOpts...)
	m := bt.New(chat, feed, repochat.DefaultTheme())

	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// latestSession picks the most recently updated chat from the history
// listing. Returns nil when there is no history to resume.
func latestSession(ctx context.Context, client *assistant.Client, token, repo string) (*repochat.ChatSession, error) {
	chats, err := client.ListChats(ctx, token, repo)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if len(chats) == 0 {
		return nil, nil
	}
	latest := chats[0]
	for _, ch := range chats[1:] {
		if ch.UpdatedAt.After(latest.UpdatedAt) {
			latest = ch
		}
	}
	return &repochat.ChatSession{ChatID: latest.ID}, nil
}
