// Command inkpost-editor is a line-oriented editor for blog posts. Edits are
// autosaved as drafts after a quiet period; "publish" ends the session.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/klass-lk/inkpost/internal/client"
	"github.com/klass-lk/inkpost/internal/editor"
	"github.com/klass-lk/inkpost/internal/logger"
	"github.com/klass-lk/inkpost/internal/service"
)

const usage = `commands:
  title <text>            set the title
  content <text>          set the content (\n for new lines)
  tags <a, b, c>          set comma-separated tags
  save                    save the draft now
  publish                 publish and exit
  list [drafts|published] list posts, drafts first by default
  show                    show the local fields
  quit                    exit without publishing`

func main() {
	apiURL := flag.String("api", "http://localhost:5000/api/blogs", "base URL of the blog routes")
	id := flag.String("id", "", "id of an existing post to edit")
	debounce := flag.Duration("debounce", editor.DefaultDebounce, "idle time before an autosave")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logger.New(*logLevel, logger.FormatConsole)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	api := client.New(*apiURL, nil)
	session := editor.NewSession(api,
		editor.WithDebounce(*debounce),
		editor.WithNotifier(editor.NewTerminalNotifier(os.Stdout)),
		editor.WithLogger(log),
	)
	defer session.Close()

	// a failed load leaves a new, empty draft
	_ = session.Start(ctx, *id)

	fmt.Println(usage)
	if err := repl(ctx, os.Stdin, os.Stdout, api, session); err != nil {
		log.Error().Err(err).Msg("Editor stopped")
		os.Exit(1)
	}
}

func repl(ctx context.Context, in io.Reader, out io.Writer, api *client.Client, session *editor.Session) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Fprintf(out, "[%s] > ", session.State())
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if quit := handle(ctx, out, api, session, line); quit {
				return nil
			}
		}
	}
}

func handle(ctx context.Context, out io.Writer, api *client.Client, session *editor.Session, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "":
	case "title":
		session.SetTitle(arg)
	case "content":
		session.SetContent(strings.ReplaceAll(arg, `\n`, "\n"))
	case "tags":
		session.SetTags(arg)
	case "save":
		_ = session.Save(ctx)
	case "publish":
		_ = session.Publish(ctx)
	case "list":
		posts, err := service.NewListingService(api).List(ctx, arg != "published")
		if err != nil {
			fmt.Fprintf(out, "Failed to load blogs: %v\n", err)
			return false
		}
		fmt.Fprintln(out, editor.RenderPosts(posts))
	case "show":
		post := session.Snapshot()
		fmt.Fprintf(out, "id: %s\nstatus: %s\ntitle: %s\ntags: %s\n%s\n",
			post.ID, post.Status, post.Title, strings.Join(post.Tags, ", "), post.Content)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintln(out, usage)
	}
	return false
}
