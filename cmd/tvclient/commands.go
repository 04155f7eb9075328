package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/tradevortex-client/auth"
	"github.com/jrsteele09/tradevortex-client/boards"
	"github.com/jrsteele09/tradevortex-client/channels"
	"github.com/jrsteele09/tradevortex-client/news"
	"github.com/jrsteele09/tradevortex-client/prefs"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/token"
	"github.com/rs/zerolog/log"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{"login", "social-login", "whoami", "logout", "posts", "news", "chat", "theme"}

var commands = map[string]command{
	"login":        {"log in with email or username and password", loginCmd},
	"social-login": {"log in with a google, naver or kakao access token", socialLoginCmd},
	"whoami":       {"show the stored session", whoamiCmd},
	"logout":       {"clear the stored session", logoutCmd},
	"posts":        {"list board posts, newest first", postsCmd},
	"news":         {"list a page of news", newsCmd},
	"chat":         {"join the real-time chat; lines from stdin are sent", chatCmd},
	"theme":        {"show or set the UI theme (light or dark)", themeCmd},
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "account username, used when -email is empty")
	password := fs.String("password", os.Getenv("TV_PASSWORD"), "password (default $TV_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session, err := auth.NewService(a.client).Login(ctx, *email, *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", displayName(session.User))
	return nil
}

func socialLoginCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("social-login", flag.ContinueOnError)
	providerName := fs.String("provider", "", "google, naver or kakao")
	accessToken := fs.String("token", "", "access token issued by the provider")
	if err := fs.Parse(args); err != nil {
		return err
	}
	provider, err := auth.ParseProvider(*providerName)
	if err != nil {
		return err
	}

	session, err := auth.NewService(a.client).SocialLogin(ctx, provider, *accessToken)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s via %s\n", displayName(session.User), provider)
	return nil
}

func whoamiCmd(ctx context.Context, a *app, _ []string) error {
	session, err := a.store.Get(ctx)
	if err != nil {
		return err
	}
	if !session.Authenticated() {
		fmt.Println("Not logged in")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "User\t%s\n", displayName(session.User))
	if sub := token.Subject(session.AccessToken); sub != "" {
		fmt.Fprintf(w, "Subject\t%s\n", sub)
	}
	if exp, ok := token.ParseExpiry(session.AccessToken); ok {
		fmt.Fprintf(w, "Access expires\t%s\n", exp.Local().Format(time.RFC3339))
	}
	if exp, ok := token.ParseExpiry(session.RefreshToken); ok {
		fmt.Fprintf(w, "Refresh expires\t%s\n", exp.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Renewable\t%t\n", session.RefreshToken != "")
	return w.Flush()
}

func logoutCmd(ctx context.Context, a *app, _ []string) error {
	if err := auth.NewService(a.client).Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func postsCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	boardType := fs.Int64("board", 0, "board type id, 0 for all boards")
	if err := fs.Parse(args); err != nil {
		return err
	}

	posts, err := boards.NewService(a.client).Posts(ctx, boards.Filter{BoardType: *boardType, Ordering: boards.NewestFirst})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tLIKES\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Title, p.Author, p.LikeCount, p.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func newsCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("news", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := news.NewService(a.client).List(ctx, *page)
	if err != nil {
		return err
	}
	for _, item := range p.Results {
		fmt.Printf("[%d] %s\n     %s\n", item.ID, item.Title, item.URL)
	}
	if p.HasNext() {
		fmt.Printf("\n%d items, more with -page %d\n", p.Count, *page+1)
	}
	return nil
}

func chatCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	sender := fs.String("sender", "", "display name, defaults to the logged in username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sender == "" {
		session, err := a.store.Get(ctx)
		if err != nil {
			return err
		}
		*sender = "guest"
		if session.User != nil && session.User.Username != "" {
			*sender = session.User.Username
		}
	}

	dialer, err := channels.NewDialer(a.cfg.GetWSBaseURL(), channels.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	room, err := dialer.Chat(ctx, func(m channels.ChatMessage) {
		fmt.Printf("%s [%s] %s\n", m.Time, m.Sender, m.Text)
	})
	if err != nil {
		return err
	}
	defer room.Close()

	displayAppname(a.cfg.GetAppName())
	fmt.Printf("Chatting as %s. Ctrl-D to leave.\n", *sender)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-room.Done():
			return fmt.Errorf("chat connection closed")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := room.Send(*sender, line); err != nil {
				return err
			}
		}
	}
}

func themeCmd(ctx context.Context, a *app, args []string) error {
	p := prefs.New(a.kv)
	if len(args) == 0 {
		theme, err := p.Theme(ctx)
		if err != nil {
			return err
		}
		fmt.Println(theme)
		return nil
	}
	return p.SetTheme(ctx, prefs.Theme(strings.ToLower(args[0])))
}

func displayName(u *sessions.User) string {
	switch {
	case u == nil:
		return "unknown user"
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
