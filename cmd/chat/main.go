package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	url     string
	timeout time.Duration
	noTrip  bool
	trip    models.TripContext
}

func newRootCmd() *cobra.Command {
	opts := options{trip: *client.DefaultTrip()}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the SNCF travel assistant",
		Long: `Interactive terminal client for the travel assistant gateway.

Commands inside the session:
  /taxi     book a taxi to the station
  /train    show your next train
  /traffic  traffic towards the station
  /quit     leave the session`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			session := newSession(opts)
			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), session, newStyles())
		},
	}

	cmd.AddCommand(newAskCmd(&opts))

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.url, "url", envOr("GATEWAY_URL", "http://localhost:8081"), "gateway base URL")
	flags.DurationVar(&opts.timeout, "timeout", 90*time.Second, "per-message timeout")
	flags.BoolVar(&opts.noTrip, "no-trip", false, "send messages without trip context")
	flags.StringVar(&opts.trip.TripID, "trip-id", opts.trip.TripID, "trip id")
	flags.StringVar(&opts.trip.TrainNumber, "train", opts.trip.TrainNumber, "train number")
	flags.StringVar(&opts.trip.DepartureStation, "station", opts.trip.DepartureStation, "departure station")
	flags.StringVar(&opts.trip.DepartureTime, "departure", opts.trip.DepartureTime, "departure time")

	return cmd
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := newSession(*opts)
			reply, err := session.Send(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return err
		},
	}
}

func newSession(opts options) *client.Session {
	c := client.New(opts.url, client.WithHTTPClient(&http.Client{Timeout: opts.timeout}))

	var trip *client.TripContext
	if !opts.noTrip {
		t := opts.trip
		trip = &t
	}
	return client.NewSession(c, client.WithTrip(trip), client.WithWelcome())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type styles struct {
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:     lipgloss.NewStyle().Faint(true),
	}
}

// runChat reads lines from in until /quit or EOF, sending each through session
func runChat(ctx context.Context, in io.Reader, out io.Writer, session *client.Session, st styles) error {
	fmt.Fprintln(out, st.Title.Render("Assistant SNCF"))
	for _, m := range session.Messages() {
		printMessage(out, st, m)
	}
	printHelp(out, st)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, st.User.Render("Vous: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		var (
			reply models.ChatMessage
			err   error
		)
		switch {
		case input == "/quit" || input == "/exit":
			fmt.Fprintln(out, st.Muted.Render("Au revoir !"))
			return nil
		case input == "/help":
			printHelp(out, st)
			continue
		case strings.HasPrefix(input, "/"):
			reply, err = session.SendQuickAction(ctx, strings.TrimPrefix(input, "/"))
			if err == client.ErrUnknownQuickAction {
				fmt.Fprintln(out, st.Error.Render("Commande inconnue: "+input))
				continue
			}
		default:
			reply, err = session.Send(ctx, input)
		}

		if err != nil {
			fmt.Fprintln(out, st.Muted.Render(err.Error()))
		}
		printMessage(out, st, reply)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func printMessage(out io.Writer, st styles, m models.ChatMessage) {
	if m.Role != models.RoleAssistant {
		return
	}
	style := st.Assistant
	if m.Content == client.ApologyMessage {
		style = st.Error
	}
	fmt.Fprintln(out, style.Render("Assistant: "+m.Content))
	fmt.Fprintln(out)
}

func printHelp(out io.Writer, st styles) {
	for _, a := range client.QuickActions() {
		fmt.Fprintln(out, st.Muted.Render(fmt.Sprintf("  /%-8s %s", a.ID, a.Label)))
	}
	fmt.Fprintln(out, st.Muted.Render("  /quit     quitter"))
	fmt.Fprintln(out)
}
