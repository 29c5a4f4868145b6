package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rspamd/rspamd-api-go/config"
	"github.com/rspamd/rspamd-api-go/protocol"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// envelopeFlags are the SMTP envelope options of the message commands.
type envelopeFlags struct {
	from       string
	rcpt       []string
	ip         string
	helo       string
	hostname   string
	user       string
	deliverTo  string
	queueID    string
	settingsID string
	settings   string
}

func (e *envelopeFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&e.from, "from", "", "SMTP MAIL FROM")
	f.StringArrayVar(&e.rcpt, "rcpt", nil, "SMTP RCPT TO (repeatable)")
	f.StringVarP(&e.ip, "ip", "i", "", "sender IP address")
	f.StringVar(&e.helo, "helo", "", "SMTP HELO")
	f.StringVar(&e.hostname, "hostname", "", "resolved hostname of the sender")
	f.StringVarP(&e.user, "user", "u", "", "authenticated user")
	f.StringVar(&e.deliverTo, "deliver-to", "", "actual delivery recipient")
	f.StringVar(&e.queueID, "queue-id", "", "SMTP queue id")
	f.StringVar(&e.settingsID, "settings-id", "", "settings id configured on the daemon")
	f.StringVar(&e.settings, "settings", "", "settings JSON object")
}

func (e *envelopeFlags) envelope() (*config.EnvelopeData, error) {
	env := config.NewEnvelopeData()
	for _, r := range e.rcpt {
		env.WithRcpt(r)
	}
	opt := func(v string, set func(string) *config.EnvelopeData) {
		if v != "" {
			set(v)
		}
	}
	opt(e.from, env.WithFrom)
	opt(e.ip, env.WithIP)
	opt(e.helo, env.WithHelo)
	opt(e.hostname, env.WithHostname)
	opt(e.user, env.WithUser)
	opt(e.deliverTo, env.WithDeliverTo)
	opt(e.queueID, env.WithQueueID)
	opt(e.settingsID, env.WithSettingsID)

	if e.settings != "" {
		if !gjson.Valid(e.settings) || !gjson.Parse(e.settings).IsObject() {
			return nil, fmt.Errorf("--settings must be a JSON object")
		}
		env.Settings = e.settings
	}
	return env, nil
}

// messageHeaders merges the envelope with --header and --flags. Explicit
// headers win.
func (o *options) messageHeaders(e *envelopeFlags) (protocol.Headers, error) {
	env, err := e.envelope()
	if err != nil {
		return nil, err
	}
	h := env.ToHeaders()
	extra, err := o.requestHeaders()
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		h[k] = v
	}
	return h, nil
}

// readMessage reads the message from the file named in args, or stdin when
// there is none or it is "-".
func readMessage(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func newScanCmd(o *options) *cobra.Command {
	env := &envelopeFlags{}
	cmd := &cobra.Command{
		Use:     "scan [file]",
		Aliases: []string{"check", "checkv2"},
		Short:   "Scan a message and print the verdict",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			headers, err := o.messageHeaders(env)
			if err != nil {
				return err
			}
			c, err := o.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			reply, err := c.Scan(cmd.Context(), msg, headers)
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), reply.Raw())
			}
			printScanReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	env.register(cmd)
	return cmd
}

func newMessageCmd(o *options, command protocol.RspamdCommand) *cobra.Command {
	env := &envelopeFlags{}
	route := command.String()
	cmd := &cobra.Command{
		Use:   route + " [file]",
		Short: fmt.Sprintf("POST a message to /%s", route),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			headers, err := o.messageHeaders(env)
			if err != nil {
				return err
			}
			c, err := o.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Execute(cmd.Context(), command, msg, headers)
			if err != nil {
				return err
			}
			return o.printResponse(cmd.OutOrStdout(), resp)
		},
	}
	if alias := legacyName(route); alias != route {
		cmd.Aliases = []string{alias}
	}
	env.register(cmd)
	return cmd
}

func newQueryCmd(o *options, command protocol.RspamdCommand) *cobra.Command {
	route := command.String()
	return &cobra.Command{
		Use:   route,
		Short: fmt.Sprintf("GET /%s", route),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			headers, err := o.requestHeaders()
			if err != nil {
				return err
			}
			c, err := o.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Execute(cmd.Context(), command, nil, headers)
			if err != nil {
				return err
			}
			return o.printResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func newPingCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the controller answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Ping(cmd.Context())
			if err != nil {
				return err
			}
			return o.printResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func newGraphCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "graph <hourly|daily|weekly|monthly>",
		Short:     "Print throughput graph data",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"hourly", "daily", "weekly", "monthly"},
		RunE: func(cmd *cobra.Command, args []string) error {
			headers, err := o.requestHeaders()
			if err != nil {
				return err
			}
			c, err := o.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Graph(cmd.Context(), args[0], headers)
			if err != nil {
				return err
			}
			return o.printResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rspamc-go version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rspamc-go %s\n", version)
		},
	}
}

// legacyName maps a route to the rspamc command name, e.g. learnspam to
// learn_spam.
func legacyName(route string) string {
	for _, prefix := range []string{"learn", "fuzzy"} {
		if rest, ok := strings.CutPrefix(route, prefix); ok && rest != "" {
			return prefix + "_" + rest
		}
	}
	return route
}

func (o *options) printResponse(w io.Writer, resp *protocol.Response) error {
	if !resp.IsJSON {
		text := strings.TrimRight(resp.String(), "\n")
		if o.json {
			quoted, _ := json.Marshal(text)
			text = string(quoted)
		}
		_, err := fmt.Fprintln(w, text)
		return err
	}
	return printJSON(w, resp.Raw)
}

func printJSON(w io.Writer, raw []byte) error {
	_, err := fmt.Fprint(w, gjson.GetBytes(raw, "@pretty").Raw)
	return err
}

func printScanReply(w io.Writer, r *protocol.ScanReply) {
	fmt.Fprintf(w, "Action: %s\n", r.Action)
	fmt.Fprintf(w, "Score: %.2f / %.2f\n", r.Score, r.RequiredScore)
	if r.MessageID != "" {
		fmt.Fprintf(w, "Message-ID: %s\n", r.MessageID)
	}
	if len(r.Symbols) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSCORE\tOPTIONS")
	for _, s := range r.Symbols {
		opts := ""
		if s.Options != nil {
			opts = strings.Join(*s.Options, ", ")
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", s.Name, s.Score, opts)
	}
	tw.Flush()
}
