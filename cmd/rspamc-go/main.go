// Command rspamc-go talks to the controller of an Rspamd daemon.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rspamd/rspamd-api-go/client"
	"github.com/rspamd/rspamd-api-go/config"
	"github.com/rspamd/rspamd-api-go/protocol"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is overridden via -ldflags "-X main.version=...".
var version = config.Version

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	cfgFile  string
	headers  []string
	flags    string
	logLevel string
	logFile  string
	json     bool

	v      *viper.Viper
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	o := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "rspamc-go",
		Short: "Rspamd controller client",
		Long: `rspamc-go sends messages and queries to the controller worker of an
Rspamd daemon: scanning, learning, fuzzy storage and statistics.

Settings come from flags, RSPAMD_* environment variables or a YAML config
file, in that order of precedence:

  RSPAMD_URL=http://mail:11334 rspamc-go scan message.eml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file (YAML)")
	pf.String("url", config.DefaultBaseURL, "controller base URL")
	pf.String("user-agent", config.DefaultUserAgent, "User-Agent sent when no header overrides it")
	pf.String("password", "", "controller password")
	pf.Float64("timeout", config.DefaultTimeout, "request timeout in seconds")
	pf.Bool("zstd", false, "compress request and reply bodies with zstd")
	pf.String("encryption-key", "", "daemon public key for HTTPCrypt (base32)")
	pf.StringArrayVarP(&o.headers, "header", "H", nil, "extra request header as Name=Value (repeatable)")
	pf.StringVar(&o.flags, "flags", "", "comma separated output flags, e.g. pass_all,groups")
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.StringVar(&o.logFile, "log-file", "", "also write JSON logs to this file, rotated")
	pf.BoolVar(&o.json, "json", false, "print replies as JSON")

	for key, flag := range map[string]string{
		"url":            "url",
		"user_agent":     "user-agent",
		"password":       "password",
		"timeout":        "timeout",
		"zstd":           "zstd",
		"encryption_key": "encryption-key",
	} {
		_ = o.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(newScanCmd(o))
	for _, cmd := range []protocol.RspamdCommand{protocol.LearnSpam, protocol.LearnHam, protocol.FuzzyAdd, protocol.FuzzyDel} {
		root.AddCommand(newMessageCmd(o, cmd))
	}
	root.AddCommand(newPingCmd(o), newGraphCmd(o), newVersionCmd())
	for _, cmd := range protocol.Commands() {
		ep := protocol.FromCommand(cmd)
		if ep.NeedBody || cmd == protocol.Ping || cmd == protocol.Graph {
			continue
		}
		root.AddCommand(newQueryCmd(o, cmd))
	}
	return root
}

func (o *options) init(cmd *cobra.Command) error {
	config.BindEnv(o.v)
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
		if err := o.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", o.cfgFile, err)
		}
	}

	logger, err := newLogger(o.logLevel, o.logFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

func (o *options) newClient() (*client.Client, error) {
	cfg, err := config.Load(o.v)
	if err != nil {
		return nil, err
	}
	return client.NewClient(cfg, client.WithLogger(o.logger))
}

// requestHeaders turns --header and --flags into request headers.
func (o *options) requestHeaders() (protocol.Headers, error) {
	h, err := parseHeaders(o.headers)
	if err != nil {
		return nil, err
	}
	if o.flags != "" {
		h[protocol.FlagsHeader] = o.flags
	}
	return h, nil
}

func parseHeaders(raw []string) (protocol.Headers, error) {
	h := make(protocol.Headers, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want Name=Value", kv)
		}
		h[name] = value
	}
	return h, nil
}
