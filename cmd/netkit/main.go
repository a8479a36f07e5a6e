package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GriffinCanCode/netkit/internal/httpclient"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/reachability"
	"github.com/GriffinCanCode/netkit/internal/serializer"
	"github.com/GriffinCanCode/netkit/internal/session"
	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type globalFlags struct {
	configPath string
	baseURL    string
	token      string
	tokenType  string
	timeout    time.Duration
	dev        bool
	devSet     bool
	trace      bool
	stats      bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var g globalFlags
	flagSet := newGlobalFlagSet(&g)

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	g.devSet = flagSet.Changed("dev")
	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)
		return fmt.Errorf("command required")
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, cmdArgs := rest[0], rest[1:]
	if command == "reach" {
		return runReach(ctx, cfg, logger.Logger, cmdArgs)
	}

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	client, err := httpclient.NewFromConfig(cfg, logger.Logger, metrics)
	if err != nil {
		return err
	}
	defer client.Manager().Invalidate()

	var auth *httpclient.Auth
	if g.token != "" {
		auth = &httpclient.Auth{Token: g.token, Type: g.tokenType}
	}

	switch command {
	case "get", "post", "put", "delete":
		err = runRequest(ctx, client, strings.ToUpper(command), auth, cmdArgs)
	case "download":
		err = runDownload(ctx, client, auth, cmdArgs)
	case "upload":
		err = runUpload(ctx, client, auth, cmdArgs)
	default:
		printHelp(flagSet)
		return fmt.Errorf("unknown command %q", command)
	}

	if g.stats {
		s := metrics.Snapshot()
		fmt.Fprintf(os.Stderr, "tasks=%d succeeded=%d failed=%d cancelled=%d received=%dB sent=%dB\n",
			s.TasksCreated, s.TasksSucceeded, s.TasksFailed, s.TasksCancelled, s.BytesReceived, s.BytesSent)
	}
	return err
}

func newGlobalFlagSet(g *globalFlags) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("netkit", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&g.configPath, "config", "c", "", "YAML or TOML configuration file")
	flagSet.StringVar(&g.baseURL, "base-url", "", "base URL for relative paths (overrides NETKIT_BASE_URL)")
	flagSet.StringVar(&g.token, "token", "", "authorization token")
	flagSet.StringVar(&g.tokenType, "token-type", "Bearer", "authorization token type")
	flagSet.DurationVar(&g.timeout, "timeout", 0, "response header timeout (overrides NETKIT_TIMEOUT)")
	flagSet.BoolVar(&g.dev, "dev", !logging.IsProduction(), "console logging; --dev sets debug level (default off when ENV=production)")
	flagSet.BoolVar(&g.trace, "trace", false, "log a span per task and send trace headers")
	flagSet.BoolVar(&g.stats, "stats", false, "print task statistics on exit")
	flagSet.Usage = func() { printHelp(flagSet) }
	return flagSet
}

func loadConfig(g globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if g.baseURL != "" {
		cfg.Session.BaseURL = g.baseURL
	}
	if g.timeout > 0 {
		cfg.Session.Timeout = config.Duration(g.timeout)
	}
	switch {
	case g.devSet:
		cfg.Logging.Development = g.dev
		if g.dev {
			cfg.Logging.Level = "debug"
		}
	case g.dev:
		cfg.Logging.Development = true
	}
	if g.trace {
		cfg.Logging.Trace = true
	}
	return cfg, nil
}

type outcome struct {
	value any
	path  string
	err   error
}

func runRequest(ctx context.Context, client *httpclient.Client, method string, auth *httpclient.Auth, args []string) error {
	fs := pflag.NewFlagSet(strings.ToLower(method), pflag.ContinueOnError)
	params := fs.StringArrayP("param", "p", nil, "parameter as key=value (repeatable)")
	data := fs.StringP("data", "d", "", "JSON object used as parameters")
	xpath := fs.String("xpath", "", "parse the response as HTML and print the text of each match")
	text := fs.Bool("text", false, "print the response as text instead of decoding JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: netkit %s <path> [--param k=v] [--data json]", strings.ToLower(method))
	}

	values, err := buildParams(*params, *data)
	if err != nil {
		return err
	}

	switch {
	case *xpath != "":
		client.Manager().SetResponseSerializer(serializer.NewHTMLResponseSerializer())
	case *text:
		client.Manager().SetResponseSerializer(serializer.NewStringResponseSerializer())
	}

	done := make(chan outcome, 1)
	_, err = client.Do(ctx, method, fs.Arg(0), values, auth,
		func(_ *http.Response, value any) { done <- outcome{value: value} },
		func(_ *http.Response, err error) { done <- outcome{err: err} })
	if err != nil {
		return err
	}

	o := <-done
	if o.err != nil {
		return o.err
	}
	if doc, ok := o.value.(*goquery.Document); ok {
		matches, err := serializer.XPath(doc, *xpath)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintln(os.Stdout, strings.TrimSpace(m))
		}
		return nil
	}
	return printValue(o.value)
}

func buildParams(pairs []string, data string) (map[string]any, error) {
	if len(pairs) == 0 && data == "" {
		return nil, nil
	}
	values := map[string]any{}
	if data != "" {
		if err := sonic.ConfigStd.UnmarshalFromString(data, &values); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		values[key] = value
	}
	return values, nil
}

func printValue(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		_, err := os.Stdout.Write(v)
		return err
	case string:
		_, err := fmt.Fprintln(os.Stdout, v)
		return err
	}
	out, err := sonic.ConfigStd.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func runDownload(ctx context.Context, client *httpclient.Client, auth *httpclient.Auth, args []string) error {
	fs := pflag.NewFlagSet("download", pflag.ContinueOnError)
	output := fs.StringP("output", "o", "", "destination file (default: derived from the response)")
	quiet := fs.BoolP("quiet", "q", false, "do not report progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: netkit download <path> [-o file]")
	}

	var destination session.Destination
	if *output != "" {
		target := *output
		destination = func(string, *http.Response) (string, error) { return target, nil }
	}

	done := make(chan outcome, 1)
	task, err := client.Download(ctx, fs.Arg(0), auth, destination,
		func(_ *http.Response, path string) { done <- outcome{path: path} },
		func(_ *http.Response, err error) { done <- outcome{err: err} })
	if err != nil {
		return err
	}

	o := waitWithProgress(task, done, *quiet)
	if o.err != nil {
		return o.err
	}
	fmt.Fprintln(os.Stdout, o.path)
	return nil
}

func runUpload(ctx context.Context, client *httpclient.Client, auth *httpclient.Auth, args []string) error {
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	file := fs.StringP("file", "f", "", "file or glob pattern such as 'reports/**/*.pdf' (required)")
	method := fs.StringP("method", "X", http.MethodPost, "HTTP method")
	quiet := fs.BoolP("quiet", "q", false, "do not report progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *file == "" {
		return fmt.Errorf("usage: netkit upload <path> --file <file|glob> [-X method]")
	}

	files, err := doublestar.FilepathGlob(*file, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("invalid --file pattern: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %q", *file)
	}

	type pending struct {
		name string
		task *session.Task
		done chan outcome
	}
	uploads := make([]pending, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		done := make(chan outcome, 1)
		task, err := client.Upload(ctx, strings.ToUpper(*method), fs.Arg(0), data, auth,
			func(_ *http.Response, value any) { done <- outcome{value: value} },
			func(_ *http.Response, err error) { done <- outcome{err: err} })
		if err != nil {
			return err
		}
		uploads = append(uploads, pending{name: name, task: task, done: done})
	}

	if len(uploads) == 1 {
		o := waitWithProgress(uploads[0].task, uploads[0].done, *quiet)
		if o.err != nil {
			return o.err
		}
		return printValue(o.value)
	}

	var failed int
	for _, u := range uploads {
		o := <-u.done
		if o.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", u.name, o.err)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: uploaded\n", u.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(uploads))
	}
	return nil
}

func waitWithProgress(task *session.Task, done <-chan outcome, quiet bool) outcome {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case o := <-done:
			if !quiet {
				fmt.Fprintln(os.Stderr)
			}
			return o
		case <-ticker.C:
			if quiet {
				continue
			}
			completed, total := task.Progress().Snapshot()
			if total > 0 {
				fmt.Fprintf(os.Stderr, "\r%d/%d bytes (%.0f%%)", completed, total, task.Progress().Fraction()*100)
			} else {
				fmt.Fprintf(os.Stderr, "\r%d bytes", completed)
			}
		}
	}
}

func runReach(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := pflag.NewFlagSet("reach", pflag.ContinueOnError)
	watch := fs.BoolP("watch", "w", false, "keep monitoring and print every change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		cfg.Reachability.Host = fs.Arg(0)
	}
	if cfg.Reachability.Host == "" {
		return fmt.Errorf("usage: netkit reach <host[:port]> [--watch]")
	}

	monitor, err := reachability.FromConfig(cfg.Reachability, logger)
	if err != nil {
		return err
	}

	if !*watch {
		fmt.Fprintln(os.Stdout, monitor.Check(ctx))
		return nil
	}

	changes, unsubscribe := monitor.Subscribe()
	defer unsubscribe()

	monitor.StartMonitoring(ctx)
	defer monitor.StopMonitoring()

	for {
		select {
		case <-ctx.Done():
			return nil
		case status := <-changes:
			fmt.Fprintf(os.Stdout, "%s %s\n", time.Now().Format(time.RFC3339), status)
		}
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `netkit - HTTP client built on session tasks

Usage:
  netkit [flags] <command> [args]

Commands:
  get|post|put|delete <path>   send a request and print the decoded body
  download <path> [-o file]    download a file
  upload <path> --file <file>  upload a file as the request body
  reach <host[:port]>          report network reachability

Flags:
%s`, flagSet.FlagUsages())
}
