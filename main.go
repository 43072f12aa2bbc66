package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/sockstun/internal/conn"
	"github.com/die-net/sockstun/internal/dialer"
	"github.com/die-net/sockstun/internal/relay"
	"github.com/die-net/sockstun/internal/socks5"
	"github.com/die-net/sockstun/internal/tproxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		upstream = pflag.String("proxy", defaultUpstream(), "Upstream proxy URL: direct:// | socks5://[user:pass@]host[:port]")

		forwards     = pflag.StringArray("forward", nil, "Port forward listen=target (e.g. 127.0.0.1:6667=irc.libera.chat:6667). Repeatable.")
		tproxyListen = pflag.String("tproxy-listen", "", "Transparent proxy listen address (e.g. 127.0.0.1:1234). Empty disables.")

		dialTimeout      = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for DNS lookup and TCP connect to the proxy")
		handshakeTimeout = pflag.Duration("handshake-timeout", socks5.DefaultTimeout, "Timeout for the SOCKS5 handshake with the proxy")
		tcpKeepAlive     = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		logLevel         = pflag.String("log-level", "info", "Log level: trace|debug|info|warn|error")
		verbose          = pflag.Bool("verbose", false, "Enable per-connection error logging")
	)

	if !tproxy.IsSupported {
		_ = pflag.CommandLine.MarkHidden("tproxy-listen")
	}

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	fwds := make([]forward, 0, len(*forwards))
	for _, s := range *forwards {
		f, err := parseForward(s)
		if err != nil {
			return fmt.Errorf("invalid --forward: %w", err)
		}
		fwds = append(fwds, f)
	}

	if len(fwds) == 0 && *tproxyListen == "" {
		return errors.New("no listeners enabled (set at least one of --forward, --tproxy-listen)")
	}

	d, err := dialer.New(dialer.Config{
		DialTimeout:      *dialTimeout,
		HandshakeTimeout: *handshakeTimeout,
		KeepAlive:        ka,
	}, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --proxy: %w", err)
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.Logger.WithContext(ctx)

	for _, f := range fwds {
		ln, err := conn.ListenTCP("tcp", f.listen, ka)
		if err != nil {
			return fmt.Errorf("forward listen: %w", err)
		}
		srv := relay.NewServer(ctx, d, relay.StaticDestination(f.target), *verbose)
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
				return fmt.Errorf("forward %s serve: %w", f.listen, err)
			}
			return nil
		})
		log.Info().Str("listen", f.listen).Str("target", f.target).Msg("forwarding")
	}

	if *tproxyListen != "" {
		ln, err := tproxy.ListenTransparentTCP(*tproxyListen, ka)
		if err != nil {
			return fmt.Errorf("tproxy listen: %w", err)
		}
		srv := relay.NewServer(ctx, d, tproxy.Destination, *verbose)
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
				return fmt.Errorf("tproxy serve: %w", err)
			}
			return nil
		})
		log.Info().Str("listen", *tproxyListen).Msg("tproxy listening")
	}

	err = g.Wait()

	log.Info().Msg("shutting down")
	return err
}

type forward struct {
	listen string
	target string
}

// parseForward parses "listen=target", where both sides are host:port.
func parseForward(s string) (forward, error) {
	listen, target, ok := strings.Cut(s, "=")
	if !ok {
		return forward{}, fmt.Errorf("%q: expected listen=target", s)
	}
	listen, target = strings.TrimSpace(listen), strings.TrimSpace(target)
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return forward{}, fmt.Errorf("%q: listen: %w", s, err)
	}
	if _, err := socks5.ParseTarget(target); err != nil {
		return forward{}, fmt.Errorf("%q: %w", s, err)
	}
	return forward{listen: listen, target: target}, nil
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}

	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}

	return "direct://"
}
