package prover

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
)

const (
	probeCacheKey = "version"
	// DefaultProbeTTL is how long a probed mode is trusted
	DefaultProbeTTL = 5 * time.Minute
	probeTimeout    = 10 * time.Second
)

// nodeMarker in the tool's --version output means it was built with
// bitcoind integration
var nodeMarker = []byte("bitcoind")

// ModeSelector decides the verification mode for a verify invocation.
type ModeSelector interface {
	Mode(ctx context.Context) Mode
}

// FixedMode is a mode picked once at startup
type FixedMode Mode

func (m FixedMode) Mode(context.Context) Mode {
	return Mode(m)
}

// VersionProbe asks the tool for its version and looks for evidence of node
// integration. The answer is cached for the configured TTL.
type VersionProbe struct {
	tool   string
	runner Runner
	ttl    time.Duration
	cache  *ttlcache.Cache[string, Mode]
}

// NewVersionProbe creates a probe for tool. A non-positive ttl means
// DefaultProbeTTL.
func NewVersionProbe(tool string, runner Runner, ttl time.Duration) *VersionProbe {
	if ttl <= 0 {
		ttl = DefaultProbeTTL
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &VersionProbe{
		tool:   tool,
		runner: runner,
		ttl:    ttl,
		cache: ttlcache.New[string, Mode](
			ttlcache.WithDisableTouchOnHit[string, Mode](),
		),
	}
}

// Mode returns the cached mode, probing the tool when the cache is empty or
// expired. A failed probe falls back to ModeExplorer and is not cached.
func (p *VersionProbe) Mode(ctx context.Context) Mode {
	var perr error
	loader := ttlcache.LoaderFunc[string, Mode](
		func(c *ttlcache.Cache[string, Mode], key string) *ttlcache.Item[string, Mode] {
			var mode Mode
			mode, perr = p.probe(ctx)
			if perr == nil {
				return c.Set(key, mode, p.ttl)
			}
			return nil
		},
	)

	item := p.cache.Get(probeCacheKey, ttlcache.WithLoader[string, Mode](loader))
	if item == nil {
		slog.Warn("version probe failed, using explorer mode", "tool", p.tool, "error", perr)
		return ModeExplorer
	}
	return item.Value()
}

func (p *VersionProbe) probe(ctx context.Context) (Mode, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res, err := p.runner.Run(ctx, "", p.tool, "--version")
	if err != nil {
		return ModeExplorer, err
	}
	if res.ExitCode != 0 {
		return ModeExplorer, errors.Errorf("%s --version exited with %d", p.tool, res.ExitCode)
	}
	mode := ModeExplorer
	if bytes.Contains(bytes.ToLower(res.Stdout), nodeMarker) {
		mode = ModeNode
	}
	slog.Info("probed prover version", "tool", p.tool, "mode", mode.String())
	return mode, nil
}
