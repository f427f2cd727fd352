// Package limitcheck implements the rule-validation actor. Each cycle
// it receives one message per input port, evaluates the configured CUE
// rulesets against the decoded payloads, and writes a JSON report for
// any timestamp that violates a rule. Messages are forwarded unchanged
// on a matching output port, so the checker can sit inline on a stream.
//
// Settings: rulesets (semicolon-separated CUE file paths),
// extra_rule_dirs (semicolon-separated directories scanned for .cue
// files), apply_generic (include the built-in sanity rules, default
// true), report_dir (where reports land, default "."), halt_on_error
// (escalate a failed check to a fatal error, default false).
package limitcheck

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/plasmakit/coupler/internal/adapters/transport"
	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/plasmakit/coupler/pkg/logger"
	"github.com/plasmakit/coupler/pkg/metrics"
)

//go:embed generic.cue
var genericRules []byte

// ruleset is one compiled CUE constraint document.
type ruleset struct {
	name  string
	value cue.Value
}

// Checker validates timeslice payloads against CUE rulesets.
type Checker struct {
	inst transport.Endpoint
	log  logger.Logger
	cue  *cue.Context
}

// Option applies a configuration option to a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a limit checker bound to an instance.
func New(inst transport.Endpoint, opts ...Option) *Checker {
	c := &Checker{
		inst: inst,
		log:  logger.Named("limitcheck"),
		cue:  cuecontext.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run compiles the configured rulesets and checks one message per input
// port per reuse cycle.
func (c *Checker) Run(ctx context.Context) error {
	ins := c.inst.InPorts()
	outs := c.inst.OutPorts()
	if err := c.sanityCheckPorts(ins, outs); err != nil {
		return fmt.Errorf("%s: %w", c.inst.Name(), err)
	}

	rules, err := c.loadRulesets()
	if err != nil {
		return fmt.Errorf("%s: %w", c.inst.Name(), err)
	}
	reportDir := c.inst.Settings().StringOr("report_dir", ".")
	haltOnError := c.inst.Settings().BoolOr("halt_on_error", false)

	c.log.Info(ctx, "starting limit checker",
		logger.String("instance", c.inst.Name()),
		logger.Int("rulesets", len(rules)),
		logger.Int("ports", len(ins)))

	outSet := make(map[string]bool, len(outs))
	for _, port := range outs {
		outSet[port] = true
	}

	for c.inst.ReuseInstance() {
		rep := report{Timestamp: 0}
		for _, port := range ins {
			stream := strings.TrimSuffix(port, ports.SuffixIn)
			msg, err := c.inst.Receive(ctx, port)
			if err != nil {
				return fmt.Errorf("%s: %w", c.inst.Name(), err)
			}
			rep.Timestamp = msg.Timestamp
			rep.Violations = append(rep.Violations, c.checkMessage(ctx, stream, msg, rules)...)

			if out := stream + ports.SuffixOut; outSet[out] {
				if err := c.inst.Send(ctx, out, msg); err != nil {
					return fmt.Errorf("%s: %w", c.inst.Name(), err)
				}
			}
		}

		failed := len(rep.Violations) > 0
		metrics.RecordCheck(failed)
		if !failed {
			c.log.Debug(ctx, "limit check passed",
				logger.Float64("time", rep.Timestamp))
			metrics.RecordCycle(c.inst.Name())
			continue
		}

		path, err := writeReport(reportDir, rep)
		if err != nil {
			return fmt.Errorf("%s: %w", c.inst.Name(), err)
		}
		c.log.Warn(ctx, "limit check failed",
			logger.Float64("time", rep.Timestamp),
			logger.Int("violations", len(rep.Violations)),
			logger.String("report", path))
		if haltOnError {
			return fmt.Errorf("%s: %w at t=%v", c.inst.Name(), ErrLimitExceeded, rep.Timestamp)
		}
		metrics.RecordCycle(c.inst.Name())
	}
	return nil
}

// checkMessage evaluates every ruleset against the message payload.
// A consolidated record is unpacked and every contained slice checked.
// Payloads that are not structured data cannot be checked and pass.
func (c *Checker) checkMessage(ctx context.Context, stream string, msg model.Message, rules []ruleset) []violation {
	if model.IsRecord(msg.Payload) {
		rec, err := model.DecodeRecord(msg.Payload)
		if err != nil {
			return []violation{{Stream: stream, Rule: "decode", Detail: err.Error()}}
		}
		var all []violation
		for _, slice := range rec.Slices {
			all = append(all, c.checkPayload(ctx, stream, slice.Payload, rules)...)
		}
		return all
	}
	return c.checkPayload(ctx, stream, msg.Payload, rules)
}

func (c *Checker) checkPayload(ctx context.Context, stream string, payload []byte, rules []ruleset) []violation {
	data := c.cue.CompileBytes(payload)
	if data.Err() != nil {
		c.log.Debug(ctx, "skipping opaque payload",
			logger.String("stream", stream))
		return nil
	}

	var found []violation
	for _, r := range rules {
		unified := r.value.Unify(data)
		if err := unified.Validate(); err != nil {
			for _, e := range cueerrors.Errors(err) {
				found = append(found, violation{
					Stream: stream,
					Rule:   r.name,
					Detail: e.Error(),
				})
			}
		}
	}
	return found
}

// loadRulesets compiles the generic rules plus every configured file.
func (c *Checker) loadRulesets() ([]ruleset, error) {
	var rules []ruleset
	st := c.inst.Settings()

	if st.BoolOr("apply_generic", true) {
		v := c.cue.CompileBytes(genericRules, cue.Filename("generic.cue"))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%w: generic.cue: %v", ErrBadRuleset, err)
		}
		rules = append(rules, ruleset{name: "generic.cue", value: v})
	}

	paths := splitList(st.StringOr("rulesets", ""))
	for _, dir := range splitList(st.StringOr("extra_rule_dirs", "")) {
		found, err := filepath.Glob(filepath.Join(dir, "*.cue"))
		if err != nil {
			return nil, fmt.Errorf("%w: scanning %q: %v", ErrBadRuleset, dir, err)
		}
		paths = append(paths, found...)
	}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRuleset, err)
		}
		v := c.cue.CompileBytes(content, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadRuleset, path, err)
		}
		rules = append(rules, ruleset{name: filepath.Base(path), value: v})
	}
	return rules, nil
}

func (c *Checker) sanityCheckPorts(ins, outs []string) error {
	streams := make(map[string]bool, len(ins))
	for _, port := range ins {
		if !strings.HasSuffix(port, ports.SuffixIn) {
			return fmt.Errorf("%w: input port %q must end with %q",
				ports.ErrConfiguration, port, ports.SuffixIn)
		}
		streams[strings.TrimSuffix(port, ports.SuffixIn)] = true
	}
	for _, port := range outs {
		if !strings.HasSuffix(port, ports.SuffixOut) {
			return fmt.Errorf("%w: output port %q must end with %q",
				ports.ErrConfiguration, port, ports.SuffixOut)
		}
		if !streams[strings.TrimSuffix(port, ports.SuffixOut)] {
			return fmt.Errorf("%w: output port %q has no matching input",
				ports.ErrConfiguration, port)
		}
	}
	return nil
}

// splitList splits a semicolon-separated setting, dropping empties.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// reportName formats the report filename for a timestamp.
func reportName(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64) + "_report.json"
}

func writeReport(dir string, rep report) (string, error) {
	data, err := renderReport(rep)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	path := filepath.Join(dir, reportName(rep.Timestamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
