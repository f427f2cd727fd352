package limitcheck

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/plasmakit/coupler/internal/adapters/transport"
	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/plasmakit/coupler/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func writeRule(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing rule: %v", err)
	}
	return path
}

func TestChecker(t *testing.T) {
	convey.Convey("Given a checker with a plasma current limit", t, func() {
		ctx := testCtx(t)
		rule := writeRule(t, "limits.cue", "ip?: number & <=1.5e7\n")
		reportDir := t.TempDir()

		in := transport.NewConduit("i")
		out := transport.NewConduit("o")

		newInst := func(extra map[string]interface{}) *transport.Instance {
			values := map[string]interface{}{
				"rulesets":   rule,
				"report_dir": reportDir,
			}
			for k, v := range extra {
				values[k] = v
			}
			return transport.NewInstance("olc", config.NewSettings("olc", values),
				transport.WithInConduit("core_profiles_in", in),
				transport.WithOutConduit("core_profiles_out", out))
		}

		convey.Convey("A compliant slice passes and is forwarded", func() {
			msg := model.Message{Timestamp: 1.0, Payload: []byte(`{"ip": 1.0e6}`)}
			convey.So(in.Push(ctx, msg), convey.ShouldBeNil)

			convey.So(New(newInst(nil)).Run(ctx), convey.ShouldBeNil)

			fwd, err := out.Pop(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(fwd.Payload), convey.ShouldEqual, `{"ip": 1.0e6}`)

			entries, err := os.ReadDir(reportDir)
			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldBeEmpty)
		})

		convey.Convey("A violating slice is reported but still forwarded", func() {
			msg := model.Message{Timestamp: 3.0, Payload: []byte(`{"ip": 2.0e7}`)}
			convey.So(in.Push(ctx, msg), convey.ShouldBeNil)

			convey.So(New(newInst(nil)).Run(ctx), convey.ShouldBeNil)

			_, err := out.Pop(ctx)
			convey.So(err, convey.ShouldBeNil)

			data, err := os.ReadFile(filepath.Join(reportDir, "3_report.json"))
			convey.So(err, convey.ShouldBeNil)
			var rep report
			convey.So(json.Unmarshal(data, &rep), convey.ShouldBeNil)
			convey.So(rep.Timestamp, convey.ShouldEqual, 3.0)
			convey.So(len(rep.Violations), convey.ShouldBeGreaterThan, 0)
			convey.So(rep.Violations[0].Stream, convey.ShouldEqual, "core_profiles")
			convey.So(rep.Violations[0].Rule, convey.ShouldEqual, "limits.cue")
		})

		convey.Convey("halt_on_error escalates a failed check", func() {
			msg := model.Message{Timestamp: 3.0, Payload: []byte(`{"ip": 2.0e7}`)}
			convey.So(in.Push(ctx, msg), convey.ShouldBeNil)

			err := New(newInst(map[string]interface{}{"halt_on_error": true})).Run(ctx)
			convey.So(errors.Is(err, ErrLimitExceeded), convey.ShouldBeTrue)
		})

		convey.Convey("An opaque payload cannot be checked and passes", func() {
			msg := model.Message{Timestamp: 1.0, Payload: []byte("opaque blob")}
			convey.So(in.Push(ctx, msg), convey.ShouldBeNil)

			convey.So(New(newInst(nil)).Run(ctx), convey.ShouldBeNil)

			entries, err := os.ReadDir(reportDir)
			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldBeEmpty)
		})
	})
}

func TestGenericRules(t *testing.T) {
	convey.Convey("Given a checker with only the built-in rules", t, func() {
		ctx := testCtx(t)
		reportDir := t.TempDir()

		in := transport.NewConduit("i")
		settings := config.NewSettings("olc", map[string]interface{}{
			"report_dir": reportDir,
		})
		inst := transport.NewInstance("olc", settings,
			transport.WithInConduit("equilibrium_in", in))

		convey.Convey("A negative time field violates the generic rules", func() {
			msg := model.Message{Timestamp: 0.5, Payload: []byte(`{"time": -1.0}`)}
			convey.So(in.Push(ctx, msg), convey.ShouldBeNil)

			convey.So(New(inst).Run(ctx), convey.ShouldBeNil)

			data, err := os.ReadFile(filepath.Join(reportDir, "0.5_report.json"))
			convey.So(err, convey.ShouldBeNil)
			var rep report
			convey.So(json.Unmarshal(data, &rep), convey.ShouldBeNil)
			convey.So(rep.Violations[0].Rule, convey.ShouldEqual, "generic.cue")
		})

		convey.Convey("Disabling apply_generic drops the built-in rules", func() {
			off := config.NewSettings("olc", map[string]interface{}{
				"report_dir":    reportDir,
				"apply_generic": false,
			})
			inst := transport.NewInstance("olc", off,
				transport.WithInConduit("equilibrium_in", in))

			msg := model.Message{Timestamp: 0.5, Payload: []byte(`{"time": -1.0}`)}
			convey.So(in.Push(ctx, msg), convey.ShouldBeNil)

			convey.So(New(inst).Run(ctx), convey.ShouldBeNil)

			entries, err := os.ReadDir(reportDir)
			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldBeEmpty)
		})
	})
}

func TestPortSanity(t *testing.T) {
	convey.Convey("Given mis-suffixed ports", t, func() {
		ctx := testCtx(t)
		in := transport.NewConduit("i")
		settings := config.NewSettings("olc", nil)

		convey.Convey("A bad input suffix is rejected", func() {
			inst := transport.NewInstance("olc", settings,
				transport.WithInConduit("core_profiles", in))
			err := New(inst).Run(ctx)
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})

		convey.Convey("An output without a matching input is rejected", func() {
			out := transport.NewConduit("o")
			inst := transport.NewInstance("olc", settings,
				transport.WithInConduit("core_profiles_in", in),
				transport.WithOutConduit("equilibrium_out", out))
			err := New(inst).Run(ctx)
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})
	})
}

func TestRenderReportGolden(t *testing.T) {
	rep := report{
		Timestamp: 2.5,
		Violations: []violation{
			{Stream: "equilibrium", Rule: "generic.cue", Detail: "time: negative value"},
			{Stream: "core_profiles", Rule: "limits.cue", Detail: "ip: plasma current beyond machine limit"},
		},
	}
	data, err := renderReport(rep)
	if err != nil {
		t.Fatalf("rendering report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "violation_report", data)
}
