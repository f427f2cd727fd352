package simulation_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	storage "github.com/plasmakit/coupler/internal/adapters/storage"
	simulation "github.com/plasmakit/coupler/internal/app"
	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/internal/topology"
	"github.com/plasmakit/coupler/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func seed(t *testing.T, path, stream string, times []float64) {
	t.Helper()
	db, err := storage.Open(path)
	if err != nil {
		t.Fatalf("seed open: %v", err)
	}
	defer db.Close()
	for _, tm := range times {
		slice := model.Timeslice{
			Time:    tm,
			Payload: []byte(fmt.Sprintf(`{"ip": %g}`, 1e6*(tm+1))),
		}
		if err := db.PutSlice(context.Background(), stream, 0, slice); err != nil {
			t.Fatalf("seed put: %v", err)
		}
	}
}

func TestEndToEnd(t *testing.T) {
	convey.Convey("Given a source, accumulator, and sink pipeline", t, func() {
		dir := t.TempDir()
		srcPath := filepath.Join(dir, "src.db")
		sinkPath := filepath.Join(dir, "sink.db")
		seed(t, srcPath, "core_profiles", []float64{0.0, 1.0, 2.0})

		doc := fmt.Sprintf(`
name: integration
components:
  macro:
    kind: source
    out: [core_profiles_out]
  acc:
    kind: accumulator
    in: [core_profiles_in, core_profiles_t_next]
    out: [core_profiles_out]
  store:
    kind: sink
    in: [core_profiles_in]
conduits:
  macro.core_profiles_out:
    - acc.core_profiles_in
    - acc.core_profiles_t_next
  acc.core_profiles_out:
    - store.core_profiles_in
settings:
  macro.source_uri: %s
  store.sink_uri: %s
`, srcPath, sinkPath)

		m, err := topology.Parse([]byte(doc))
		convey.So(err, convey.ShouldBeNil)

		sim, err := simulation.New(m, config.New())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("All slices arrive at the sink as one record", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			convey.So(sim.Run(ctx), convey.ShouldBeNil)

			db, err := storage.Open(sinkPath, storage.WithReadOnly())
			convey.So(err, convey.ShouldBeNil)
			defer db.Close()

			rec, err := db.GetRecord(ctx, "core_profiles", 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(rec.Times(), convey.ShouldResemble, []float64{0.0, 1.0, 2.0})
			convey.So(string(rec.Slices[2].Payload), convey.ShouldEqual, `{"ip": 3e+06}`)
		})
	})

	convey.Convey("Given a component that cannot start", t, func() {
		dir := t.TempDir()
		srcPath := filepath.Join(dir, "src.db")
		seed(t, srcPath, "core_profiles", []float64{0.0})

		doc := fmt.Sprintf(`
name: broken
components:
  macro:
    kind: source
    out: [core_profiles_out]
  store:
    kind: sink
    in: [core_profiles_in]
conduits:
  macro.core_profiles_out:
    - store.core_profiles_in
settings:
  macro.source_uri: %s
`, srcPath)

		m, err := topology.Parse([]byte(doc))
		convey.So(err, convey.ShouldBeNil)

		sim, err := simulation.New(m, config.New())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Run surfaces the failing component by name", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := sim.Run(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "store")
		})
	})
}
