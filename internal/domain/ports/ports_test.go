package ports_test

import (
	"errors"
	"testing"

	ports "github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/smartystreets/goconvey/convey"
)

func TestDerive(t *testing.T) {
	convey.Convey("Given connected input and output port lists", t, func() {
		convey.Convey("A paired per-stream topology derives cleanly", func() {
			b, err := ports.Derive(
				[]string{"core_profiles_in", "core_profiles_t_next", "equilibrium_in", "equilibrium_t_next"},
				[]string{"core_profiles_out", "equilibrium_out"},
			)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.SharedNext, convey.ShouldBeFalse)
			convey.So(b.InputPorts(), convey.ShouldResemble, []string{"core_profiles_in", "equilibrium_in"})
			convey.So(b.OutputPorts(), convey.ShouldResemble, []string{"core_profiles_out", "equilibrium_out"})
			convey.So(b.Streams[0].NextPort, convey.ShouldEqual, "core_profiles_t_next")
		})

		convey.Convey("A shared override serves streams without pairs", func() {
			b, err := ports.Derive(
				[]string{"core_profiles_in", "t_next", "equilibrium_in"},
				[]string{"equilibrium_out", "core_profiles_out"},
			)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.SharedNext, convey.ShouldBeTrue)
			convey.So(b.Streams[0].NextPort, convey.ShouldEqual, "")
			convey.So(b.Streams[1].NextPort, convey.ShouldEqual, "")
		})

		convey.Convey("A mixed topology keeps pairs authoritative", func() {
			b, err := ports.Derive(
				[]string{"core_profiles_in", "core_profiles_t_next", "equilibrium_in", "t_next"},
				[]string{"core_profiles_out", "equilibrium_out"},
			)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.SharedNext, convey.ShouldBeTrue)
			convey.So(b.Streams[0].NextPort, convey.ShouldEqual, "core_profiles_t_next")
			convey.So(b.Streams[1].NextPort, convey.ShouldEqual, "")
		})

		convey.Convey("Zero connected channels validate trivially", func() {
			b, err := ports.Derive(nil, nil)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.Streams, convey.ShouldBeEmpty)
			convey.So(b.InputPorts(), convey.ShouldBeEmpty)
		})

		convey.Convey("Bad suffixes are rejected", func() {
			_, err := ports.Derive([]string{"core_profiles"}, nil)
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)

			_, err = ports.Derive(
				[]string{"a_in", "a_t_next"}, []string{"a_output"})
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})

		convey.Convey("Input and output streams must be in bijection", func() {
			_, err := ports.Derive(
				[]string{"a_in", "a_t_next", "b_in", "b_t_next"},
				[]string{"a_out"},
			)
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)

			_, err = ports.Derive(
				[]string{"a_in", "a_t_next"},
				[]string{"a_out", "b_out"},
			)
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})

		convey.Convey("A stream without any completion source is rejected", func() {
			_, err := ports.Derive([]string{"a_in"}, []string{"a_out"})
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})

		convey.Convey("A completion port without its data port is rejected", func() {
			_, err := ports.Derive([]string{"a_t_next"}, nil)
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})

		convey.Convey("Duplicate ports are rejected", func() {
			_, err := ports.Derive([]string{"a_in", "a_in", "a_t_next"}, []string{"a_out"})
			convey.So(errors.Is(err, ports.ErrConfiguration), convey.ShouldBeTrue)
		})
	})
}
