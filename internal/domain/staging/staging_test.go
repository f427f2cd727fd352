package staging_test

import (
	"errors"
	"testing"

	model "github.com/plasmakit/coupler/internal/domain/model"
	staging "github.com/plasmakit/coupler/internal/domain/staging"
	"github.com/smartystreets/goconvey/convey"
)

func TestMemory(t *testing.T) {
	convey.Convey("Given an empty in-memory staging store", t, func() {
		st := staging.NewMemory()

		convey.Convey("Put creates the record and appends in order", func() {
			convey.So(st.Put("a", model.Timeslice{Time: 0.0, Payload: []byte("p0")}), convey.ShouldBeNil)
			convey.So(st.Put("a", model.Timeslice{Time: 0.5, Payload: []byte("p1")}), convey.ShouldBeNil)
			convey.So(st.Put("b", model.Timeslice{Time: 1.0, Payload: []byte("q0")}), convey.ShouldBeNil)
			convey.So(st.Len("a"), convey.ShouldEqual, 2)
			convey.So(st.Len("b"), convey.ShouldEqual, 1)

			rec, err := st.Get("a")
			convey.So(err, convey.ShouldBeNil)
			convey.So(rec.Stream, convey.ShouldEqual, "a")
			convey.So(rec.Times(), convey.ShouldResemble, []float64{0.0, 0.5})
		})

		convey.Convey("Equal times are accepted, decreasing times are not", func() {
			convey.So(st.Put("a", model.Timeslice{Time: 1.0}), convey.ShouldBeNil)
			convey.So(st.Put("a", model.Timeslice{Time: 1.0}), convey.ShouldBeNil)
			err := st.Put("a", model.Timeslice{Time: 0.5})
			convey.So(errors.Is(err, staging.ErrTimeOrder), convey.ShouldBeTrue)
		})

		convey.Convey("Get of an unknown stream fails", func() {
			_, err := st.Get("missing")
			convey.So(errors.Is(err, staging.ErrUnknownStream), convey.ShouldBeTrue)
			convey.So(st.Len("missing"), convey.ShouldEqual, 0)
		})
	})
}
