package model_test

import (
	"testing"

	model "github.com/plasmakit/coupler/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMessage(t *testing.T) {
	convey.Convey("Given messages with and without a next timestamp", t, func() {
		next := 2.5
		withNext := model.Message{Timestamp: 1.0, Payload: []byte("x"), NextTimestamp: &next}
		last := model.Message{Timestamp: 2.5, Payload: []byte("y")}

		convey.Convey("HasNext reflects the announcement", func() {
			convey.So(withNext.HasNext(), convey.ShouldBeTrue)
			convey.So(last.HasNext(), convey.ShouldBeFalse)
		})

		convey.Convey("SliceOf carries time and payload", func() {
			s := model.SliceOf(withNext)
			convey.So(s.Time, convey.ShouldEqual, 1.0)
			convey.So(string(s.Payload), convey.ShouldEqual, "x")
		})
	})
}

func TestRecord(t *testing.T) {
	convey.Convey("Given an accumulated record", t, func() {
		r := model.Record{
			Stream: "core_profiles",
			Slices: []model.Timeslice{
				{Time: 0.0, Payload: []byte(`{"ip":1}`)},
				{Time: 0.5, Payload: []byte(`{"ip":2}`)},
				{Time: 1.0, Payload: []byte(`{"ip":3}`)},
			},
		}

		convey.Convey("First and Times report append order", func() {
			convey.So(r.First().Time, convey.ShouldEqual, 0.0)
			convey.So(r.Times(), convey.ShouldResemble, []float64{0.0, 0.5, 1.0})
			convey.So(r.Len(), convey.ShouldEqual, 3)
		})

		convey.Convey("Encode and decode round-trip the record", func() {
			data, err := model.EncodeRecord(r)
			convey.So(err, convey.ShouldBeNil)
			convey.So(model.IsRecord(data), convey.ShouldBeTrue)

			got, err := model.DecodeRecord(data)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Stream, convey.ShouldEqual, r.Stream)
			convey.So(got.Times(), convey.ShouldResemble, r.Times())
			convey.So(string(got.Slices[1].Payload), convey.ShouldEqual, `{"ip":2}`)
		})

		convey.Convey("Arbitrary payloads are not mistaken for records", func() {
			convey.So(model.IsRecord([]byte(`{"ip":1}`)), convey.ShouldBeFalse)
			convey.So(model.IsRecord([]byte("not json")), convey.ShouldBeFalse)
		})

		convey.Convey("An empty record has a zero first slice", func() {
			convey.So(model.Record{Stream: "s"}.First().Time, convey.ShouldEqual, 0.0)
		})
	})
}
