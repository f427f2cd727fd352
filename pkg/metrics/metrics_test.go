package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	convey.Convey("Given a metrics manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithNamespace("test"), WithSubsystem("core"))
		convey.So(m, convey.ShouldNotBeNil)

		convey.Convey("Then all metric families are registered", func() {
			// Touch labelled metrics so they appear in the gather.
			m.messagesReceived.WithLabelValues("acc", "a_in").Inc()
			m.messagesSent.WithLabelValues("acc", "a_out").Inc()
			m.cyclesCompleted.WithLabelValues("acc").Inc()
			m.stagedSlices.WithLabelValues("a").Set(2)
			m.conduitDepth.WithLabelValues("src.a_out->acc.a_in").Set(1)

			families, err := reg.Gather()
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(families), convey.ShouldBeGreaterThan, 5)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	convey.Convey("Given the global manager", t, func() {
		convey.Convey("Helpers do not panic", func() {
			RecordReceive("acc", "a_in", 0.2)
			RecordSend("acc", "a_out")
			RecordCycle("acc")
			UpdateStagedSlices("a", 3)
			UpdateActiveStreams(2)
			UpdateConduitDepth("c", 1)
			RecordConduitDrop("c")
			RecordStoreWrite(1.0)
			RecordStoreRead(1.0)
			RecordCheck(true)
			RecordCheck(false)
			RecordErrorByComponent("transport", "closed")
			convey.So(Registry(), convey.ShouldNotBeNil)
		})
	})
}
