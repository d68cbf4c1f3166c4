package modl

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEmitJSON(t *testing.T) {
	Convey("EmitJSON", t, func() {
		Convey("an empty document emits an empty object", func() {
			out, err := EmitJSON(&Document{})
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "{}")
		})

		Convey("pair structures merge into one object, in order", func() {
			doc := &Document{}
			doc.AddStructures([]Value{
				NewPair("b", IntNumber(2)),
				NewPair("a", IntNumber(1)),
			})
			out, err := EmitJSON(doc)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"b":2,"a":1}`)
		})

		Convey("a single non-pair structure emits bare", func() {
			arr := &Array{}
			arr.Append(IntNumber(1))
			arr.Append(String("two"))
			doc := &Document{}
			doc.AddStructures([]Value{arr})

			out, err := EmitJSON(doc)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `[1,"two"]`)
		})

		Convey("mixed structures emit as a JSON array", func() {
			arr := &Array{}
			arr.Append(IntNumber(1))
			doc := &Document{}
			doc.AddStructures([]Value{arr, NewPair("a", Bool(true))})

			out, err := EmitJSON(doc)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `[[1],{"a":true}]`)
		})

		Convey("strings escape per JSON rules", func() {
			doc := &Document{}
			doc.AddStructures([]Value{NewPair("s", String("line\n\"quoted\""))})
			out, err := EmitJSON(doc)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"s":"line\n\"quoted\""}`)
		})

		Convey("numbers keep integer and float forms", func() {
			doc := &Document{}
			doc.AddStructures([]Value{
				NewPair("i", IntNumber(42)),
				NewPair("f", FloatNumber(2.5)),
			})
			out, err := EmitJSON(doc)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"i":42,"f":2.5}`)
		})

		Convey("null and nil values emit as null", func() {
			doc := &Document{}
			doc.AddStructures([]Value{NewPair("n", Null{}), NewPair("m", nil)})
			out, err := EmitJSON(doc)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"n":null,"m":null}`)
		})
	})
}
